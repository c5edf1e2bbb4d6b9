package deploy

import "time"

// Snapshot is an immutable projection of a State, safe to hand to renderers
// and to publish on the event bus.
type Snapshot struct {
	PodName    string              `json:"podName,omitempty"`
	CreatedAt  *time.Time          `json:"createdAt,omitempty"`
	Containers []ContainerSnapshot `json:"containers"`
	Errors     []string            `json:"errors,omitempty"`
	Complete   bool                `json:"isComplete"`
	Ready      bool                `json:"isReady"`
	Crashed    bool                `json:"hasCrashed"`
	CrashLogs  *CrashLogs          `json:"crashLogs,omitempty"`
}

type ContainerSnapshot struct {
	Name       string          `json:"name"`
	Kind       ContainerKind   `json:"kind"`
	Status     ContainerStatus `json:"status"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	ExitCode   *int            `json:"exitCode,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Restarts   int             `json:"restarts,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Complete: s.Complete,
		Ready:    s.Ready,
		Crashed:  s.Crashed,
	}
	if s.Pod != nil {
		snap.PodName = s.Pod.Name
		snap.CreatedAt = s.Pod.CreatedAt
	}
	if s.CrashLogs != nil {
		logs := *s.CrashLogs
		snap.CrashLogs = &logs
	}
	snap.Errors = append(snap.Errors, s.Errors...)
	snap.Containers = make([]ContainerSnapshot, 0, len(s.order))
	for _, c := range s.Containers() {
		snap.Containers = append(snap.Containers, ContainerSnapshot{
			Name:       c.Name,
			Kind:       c.Kind,
			Status:     c.Status,
			StartedAt:  c.StartedAt,
			FinishedAt: c.FinishedAt,
			ExitCode:   c.ExitCode,
			Reason:     c.Reason,
			Restarts:   c.Restarts,
		})
	}
	return snap
}
