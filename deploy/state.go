package deploy

import (
	"time"
)

type ContainerKind string

const (
	KindInit ContainerKind = "init"
	KindMain ContainerKind = "main"
)

type ContainerStatus string

const (
	StatusPending      ContainerStatus = "pending"
	StatusRunning      ContainerStatus = "running"
	StatusCompleted    ContainerStatus = "completed"
	StatusFailed       ContainerStatus = "failed"
	StatusReady        ContainerStatus = "ready"
	StatusCrashBackOff ContainerStatus = "crashBackOff"
)

type PodInfo struct {
	Name               string
	CreatedAt          *time.Time
	InitContainerNames []string
	MainContainerNames []string
}

type Container struct {
	Name       string
	Kind       ContainerKind
	Status     ContainerStatus
	StartedAt  *time.Time
	FinishedAt *time.Time
	ExitCode   *int
	Reason     string
	Restarts   int
}

// terminal reports whether the status may no longer be moved back to a
// running or pending state by a later event.
func (c *Container) terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed || c.Status == StatusReady
}

type CrashLogs struct {
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Loading bool   `json:"isLoading"`
}

// State is the reduced view of one deployment log stream. It is owned by a
// single monitoring session; nothing mutates it concurrently.
type State struct {
	Pod        *PodInfo
	Errors     []string
	Complete   bool
	Ready      bool
	Crashed    bool
	CrashLogs  *CrashLogs
	order      []string
	containers map[string]*Container
}

func NewState() *State {
	return &State{
		containers: make(map[string]*Container),
	}
}

// Container returns the record for name, nil when the pod never declared it.
func (s *State) Container(name string) *Container {
	return s.containers[name]
}

// Containers returns all records in discovery order.
func (s *State) Containers() []*Container {
	result := make([]*Container, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.containers[name])
	}
	return result
}

func (s *State) mains() []*Container {
	result := make([]*Container, 0)
	for _, name := range s.order {
		if c := s.containers[name]; c.Kind == KindMain {
			result = append(result, c)
		}
	}
	return result
}

func (s *State) add(name string, kind ContainerKind) {
	if _, ok := s.containers[name]; ok {
		return
	}
	s.containers[name] = &Container{
		Name:   name,
		Kind:   kind,
		Status: StatusPending,
	}
	s.order = append(s.order, name)
}

// AddError records a stream-level or parse-level problem. Errors never
// terminate the session by themselves.
func (s *State) AddError(message string) {
	s.Errors = append(s.Errors, message)
}

// PodName returns the pod name when podInfo has been seen, otherwise "".
func (s *State) PodName() string {
	if s.Pod == nil {
		return ""
	}
	return s.Pod.Name
}

// Apply reduces one event into the state. Events naming a container the pod
// never declared are dropped silently; podInfo is honored once. Replaying the
// same sequence from a fresh state always yields the same final state.
func (s *State) Apply(ev Event) {
	switch ev.Type {
	case EventPodInfo:
		if s.Pod != nil {
			return
		}
		s.Pod = &PodInfo{
			Name:               ev.Pod,
			CreatedAt:          ev.CreatedAt,
			InitContainerNames: ev.InitContainers,
			MainContainerNames: ev.Containers,
		}
		for _, name := range ev.InitContainers {
			s.add(name, KindInit)
		}
		for _, name := range ev.Containers {
			s.add(name, KindMain)
		}
	case EventInitContainerRunning:
		c := s.containers[ev.Name]
		if c == nil || c.terminal() {
			return
		}
		c.Status = StatusRunning
	case EventInitContainerTerminated:
		c := s.containers[ev.Name]
		if c == nil {
			return
		}
		if ev.ExitCode != nil && *ev.ExitCode == 0 {
			c.Status = StatusCompleted
		} else {
			c.Status = StatusFailed
		}
		c.StartedAt = ev.StartedAt
		c.FinishedAt = ev.FinishedAt
		c.ExitCode = ev.ExitCode
		c.Reason = ev.Reason
	case EventMainContainerRunning:
		for _, c := range s.mains() {
			if c.terminal() {
				continue
			}
			c.Status = StatusRunning
		}
	case EventMainContainerReady:
		for _, c := range s.mains() {
			c.Status = StatusReady
		}
		s.Ready = true
	case EventMainContainerCrashed:
		for _, c := range s.mains() {
			c.Status = StatusFailed
			c.StartedAt = ev.StartedAt
			c.FinishedAt = ev.FinishedAt
			c.ExitCode = ev.ExitCode
			c.Reason = ev.Reason
		}
		s.Crashed = true
	case EventMainContainerCrashBackOff:
		for _, c := range s.mains() {
			c.Status = StatusCrashBackOff
			c.Reason = ev.Reason
			c.Restarts = ev.Restarts
		}
	case EventError:
		s.AddError(ev.Message)
	case EventDone:
		// Stream sentinel. The monitor decides what it means.
	default:
		s.AddError("unknown deployment event type: " + ev.Type)
	}
}
