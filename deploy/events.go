package deploy

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	EventPodInfo                   = "podInfo"
	EventInitContainerRunning      = "initContainerRunning"
	EventInitContainerTerminated   = "initContainerTerminated"
	EventMainContainerRunning      = "mainContainerRunning"
	EventMainContainerReady        = "mainContainerReady"
	EventMainContainerCrashed      = "mainContainerCrashed"
	EventMainContainerCrashBackOff = "mainContainerCrashBackOff"
	EventError                     = "error"
	EventDone                      = "done"
)

// Event is the envelope for every payload on the deployment log stream.
// The Type discriminator decides which of the optional fields are set.
type Event struct {
	Type           string     `json:"type"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	Pod            string     `json:"pod,omitempty"`
	InitContainers []string   `json:"initContainers,omitempty"`
	Containers     []string   `json:"containers,omitempty"`
	Name           string     `json:"name,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	ExitCode       *int       `json:"exitCode,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Restarts       int        `json:"restarts,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// ParseEvent decodes a raw stream payload. A failure here is recoverable:
// the caller records the message on the state instead of aborting the session.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, errors.Wrapf(err, "unparseable deployment event: %q", string(data))
	}
	if ev.Type == "" {
		return Event{}, errors.Errorf("deployment event without type: %q", string(data))
	}
	return ev, nil
}
