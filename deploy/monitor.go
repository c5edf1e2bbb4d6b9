package deploy

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"agenthub/common"
)

// Outcome is the single result of one monitoring session. The monitor never
// reports failure through an error; every exit path produces an Outcome.
type Outcome struct {
	Deployed   bool
	Stabilized bool
	PodName    string
	TimedOut   bool
}

// Stream is the event feed one monitoring session consumes. Closing must be
// idempotent and safe to call from the consumer loop.
type Stream interface {
	Events() <-chan []byte
	Errors() <-chan error
	Close()
}

// StreamOpener dials the deployment log stream for a hosted function.
type StreamOpener interface {
	OpenDeploymentLogs(ctx context.Context, functionId string) (Stream, error)
}

// StatusLookup is the fallback source of the pod name for streams that never
// emitted podInfo.
type StatusLookup interface {
	DeploymentStatus(ctx context.Context, functionId string) (*common.DeploymentStatusInfo, error)
}

// Reporter receives the state after every reduced event. Implementations
// must treat the state as read-only.
type Reporter interface {
	Report(state *State)
}

// Monitor consumes one deployment log stream, reduces it into a State and
// decides the terminal outcome: done marker, main container ready, main
// container crash, transport error or wall-clock timeout. Exactly one of
// those fires; the stream is closed before the outcome is produced so no
// further event is delivered afterwards.
type Monitor struct {
	opener   StreamOpener
	lookup   StatusLookup
	reporter Reporter
	timeout  time.Duration
}

func NewMonitor(opener StreamOpener) *Monitor {
	return &Monitor{
		opener:  opener,
		timeout: common.DeployTimeOut * time.Millisecond,
	}
}

func (m *Monitor) WithStatusLookup(lookup StatusLookup) *Monitor {
	m.lookup = lookup
	return m
}

func (m *Monitor) WithReporter(reporter Reporter) *Monitor {
	m.reporter = reporter
	return m
}

func (m *Monitor) WithTimeout(timeout time.Duration) *Monitor {
	m.timeout = timeout
	return m
}

// Run monitors the rollout of functionId until a terminal condition fires.
//
// With follow set the session stays on the stream after the main container
// became ready and resolves on the done marker; without it the first ready
// detection resolves immediately. A crash resolves immediately in both modes.
func (m *Monitor) Run(ctx context.Context, functionId string, follow bool) Outcome {
	state := NewState()
	stream, err := m.opener.OpenDeploymentLogs(ctx, functionId)
	if err != nil {
		zap.L().Sugar().Warnf("open deployment log stream for %s: %s", functionId, err)
		return Outcome{}
	}
	var closeOnce sync.Once
	closeStream := func() {
		closeOnce.Do(stream.Close)
	}
	// The stream stays open on every path out of the loop only until the
	// outcome is decided; closing first guarantees no late delivery.
	defer closeStream()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			closeStream()
			return m.finish(ctx, state, functionId, Outcome{})
		case <-timer.C:
			closeStream()
			zap.L().Sugar().Warnf("deployment of %s did not complete within %s", functionId, m.timeout)
			return m.finish(ctx, state, functionId, Outcome{TimedOut: true})
		case streamErr, ok := <-stream.Errors():
			closeStream()
			if ok && streamErr != nil {
				zap.L().Sugar().Warnf("deployment log stream for %s failed: %s", functionId, streamErr)
			}
			return m.finish(ctx, state, functionId, Outcome{})
		case data, ok := <-stream.Events():
			if !ok {
				// Feed ended without a done marker: transport failure.
				closeStream()
				return m.finish(ctx, state, functionId, Outcome{})
			}
			ev, parseErr := ParseEvent(data)
			if parseErr != nil {
				state.AddError(parseErr.Error())
				m.report(state)
				continue
			}
			state.Apply(ev)
			m.report(state)
			if outcome, terminal := m.decide(state, ev, follow, closeStream); terminal {
				return m.finish(ctx, state, functionId, outcome)
			}
		}
	}
}

// decide inspects the reduced state after one event. When a terminal
// condition holds it closes the stream first and returns the raw outcome.
func (m *Monitor) decide(state *State, ev Event, follow bool, closeStream func()) (Outcome, bool) {
	switch {
	case ev.Type == EventDone:
		closeStream()
		state.Complete = true
		return Outcome{Deployed: true, Stabilized: !state.Crashed}, true
	case state.Crashed:
		closeStream()
		return Outcome{Deployed: true, Stabilized: false}, true
	case state.Ready && !follow:
		closeStream()
		return Outcome{Deployed: true, Stabilized: true}, true
	}
	return Outcome{}, false
}

// finish fills the pod name in, falling back to a deployment status lookup
// when the stream never carried podInfo. Lookup failures are logged only.
func (m *Monitor) finish(ctx context.Context, state *State, functionId string, outcome Outcome) Outcome {
	outcome.PodName = state.PodName()
	if outcome.PodName == "" && outcome.Deployed && m.lookup != nil {
		status, err := m.lookup.DeploymentStatus(ctx, functionId)
		if err != nil {
			zap.L().Sugar().Warnf("deployment status lookup for %s: %s", functionId, err)
		} else if status != nil {
			outcome.PodName = status.PodName
		}
	}
	return outcome
}

func (m *Monitor) report(state *State) {
	if m.reporter == nil {
		return
	}
	m.reporter.Report(state)
}
