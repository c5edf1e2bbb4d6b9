package event

import (
	"context"

	"agenthub/deploy"
)

// SnapshotPublisher forwards every reduced deployment state onto the bus so
// subscription-based consumers (the local viewer) can follow along. It
// implements deploy.Reporter.
type SnapshotPublisher struct {
	FunctionId string
}

func (p *SnapshotPublisher) Report(state *deploy.State) {
	snapshot := state.Snapshot()
	Publish(context.Background(), &DeploymentEventData{
		TracingData: TracingData{
			FunctionId: p.FunctionId,
			PodName:    snapshot.PodName,
		},
		Type:     DeploymentEventSnapshotType,
		Snapshot: snapshot,
	})
}
