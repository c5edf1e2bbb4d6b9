package event

import (
	"encoding/json"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
	"golang.org/x/net/context"

	"agenthub/deploy"
)

var Bus = EventBus.New()

const Deployment string = "deployment"
const DeploymentEventSnapshotType = "deployment_event_snapshot_type"
const DeploymentEventOutcomeType = "deployment_event_outcome_type"

type TracingData struct {
	FunctionId string
	PodName    string
}

func (t *TracingData) MergeTracingData(data TracingData) {
	if data.FunctionId != "" {
		t.FunctionId = data.FunctionId
	}
	if data.PodName != "" {
		t.PodName = data.PodName
	}
}

func Publish(ctx context.Context, event Event) {
	if Bus == nil {
		return
	}
	data, ok := ctx.Value("eventTracingData").(TracingData)
	if ok {
		event.MergeTracingData(data)
	}
	event.SetEventTime(time.Now())
	eventJson := event.ToJson()
	Bus.Publish(event.Topic(), eventJson)
	zap.L().Sugar().Debug(eventJson)
}

type Event interface {
	SetEventTime(eventTime time.Time)
	MergeTracingData(tracingData TracingData)
	ToJson() string
	Topic() string
}

type DeploymentEventData struct {
	TracingData
	Type      string
	EventTime time.Time
	Snapshot  deploy.Snapshot
}

func (d *DeploymentEventData) SetEventTime(eventTime time.Time) {
	d.EventTime = eventTime
}

func (d *DeploymentEventData) ToJson() string {
	jsonByte, _ := json.Marshal(d)
	return string(jsonByte)
}

func (d *DeploymentEventData) Topic() string {
	return Deployment
}
