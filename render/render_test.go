package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"agenthub/common"
	"agenthub/deploy"
)

func rolloutState() *deploy.State {
	state := deploy.NewState()
	exitCode := 1
	state.Apply(deploy.Event{
		Type:           deploy.EventPodInfo,
		Pod:            "pod-1",
		InitContainers: []string{"download"},
		Containers:     []string{"main"},
	})
	state.Apply(deploy.Event{Type: deploy.EventInitContainerTerminated, Name: "download", ExitCode: &exitCode, Reason: "OOMKilled"})
	return state
}

func Test_DeploymentTable(t *testing.T) {
	var out bytes.Buffer
	renderer := NewRenderer(Options{Format: FormatTable, Out: &out})
	if err := renderer.Deployment(rolloutState()); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"pod: pod-1", "download", "failed", "OOMKilled", "main", "pending"} {
		if !strings.Contains(text, want) {
			t.Fatalf("table output missing %q:\n%s", want, text)
		}
	}
}

func Test_DeploymentJson(t *testing.T) {
	var out bytes.Buffer
	renderer := NewRenderer(Options{Format: FormatJson, Out: &out})
	if err := renderer.Deployment(rolloutState()); err != nil {
		t.Fatal(err)
	}
	var snapshot deploy.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.PodName != "pod-1" || len(snapshot.Containers) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func Test_FunctionsTable(t *testing.T) {
	var out bytes.Buffer
	renderer := NewRenderer(Options{Format: FormatTable, Out: &out})
	err := renderer.Functions([]common.FunctionInfo{
		{Id: "fn-1", Name: "summarize", Runtime: "python3.12", Status: "running"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "summarize") {
		t.Fatalf("missing function row:\n%s", out.String())
	}
}

func Test_UnknownFormat(t *testing.T) {
	var out bytes.Buffer
	renderer := NewRenderer(Options{Format: "xml", Out: &out})
	if err := renderer.Deployment(rolloutState()); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}
