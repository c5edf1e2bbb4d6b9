package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agenthub/deploy"
	"agenthub/event"
)

func Test_StateEndpoint(t *testing.T) {
	server, err := NewServer()
	if err != nil {
		t.Fatal(err)
	}
	router := server.GetRoute()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/state", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 before any snapshot, got %d", recorder.Code)
	}

	state := deploy.NewState()
	state.Apply(deploy.Event{
		Type:       deploy.EventPodInfo,
		Pod:        "pod-1",
		Containers: []string{"main"},
	})
	publisher := &event.SnapshotPublisher{FunctionId: "fn-1"}
	publisher.Report(state)

	deadline := time.Now().Add(time.Second)
	for {
		recorder = httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/state", nil))
		if recorder.Code == http.StatusOK || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if recorder.Code != http.StatusOK {
		t.Fatalf("snapshot never reached the viewer, last status %d", recorder.Code)
	}
	var data event.DeploymentEventData
	if err := json.Unmarshal(recorder.Body.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.FunctionId != "fn-1" || data.Snapshot.PodName != "pod-1" {
		t.Fatalf("unexpected event payload: %+v", data)
	}
}

func Test_RunShutsDownOnCancel(t *testing.T) {
	server, err := NewServer()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, "127.0.0.1:0")
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
