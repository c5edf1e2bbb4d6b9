package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func tokenSequence() (TokenFunc, *int32) {
	var counter int32
	return func(ctx context.Context) (string, error) {
		n := atomic.AddInt32(&counter, 1)
		return fmt.Sprintf("token-%d", n), nil
	}, &counter
}

func writeEvent(w http.ResponseWriter, id string, data string) {
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.(http.Flusher).Flush()
}

func Test_StreamDeliversEventsInOrder(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, "1", `{"type":"podInfo"}`)
		writeEvent(w, "2", `{"type":"done"}`)
		<-r.Context().Done()
	}))
	defer server.Close()

	token, _ := tokenSequence()
	stream, err := Open(context.Background(), server.URL, token)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	first := <-stream.Events()
	second := <-stream.Events()
	if string(first) != `{"type":"podInfo"}` || string(second) != `{"type":"done"}` {
		t.Fatalf("unexpected payloads: %q, %q", first, second)
	}
	if authHeader != "Bearer token-1" {
		t.Fatalf("unexpected auth header: %q", authHeader)
	}
}

func Test_StreamReconnectsWithFreshToken(t *testing.T) {
	var mu sync.Mutex
	var tokens []string
	var connections int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tokens = append(tokens, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		n := atomic.AddInt32(&connections, 1)
		if n == 1 {
			writeEvent(w, "1", `{"type":"podInfo"}`)
			return // drop the connection, the client should re-dial
		}
		writeEvent(w, "2", `{"type":"done"}`)
		<-r.Context().Done()
	}))
	defer server.Close()

	token, _ := tokenSequence()
	stream, err := Open(context.Background(), server.URL, token)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	<-stream.Events()
	select {
	case payload := <-stream.Events():
		if string(payload) != `{"type":"done"}` {
			t.Fatalf("unexpected payload after reconnect: %q", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event after reconnect")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(tokens) < 2 {
		t.Fatalf("expected a reconnect, saw %d connections", len(tokens))
	}
	if tokens[0] == tokens[1] {
		t.Fatalf("reconnect reused the old token: %q", tokens[1])
	}
}

func Test_StreamOpenFailsFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	token, _ := tokenSequence()
	if _, err := Open(context.Background(), server.URL, token); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func Test_StreamCloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, "1", `{"type":"podInfo"}`)
		<-r.Context().Done()
	}))
	defer server.Close()

	token, _ := tokenSequence()
	stream, err := Open(context.Background(), server.URL, token)
	if err != nil {
		t.Fatal(err)
	}
	<-stream.Events()
	stream.Close()
	stream.Close()
	// the events channel drains and closes after teardown
	for range stream.Events() {
	}
}
