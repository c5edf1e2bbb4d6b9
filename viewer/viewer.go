// Package viewer serves the live state of a monitoring session over HTTP so
// a browser client can subscribe instead of polling the CLI output. It sits
// on the event bus; the monitor itself knows nothing about it.
package viewer

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agenthub/event"
)

type Server struct {
	mu     sync.Mutex
	latest string
	subs   map[chan string]struct{}
}

func NewServer() (*Server, error) {
	s := &Server{
		subs: make(map[chan string]struct{}),
	}
	if err := event.Bus.Subscribe(event.Deployment, s.onEvent); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) onEvent(eventJson string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = eventJson
	for sub := range s.subs {
		select {
		case sub <- eventJson:
		default:
			// slow subscriber keeps only the next update
		}
	}
}

func (s *Server) subscribe() chan string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := make(chan string, 8)
	if s.latest != "" {
		sub <- s.latest
	}
	s.subs[sub] = struct{}{}
	return sub
}

func (s *Server) unsubscribe(sub chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

func (s *Server) GetRoute() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))
	router.GET("/state", func(c *gin.Context) {
		s.mu.Lock()
		latest := s.latest
		s.mu.Unlock()
		if latest == "" {
			c.Status(http.StatusNoContent)
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(latest))
	})
	router.GET("/events", func(c *gin.Context) {
		sub := s.subscribe()
		defer s.unsubscribe(sub)
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Stream(func(w io.Writer) bool {
			select {
			case eventJson, ok := <-sub:
				if !ok {
					return false
				}
				c.SSEvent("message", eventJson)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	})
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.GetRoute(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
