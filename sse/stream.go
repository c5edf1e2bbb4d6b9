// Package sse implements the client half of a server-sent-event feed. One
// Stream owns one logical subscription; the underlying connection may be
// re-dialed a few times before a transport failure is surfaced.
package sse

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"agenthub/common"
)

// TokenFunc returns a fresh bearer token for one outgoing request. It is
// consulted on every dial, including reconnects, so a caller-side token
// refresh is picked up without reopening the stream.
type TokenFunc func(ctx context.Context) (string, error)

type Stream struct {
	url         string
	token       TokenFunc
	httpClient  *http.Client
	events      chan []byte
	errs        chan error
	cancel      context.CancelFunc
	closeOnce   sync.Once
	lastEventId string
}

// Open dials url and starts delivering event payloads. The first connection
// is established synchronously so a bad endpoint fails fast.
func Open(ctx context.Context, url string, token TokenFunc) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		url:        url,
		token:      token,
		httpClient: &http.Client{},
		events:     make(chan []byte, 16),
		errs:       make(chan error, 1),
		cancel:     cancel,
	}
	resp, err := s.dial(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	go s.consume(ctx, resp)
	return s, nil
}

// Events delivers the data payload of each event in server-emission order.
// The channel is closed after a transport failure or Close.
func (s *Stream) Events() <-chan []byte {
	return s.events
}

// Errors carries at most one transport-level failure.
func (s *Stream) Errors() <-chan error {
	return s.errs
}

// Close tears the connection down. It is idempotent and safe to call from
// the goroutine consuming Events.
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

func (s *Stream) dial(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build stream request")
	}
	token, err := s.token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolve stream token")
	}
	req.Header.Set(common.HeaderAuthorization, common.BearerPrefix+token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.lastEventId != "" {
		req.Header.Set("Last-Event-ID", s.lastEventId)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "connect event stream")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("event stream returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// consume reads frames until the connection drops, then re-dials with a
// fresh token before giving up and reporting the failure.
func (s *Stream) consume(ctx context.Context, resp *http.Response) {
	defer close(s.events)
	for {
		readErr := s.read(ctx, resp)
		resp.Body.Close()
		if ctx.Err() != nil {
			return
		}
		zap.L().Sugar().Debugf("event stream dropped: %s, reconnecting", readErr)
		var err error
		resp, err = s.redial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.errs <- errors.Wrap(err, "event stream gave up reconnecting")
			}
			return
		}
	}
}

func (s *Stream) redial(ctx context.Context) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = s.dial(ctx)
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), common.StreamReconnectMaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

// read parses the text/event-stream framing: "data:", "id:" and comment
// lines, with a blank line dispatching the pending event.
func (s *Stream) read(ctx context.Context, resp *http.Response) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				payload := []byte(data.String())
				data.Reset()
				select {
				case s.events <- payload:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			s.lastEventId = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		default:
			// event name, retry and comment lines carry no payload for this feed
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("event stream closed by server")
}
