package localrun

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/pkg/errors"
)

// Log carries one demultiplexed output chunk.
type Log struct {
	LogType string
	Content []byte
}

const StdoutLog = "STDOUT"
const StderrLog = "STDERR"

// LogConsumer receives the output of a running container.
type LogConsumer interface {
	Accept(Log)
}

type RunningContainer struct {
	id           string
	provider     *Provider
	port         int
	consumer     LogConsumer
	stopProducer chan bool
}

func (c *RunningContainer) Id() string {
	return c.id
}

func (c *RunningContainer) State(ctx context.Context) (*types.ContainerState, error) {
	inspect, err := c.provider.client.ContainerInspect(ctx, c.id)
	if err != nil {
		return nil, err
	}
	return inspect.State, nil
}

// MappedPort returns the host port bound to the exposed container port.
func (c *RunningContainer) MappedPort(ctx context.Context) (int, error) {
	inspect, err := c.provider.client.ContainerInspect(ctx, c.id)
	if err != nil {
		return 0, err
	}
	for port, bindings := range inspect.NetworkSettings.Ports {
		if port.Int() != c.port || len(bindings) == 0 {
			continue
		}
		hostPort, err := strconv.Atoi(bindings[0].HostPort)
		if err != nil {
			return 0, err
		}
		return hostPort, nil
	}
	return 0, errors.Errorf("port %d of container %s is not bound", c.port, c.id)
}

// WaitReady polls the given HTTP path on the mapped port until it answers
// with a 2xx, the container dies, or the timeout elapses.
func (c *RunningContainer) WaitReady(ctx context.Context, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	httpClient := http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			state, err := c.State(ctx)
			if err != nil {
				return err
			}
			if !state.Running {
				return errors.Errorf("container %s exited with code %d before becoming ready", c.id, state.ExitCode)
			}
			hostPort, err := c.MappedPort(ctx)
			if err != nil {
				continue
			}
			address := net.JoinHostPort("127.0.0.1", strconv.Itoa(hostPort))
			resp, err := httpClient.Get(fmt.Sprintf("http://%s%s", address, path))
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}
	}
}

func (c *RunningContainer) FollowOutput(consumer LogConsumer) {
	c.consumer = consumer
}

// StartLogProducer reads the multiplexed docker log stream, with the 8-byte
// frame header carrying stream type and length, and forwards each chunk to
// the consumer.
func (c *RunningContainer) StartLogProducer(ctx context.Context) error {
	if c.consumer == nil {
		return errors.New("no log consumer attached")
	}
	c.stopProducer = make(chan bool)
	options := types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	}
	reader, err := c.provider.client.ContainerLogs(ctx, c.id, options)
	if err != nil {
		return err
	}
	go func() {
		defer reader.Close()
		header := make([]byte, 8)
		for {
			select {
			case <-c.stopProducer:
				return
			default:
				if _, err := io.ReadFull(reader, header); err != nil {
					return
				}
				count := binary.BigEndian.Uint32(header[4:])
				if count == 0 {
					continue
				}
				logType := StdoutLog
				if header[0] == 2 {
					logType = StderrLog
				}
				content := make([]byte, count)
				if _, err := io.ReadFull(reader, content); err != nil {
					return
				}
				c.consumer.Accept(Log{LogType: logType, Content: content})
			}
		}
	}()
	return nil
}

func (c *RunningContainer) StopLogProducer() {
	if c.stopProducer != nil {
		close(c.stopProducer)
		c.stopProducer = nil
	}
}

func (c *RunningContainer) Terminate(ctx context.Context) error {
	c.StopLogProducer()
	return c.provider.RemoveContainer(ctx, c.id)
}
