// Package localrun smoke-tests a function package on the local Docker
// daemon before it is deployed: the runtime image is started with the
// package mounted in, polled for readiness and its output streamed back.
package localrun

import (
	"context"
	"io"
	"io/ioutil"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/containerd/containerd/platforms"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const LabelFunctionName = "AgenthubFunction"
const LabelRunSession = "AgenthubRunSession"

type Provider struct {
	client *client.Client
}

// NewProvider creates a provider from the environment Docker client.
func NewProvider() (*Provider, error) {
	c, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		return nil, err
	}
	if _, err = c.Ping(context.TODO()); err != nil {
		return nil, err
	}
	c.NegotiateAPIVersion(context.Background())
	return &Provider{client: c}, nil
}

type RunRequest struct {
	FunctionName string
	SessionId    string
	Image        string
	Platform     string
	Env          map[string]string
	Cmd          []string
	ExposedPort  int
	PackagePath  string
	MountPath    string
}

// RunContainer pulls the runtime image if needed, creates the container and
// starts it.
func (p *Provider) RunContainer(ctx context.Context, req RunRequest) (*RunningContainer, error) {
	var platform *specs.Platform
	if req.Platform != "" {
		parsed, err := platforms.Parse(req.Platform)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid platform %s", req.Platform)
		}
		platform = &parsed
	}
	if err := p.attemptToPullImage(ctx, req.Image, types.ImagePullOptions{Platform: req.Platform}); err != nil {
		return nil, errors.Wrapf(err, "pull image %s", req.Image)
	}
	env := make([]string, 0, len(req.Env))
	for k, v := range req.Env {
		env = append(env, k+"="+v)
	}
	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}
	if req.ExposedPort > 0 {
		port, err := nat.NewPort("tcp", strconv.Itoa(req.ExposedPort))
		if err != nil {
			return nil, err
		}
		exposedPorts[port] = struct{}{}
		portBindings[port] = []nat.PortBinding{{HostIP: "127.0.0.1"}}
	}
	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
		AutoRemove:   false,
	}
	if req.PackagePath != "" {
		hostConfig.Binds = []string{req.PackagePath + ":" + req.MountPath + ":ro"}
	}
	resp, err := p.client.ContainerCreate(ctx,
		&container.Config{
			Image:        req.Image,
			Env:          env,
			Cmd:          req.Cmd,
			ExposedPorts: exposedPorts,
			Labels: map[string]string{
				LabelFunctionName: req.FunctionName,
				LabelRunSession:   req.SessionId,
			},
		},
		hostConfig, &network.NetworkingConfig{}, platform, "")
	if err != nil {
		return nil, errors.Wrap(err, "create container")
	}
	if err := p.client.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return nil, errors.Wrap(err, "start container")
	}
	return &RunningContainer{id: resp.ID, provider: p, port: req.ExposedPort}, nil
}

// attemptToPullImage retries transient pull failures; a missing image is
// permanent and aborts immediately.
func (p *Provider) attemptToPullImage(ctx context.Context, tag string, pullOpt types.ImagePullOptions) error {
	var (
		err  error
		pull io.ReadCloser
	)
	err = backoff.Retry(func() error {
		pull, err = p.client.ImagePull(ctx, tag, pullOpt)
		if err != nil {
			if _, ok := err.(errdefs.ErrNotFound); ok {
				return backoff.Permanent(err)
			}
			zap.L().Sugar().Debugf("failed to pull image %s: %s, will retry", tag, err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.NewExponentialBackOff(), ctx))
	if err != nil {
		return err
	}
	defer pull.Close()

	// pull completes at EOF of the response stream
	_, err = ioutil.ReadAll(pull)
	return err
}

func (p *Provider) RemoveContainer(ctx context.Context, id string) error {
	return p.client.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true, RemoveVolumes: true})
}
