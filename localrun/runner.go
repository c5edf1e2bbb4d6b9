package localrun

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agenthub/pack"
)

const packageMountPath = "/opt/function"

var runtimeImages = map[string]string{
	"python3.11": "agenthub/runtime-python:3.11",
	"python3.12": "agenthub/runtime-python:3.12",
	"node20":     "agenthub/runtime-node:20",
	"node22":     "agenthub/runtime-node:22",
}

type Runner struct {
	provider *Provider
}

func NewRunner() (*Runner, error) {
	provider, err := NewProvider()
	if err != nil {
		return nil, err
	}
	return &Runner{provider: provider}, nil
}

// Run starts the function package at dir in its runtime image, waits for it
// to become ready and streams its output to consumer until ctx is done. The
// container is removed on the way out.
func (r *Runner) Run(ctx context.Context, dir string, consumer LogConsumer) error {
	manifest, err := pack.LoadManifest(dir)
	if err != nil {
		return err
	}
	image := manifest.Image
	if image == "" {
		image = runtimeImages[manifest.Runtime]
	}
	if image == "" {
		image = "agenthub/runtime-" + manifest.Runtime
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	running, err := r.provider.RunContainer(ctx, RunRequest{
		FunctionName: manifest.Name,
		SessionId:    uuid.New().String(),
		Image:        image,
		Env:          manifest.Env,
		ExposedPort:  manifest.Port,
		PackagePath:  absDir,
		MountPath:    packageMountPath,
	})
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := running.Terminate(cleanupCtx); err != nil {
			zap.L().Sugar().Warnf("remove local run container %s: %s", running.Id(), err)
		}
	}()
	running.FollowOutput(consumer)
	if err := running.StartLogProducer(ctx); err != nil {
		return err
	}
	if manifest.Port > 0 {
		if err := running.WaitReady(ctx, "/health", time.Minute); err != nil {
			return err
		}
		zap.L().Sugar().Infof("function %s is serving on its mapped port", manifest.Name)
	}
	<-ctx.Done()
	return nil
}
