package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agenthub/api"
	"agenthub/common"
	"agenthub/config"
	"agenthub/deploy"
	"agenthub/event"
	"agenthub/pack"
	"agenthub/render"
	"agenthub/viewer"
)

// ClientCmd backs every CLI command that talks to the platform.
type ClientCmd struct {
	client   *api.Client
	renderer *render.Renderer
}

func NewClientCmd(clientConfig *config.Config, format render.Format) *ClientCmd {
	return &ClientCmd{
		client: api.NewClient(clientConfig),
		renderer: render.NewRenderer(render.Options{
			Format:      format,
			Interactive: format == render.FormatTable || format == "",
			Out:         os.Stdout,
		}),
	}
}

func (c *ClientCmd) ListFunctions() error {
	infos, err := c.client.ListFunctions(context.Background())
	if err != nil {
		return err
	}
	return c.renderer.Functions(infos)
}

func (c *ClientCmd) CreateFunction(name string, runtime string) error {
	info, err := c.client.CreateFunction(context.Background(), api.CreateFunctionRequest{
		Name:    name,
		Runtime: runtime,
	})
	if err != nil {
		return err
	}
	zap.L().Sugar().Infof("created function %s with id %s", info.Name, info.Id)
	fmt.Println(info.Id)
	return nil
}

func (c *ClientCmd) DeleteFunction(functionId string) error {
	return c.client.DeleteFunction(context.Background(), functionId)
}

func (c *ClientCmd) StartFunction(functionId string) error {
	return c.client.StartFunction(context.Background(), functionId)
}

func (c *ClientCmd) Tools() error {
	infos, err := c.client.ListTools(context.Background())
	if err != nil {
		return err
	}
	return c.renderer.Tools(infos)
}

func (c *ClientCmd) Query(agentId string, prompt string) error {
	result, err := c.client.Query(context.Background(), agentId, api.QueryRequest{
		QueryId: uuid.New().String(),
		Prompt:  prompt,
	})
	if err != nil {
		return err
	}
	fmt.Println(result.Answer)
	return nil
}

// Deploy packages dir, uploads it, restarts the function and monitors the
// rollout. The process exit code reflects the outcome, never a panic.
func (c *ClientCmd) Deploy(functionId string, dir string, follow bool) int {
	ctx := context.Background()
	if _, err := pack.LoadManifest(dir); err != nil {
		zap.L().Sugar().Error(err)
		return 1
	}
	archive, err := pack.Archive(dir)
	if err != nil {
		zap.L().Sugar().Error(err)
		return 1
	}
	fileName := filepath.Base(dir) + ".zip"
	if err := c.client.UploadPackage(ctx, functionId, fileName, archive); err != nil {
		zap.L().Sugar().Error(err)
		return 1
	}
	if err := c.client.StartFunction(ctx, functionId); err != nil {
		zap.L().Sugar().Error(err)
		return 1
	}
	return c.monitor(ctx, functionId, follow, nil)
}

// Logs monitors a rollout that is already underway. With serve set the live
// state is also published on a local HTTP port for browser clients.
func (c *ClientCmd) Logs(functionId string, follow bool, serve bool) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var extra deploy.Reporter
	if serve {
		extra = &event.SnapshotPublisher{FunctionId: functionId}
		server, err := viewer.NewServer()
		if err != nil {
			zap.L().Sugar().Error(err)
			return 1
		}
		go func() {
			if err := server.Run(ctx, ":"+common.ViewerPort); err != nil {
				zap.L().Sugar().Warnf("viewer server: %s", err)
			}
		}()
		zap.L().Sugar().Infof("serving live deployment state on :%s", common.ViewerPort)
	}
	return c.monitor(ctx, functionId, follow, extra)
}

func (c *ClientCmd) monitor(ctx context.Context, functionId string, follow bool, extra deploy.Reporter) int {
	capture := &stateCapture{}
	reporter := multiReporter{c.renderer, capture}
	if extra != nil {
		reporter = append(reporter, extra)
	}
	monitor := deploy.NewMonitor(c.client).
		WithStatusLookup(c.client).
		WithReporter(reporter)
	outcome := monitor.Run(ctx, functionId, follow)
	if capture.last != nil {
		if err := c.renderer.Deployment(capture.last); err != nil {
			zap.L().Sugar().Warn(err)
		}
	}
	switch {
	case outcome.Stabilized:
		zap.L().Sugar().Infof("function %s deployed and stabilized", functionId)
		return 0
	case outcome.Deployed && outcome.PodName != "":
		zap.L().Sugar().Warnf("function %s crashed during rollout, fetching crash logs", functionId)
		logs := deploy.NewCrashLogFetcher(c.client).Fetch(ctx, outcome.PodName)
		if err := c.renderer.CrashLogs(logs); err != nil {
			zap.L().Sugar().Warn(err)
		}
		return 1
	case outcome.TimedOut:
		zap.L().Sugar().Errorf("deployment of %s timed out", functionId)
		return 1
	default:
		zap.L().Sugar().Errorf("deployment of %s failed before reaching a terminal state", functionId)
		return 1
	}
}

// stateCapture keeps the latest reduced state so the final outcome can be
// rendered after the monitor resolves.
type stateCapture struct {
	last *deploy.State
}

func (s *stateCapture) Report(state *deploy.State) {
	s.last = state
}

// multiReporter fans one state out to several reporters in order.
type multiReporter []deploy.Reporter

func (m multiReporter) Report(state *deploy.State) {
	for _, reporter := range m {
		reporter.Report(state)
	}
}
