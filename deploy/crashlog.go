package deploy

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"agenthub/common"
)

// LogSource fetches the collected stdout/stderr of a pod.
type LogSource interface {
	PodLogs(ctx context.Context, podName string) (*common.PodLogsInfo, error)
}

var errLogsNotReady = errors.New("crash logs not yet available")

// CrashLogFetcher polls for the logs of a crashed pod. Log collection is
// asynchronous on the platform side, so an empty stdout right after a crash
// usually means the logs have not propagated yet.
type CrashLogFetcher struct {
	source     LogSource
	maxRetries uint64
	interval   time.Duration
}

func NewCrashLogFetcher(source LogSource) *CrashLogFetcher {
	return &CrashLogFetcher{
		source:     source,
		maxRetries: common.CrashLogMaxRetries,
		interval:   common.CrashLogPollInterval * time.Millisecond,
	}
}

func (f *CrashLogFetcher) WithMaxRetries(maxRetries uint64) *CrashLogFetcher {
	f.maxRetries = maxRetries
	return f
}

func (f *CrashLogFetcher) WithInterval(interval time.Duration) *CrashLogFetcher {
	f.interval = interval
	return f
}

// Fetch polls until stdout is non-empty or the attempts run out, with a
// constant delay between attempts. Exhausting the attempts returns whatever
// was last observed, possibly both streams empty. An API error aborts the
// loop and returns nil; it is logged, never propagated.
func (f *CrashLogFetcher) Fetch(ctx context.Context, podName string) *CrashLogs {
	var last *common.PodLogsInfo
	operation := func() error {
		logs, err := f.source.PodLogs(ctx, podName)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = logs
		if logs.Stdout == "" {
			return errLogsNotReady
		}
		return nil
	}
	// maxRetries-1 retries after the first try keeps the total attempt
	// count at maxRetries.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.interval), f.maxRetries-1), ctx)
	err := backoff.Retry(operation, policy)
	if err != nil && err != errLogsNotReady {
		zap.L().Sugar().Warnf("fetch crash logs of pod %s: %s", podName, err)
		return nil
	}
	if last == nil {
		return nil
	}
	return &CrashLogs{Stdout: last.Stdout, Stderr: last.Stderr}
}
