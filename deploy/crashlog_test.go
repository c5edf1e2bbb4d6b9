package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/smartystreets/goconvey/convey"

	"agenthub/common"
)

type fakeLogSource struct {
	attempts    int
	availableAt int
	stdout      string
	stderr      string
	err         error
}

func (f *fakeLogSource) PodLogs(ctx context.Context, podName string) (*common.PodLogsInfo, error) {
	f.attempts++
	if f.err != nil {
		return nil, f.err
	}
	logs := &common.PodLogsInfo{PodName: podName}
	if f.availableAt > 0 && f.attempts >= f.availableAt {
		logs.Stdout = f.stdout
		logs.Stderr = f.stderr
	}
	return logs, nil
}

func Test_CrashLogFetcher(t *testing.T) {
	convey.Convey("logs that appear on a later attempt are returned then", t, func() {
		source := &fakeLogSource{availableAt: 10, stdout: "boom", stderr: "trace"}
		fetcher := NewCrashLogFetcher(source).WithInterval(time.Millisecond)
		logs := fetcher.Fetch(context.Background(), "pod-1")
		convey.So(logs, convey.ShouldNotBeNil)
		convey.So(logs.Stdout, convey.ShouldEqual, "boom")
		convey.So(logs.Stderr, convey.ShouldEqual, "trace")
		convey.So(source.attempts, convey.ShouldEqual, 10)
	})
	convey.Convey("permanently empty logs exhaust the attempts and return what was seen", t, func() {
		source := &fakeLogSource{}
		fetcher := NewCrashLogFetcher(source).WithInterval(time.Millisecond).WithMaxRetries(5)
		logs := fetcher.Fetch(context.Background(), "pod-1")
		convey.So(logs, convey.ShouldNotBeNil)
		convey.So(logs.Stdout, convey.ShouldEqual, "")
		convey.So(logs.Stderr, convey.ShouldEqual, "")
		convey.So(source.attempts, convey.ShouldEqual, 5)
	})
	convey.Convey("an API error aborts the loop and yields nil", t, func() {
		source := &fakeLogSource{err: errors.New("boom")}
		fetcher := NewCrashLogFetcher(source).WithInterval(time.Millisecond)
		logs := fetcher.Fetch(context.Background(), "pod-1")
		convey.So(logs, convey.ShouldBeNil)
		convey.So(source.attempts, convey.ShouldEqual, 1)
	})
}
