package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"agenthub/common"
	"agenthub/config"
)

func testClient(serverUrl string) *Client {
	return NewClient(&config.Config{BaseUrl: serverUrl, Token: "secret"})
}

func Test_ListFunctions(t *testing.T) {
	convey.Convey("list functions sends a bearer token and decodes the response", t, func() {
		var authHeader string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode([]common.FunctionInfo{
				{Id: "fn-1", Name: "summarize", Runtime: "python3.12", Status: "running"},
			})
		}))
		defer server.Close()

		infos, err := testClient(server.URL).ListFunctions(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(infos), convey.ShouldEqual, 1)
		convey.So(infos[0].Id, convey.ShouldEqual, "fn-1")
		convey.So(authHeader, convey.ShouldEqual, "Bearer secret")
	})
}

func Test_TransientRetries(t *testing.T) {
	convey.Convey("5xx responses are retried until the backend recovers", t, func() {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(common.DeploymentStatusInfo{PodName: "pod-1", Phase: "Running"})
		}))
		defer server.Close()

		status, err := testClient(server.URL).DeploymentStatus(context.Background(), "fn-1")
		convey.So(err, convey.ShouldBeNil)
		convey.So(status.PodName, convey.ShouldEqual, "pod-1")
		convey.So(atomic.LoadInt32(&calls), convey.ShouldEqual, 3)
	})
	convey.Convey("4xx responses fail without retrying", t, func() {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"no such function"}`)
		}))
		defer server.Close()

		_, err := testClient(server.URL).GetFunction(context.Background(), "fn-404")
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "status 404")
		convey.So(atomic.LoadInt32(&calls), convey.ShouldEqual, 1)
	})
}

func Test_UploadPackage(t *testing.T) {
	convey.Convey("the package reaches the server as a multipart file", t, func() {
		var fileName string
		var content []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, common.EndPointFunctionUpload) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			file, header, err := r.FormFile("package")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			fileName = header.Filename
			content, _ = io.ReadAll(file)
		}))
		defer server.Close()

		err := testClient(server.URL).UploadPackage(context.Background(), "fn-1", "bundle.zip", []byte("zipbytes"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(fileName, convey.ShouldEqual, "bundle.zip")
		convey.So(string(content), convey.ShouldEqual, "zipbytes")
	})
}

func Test_PodLogsQuery(t *testing.T) {
	convey.Convey("pod logs are requested by pod name", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("pod") != "pod-1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(common.PodLogsInfo{PodName: "pod-1", Stdout: "hello"})
		}))
		defer server.Close()

		logs, err := testClient(server.URL).PodLogs(context.Background(), "pod-1")
		convey.So(err, convey.ShouldBeNil)
		convey.So(logs.Stdout, convey.ShouldEqual, "hello")
	})
}
