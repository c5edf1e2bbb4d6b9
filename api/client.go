// Package api is the REST client for the agenthub platform. All operations
// resolve a fresh bearer token per request, retry transient failures with
// exponential backoff and wrap errors with request context.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"agenthub/common"
	"agenthub/config"
	"agenthub/sse"
)

type Client struct {
	baseUrl    string
	token      sse.TokenFunc
	httpClient *http.Client
}

// NewClient builds a client from the active config. The token supplier just
// reads the configured token; callers with a refresh flow can replace it
// through WithTokenFunc.
func NewClient(clientConfig *config.Config) *Client {
	token := clientConfig.Token
	return &Client{
		baseUrl: clientConfig.BaseUrl,
		token: func(ctx context.Context) (string, error) {
			return token, nil
		},
		httpClient: &http.Client{Timeout: common.RequestTimeOut * time.Millisecond},
	}
}

func (c *Client) WithTokenFunc(token sse.TokenFunc) *Client {
	c.token = token
	return c
}

type CreateFunctionRequest struct {
	Name    string `json:"name"`
	Runtime string `json:"runtime"`
}

type QueryRequest struct {
	QueryId string `json:"queryId"`
	Prompt  string `json:"prompt"`
}

func (c *Client) CreateFunction(ctx context.Context, req CreateFunctionRequest) (*common.FunctionInfo, error) {
	var info common.FunctionInfo
	if err := c.do(ctx, http.MethodPost, common.EndPointFunctions, req, &info); err != nil {
		return nil, errors.Wrap(err, "create function")
	}
	return &info, nil
}

func (c *Client) GetFunction(ctx context.Context, functionId string) (*common.FunctionInfo, error) {
	var info common.FunctionInfo
	if err := c.do(ctx, http.MethodGet, common.EndPointFunctions+"/"+functionId, nil, &info); err != nil {
		return nil, errors.Wrapf(err, "get function %s", functionId)
	}
	return &info, nil
}

func (c *Client) ListFunctions(ctx context.Context) ([]common.FunctionInfo, error) {
	var infos []common.FunctionInfo
	if err := c.do(ctx, http.MethodGet, common.EndPointFunctions, nil, &infos); err != nil {
		return nil, errors.Wrap(err, "list functions")
	}
	return infos, nil
}

func (c *Client) DeleteFunction(ctx context.Context, functionId string) error {
	if err := c.do(ctx, http.MethodDelete, common.EndPointFunctions+"/"+functionId, nil, nil); err != nil {
		return errors.Wrapf(err, "delete function %s", functionId)
	}
	return nil
}

func (c *Client) StartFunction(ctx context.Context, functionId string) error {
	path := common.EndPointFunctions + "/" + functionId + common.EndPointFunctionStart
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return errors.Wrapf(err, "start function %s", functionId)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) ([]common.ToolInfo, error) {
	var infos []common.ToolInfo
	if err := c.do(ctx, http.MethodGet, common.EndPointTools, nil, &infos); err != nil {
		return nil, errors.Wrap(err, "list tools")
	}
	return infos, nil
}

// Query invokes an agent query and waits for the answer.
func (c *Client) Query(ctx context.Context, agentId string, req QueryRequest) (*common.QueryResultInfo, error) {
	var result common.QueryResultInfo
	path := "/agents/" + agentId + common.EndPointQueries
	if err := c.do(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, errors.Wrapf(err, "query agent %s", agentId)
	}
	return &result, nil
}

// DeploymentStatus is the fallback source of the pod name when the log
// stream never emitted podInfo.
func (c *Client) DeploymentStatus(ctx context.Context, functionId string) (*common.DeploymentStatusInfo, error) {
	var status common.DeploymentStatusInfo
	path := common.EndPointDeploymentStatus + "?hostedFunctionId=" + url.QueryEscape(functionId)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, errors.Wrapf(err, "deployment status of %s", functionId)
	}
	return &status, nil
}

func (c *Client) PodLogs(ctx context.Context, podName string) (*common.PodLogsInfo, error) {
	var logs common.PodLogsInfo
	path := common.EndPointPodLogs + "?pod=" + url.QueryEscape(podName)
	if err := c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, errors.Wrapf(err, "logs of pod %s", podName)
	}
	return &logs, nil
}

// UploadPackage sends a zipped function package as multipart form data.
func (c *Client) UploadPackage(ctx context.Context, functionId string, fileName string, archive []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("package", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(archive); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	path := common.EndPointFunctions + "/" + functionId + common.EndPointFunctionUpload
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := c.send(req, nil); err != nil {
		return errors.Wrapf(err, "upload package for %s", functionId)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, body)
	if err != nil {
		return nil, err
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolve token")
	}
	req.Header.Set(common.HeaderAuthorization, common.BearerPrefix+token)
	return req, nil
}

func (c *Client) do(ctx context.Context, method string, path string, in interface{}, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}
	operation := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		err = c.send(req, out)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (c *Client) send(req *http.Request, out interface{}) error {
	zap.L().Sugar().Debugf("%s %s", req.Method, req.URL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return &transientError{err: errors.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(message))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// transientError marks failures worth retrying: connection problems and 5xx.
type transientError struct {
	err error
}

func (t *transientError) Error() string {
	return t.err.Error()
}

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}
