package api

import (
	"context"
	"net/url"

	"agenthub/common"
	"agenthub/deploy"
	"agenthub/sse"
)

// OpenDeploymentLogs subscribes to the deployment log stream of a hosted
// function. The returned stream re-resolves the bearer token on every
// underlying dial.
func (c *Client) OpenDeploymentLogs(ctx context.Context, functionId string) (deploy.Stream, error) {
	streamUrl := c.baseUrl + common.EndPointDeploymentLogs + "?hostedFunctionId=" + url.QueryEscape(functionId)
	return sse.Open(ctx, streamUrl, c.token)
}
