package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qitrader/internal/core"
	resthttp "qitrader/pkg/http"
)

const defaultBaseURL = "https://www.okx.com"

// RestClient issues signed requests against the OKX v5 REST API and decodes
// the {code, msg, data[]} envelope into typed results.
type RestClient struct {
	client *resthttp.Client
	logger core.Logger
}

func NewRestClient(baseURL string, requestsPerSec float64, signer *Signer, logger core.Logger) *RestClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RestClient{
		client: resthttp.NewClient(baseURL, 10*time.Second, requestsPerSec, signer),
		logger: logger.WithField("component", "okx_http"),
	}
}

// decodeEnvelope unwraps the REST envelope. Envelope codes listed in accept
// are treated as success; batch endpoints pass 1 and 2 so per-item sCode
// inspection can happen at the caller.
func decodeEnvelope[T any](body []byte, accept ...string) ([]T, error) {
	var rsp response[T]
	if err := json.Unmarshal(body, &rsp); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	ok := rsp.Code == "0"
	for _, code := range accept {
		if rsp.Code == code {
			ok = true
		}
	}
	if !ok {
		return nil, newAPIError(rsp.Code, rsp.Msg)
	}
	return rsp.Data, nil
}

// GetAccount fetches the account balance snapshot.
func (c *RestClient) GetAccount(ctx context.Context) (*Account, error) {
	body, err := c.client.Get(ctx, "/api/v5/account/balance", nil)
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope[Account](body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("get account: no data returned")
	}
	return &data[0], nil
}

// GetPositions fetches all open positions.
func (c *RestClient) GetPositions(ctx context.Context) ([]PositionDetail, error) {
	body, err := c.client.Get(ctx, "/api/v5/account/positions", nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[PositionDetail](body)
}

// GetPendingOrders fetches the open orders.
func (c *RestClient) GetPendingOrders(ctx context.Context) ([]PendingOrder, error) {
	body, err := c.client.Get(ctx, "/api/v5/trade/orders-pending", nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[PendingOrder](body)
}

// SendOrders submits a batch of orders. The batch succeeds as long as the
// envelope code is 0, 1, or 2; individual failures carry a non-zero sCode in
// the returned acks.
func (c *RestClient) SendOrders(ctx context.Context, orders []SendOrderRequest) ([]OrderAck, error) {
	c.logger.Info("sending orders", "count", len(orders))
	body, err := c.client.Post(ctx, "/api/v5/trade/batch-orders", orders)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[OrderAck](body, "1", "2")
}

// CancelOrders cancels a batch of orders; partial failures are reported
// per item.
func (c *RestClient) CancelOrders(ctx context.Context, reqs []CancelOrderRequest) ([]CancelAck, error) {
	body, err := c.client.Post(ctx, "/api/v5/trade/cancel-batch-orders", reqs)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[CancelAck](body, "1", "2")
}
