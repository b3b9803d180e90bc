package okx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"qitrader/pkg/logging"
)

func testRestClient(t *testing.T, handler http.HandlerFunc) *RestClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	signer := NewSigner("key", "secret", "phrase", false)
	return NewRestClient(server.URL, 0, signer, logger)
}

func TestGetAccountDecodesEnvelope(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v5/account/balance", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("OK-ACCESS-SIGN"))
		require.NotEmpty(t, r.Header.Get("OK-ACCESS-TIMESTAMP"))

		io.WriteString(w, `{"code":"0","msg":"","data":[{"uTime":"1700000000000","totalEq":"1000.5","details":[{"ccy":"USDT","eq":"1000.5","frozenBal":"10"}]}]}`)
	})

	acct, err := client.GetAccount(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1000.5", acct.TotalEq)
	require.Len(t, acct.Details, 1)
	require.Equal(t, "USDT", acct.Details[0].Ccy)
}

func TestGetAccountErrorEnvelope(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"50000","msg":"server error","data":[]}`)
	})

	_, err := client.GetAccount(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, int64(50000), apiErr.Code)
	require.Equal(t, "server error", apiErr.Msg)
}

func TestGetAccountEmptyData(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"0","msg":"","data":[]}`)
	})

	_, err := client.GetAccount(context.Background())
	require.Error(t, err)
}

func TestGetPositionsEmpty(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v5/account/positions", r.URL.Path)
		io.WriteString(w, `{"code":"0","msg":"","data":[]}`)
	})

	positions, err := client.GetPositions(context.Background())
	require.NoError(t, err)
	require.Empty(t, positions)
}

func TestSendOrdersAcceptsPartialSuccess(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v5/trade/batch-orders", r.URL.Path)

		io.WriteString(w, `{"code":"2","msg":"partial success","data":[{"ordId":"1","sCode":"0","sMsg":""},{"ordId":"","sCode":"51000","sMsg":"Insufficient balance"}]}`)
	})

	acks, err := client.SendOrders(context.Background(), []SendOrderRequest{
		{InstID: "BTC-USDT", TdMode: "cash", Side: "buy", OrdType: "limit", Px: "30000", Sz: "0.01"},
		{InstID: "BTC-USDT", TdMode: "cash", Side: "buy", OrdType: "limit", Px: "30000", Sz: "100"},
	})
	require.NoError(t, err)
	require.Len(t, acks, 2)
	require.Equal(t, "0", acks[0].SCode)
	require.Equal(t, "51000", acks[1].SCode)
}

func TestSendOrdersRejectsHardFailure(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"50011","msg":"Invalid request","data":[]}`)
	})

	_, err := client.SendOrders(context.Background(), []SendOrderRequest{{InstID: "BTC-USDT"}})
	require.Error(t, err)
}

func TestCancelOrdersPostsBatch(t *testing.T) {
	client := testRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v5/trade/cancel-batch-orders", r.URL.Path)

		var reqs []CancelOrderRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &reqs))
		require.Len(t, reqs, 2)
		require.Equal(t, "1", reqs[0].OrdID)

		io.WriteString(w, `{"code":"0","msg":"","data":[{"ordId":"1","sCode":"0"},{"ordId":"2","sCode":"51401","sMsg":"Order does not exist"}]}`)
	})

	acks, err := client.CancelOrders(context.Background(), []CancelOrderRequest{
		{InstID: "BTC-USDT", OrdID: "1"},
		{InstID: "BTC-USDT", OrdID: "2"},
	})
	require.NoError(t, err)
	require.Len(t, acks, 2)
}
