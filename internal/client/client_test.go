package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/paykit/internal/envelope"
	"github.com/mattjoyce/paykit/internal/transport"
)

type stubSender struct {
	resp transport.Response
	err  error
	got  transport.RequestSpec
}

func (s *stubSender) Send(_ context.Context, spec transport.RequestSpec) (transport.Response, error) {
	s.got = spec
	return s.resp, s.err
}

type payout struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestCallDecodesSuccess(t *testing.T) {
	s := &stubSender{resp: transport.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"code":0,"msg":"success","data":{"id":"po_1","status":"paid"}}`),
	}}

	res := Get[payout](context.Background(), s, "/v1/payouts/po_1")
	require.Equal(t, envelope.KindOK, res.Kind)
	assert.Equal(t, payout{ID: "po_1", Status: "paid"}, res.Value)
	assert.Equal(t, http.MethodGet, s.got.Method)
	assert.Nil(t, s.got.Body)
}

func TestCallNetworkFailure(t *testing.T) {
	s := &stubSender{err: errors.New("dial tcp: connection refused")}

	res := Post[payout](context.Background(), s, "/v1/payouts", map[string]int{"amount": 100})
	assert.Equal(t, envelope.KindNetwork, res.Kind)
	assert.ErrorIs(t, res.Err, envelope.ErrNetwork)
	assert.Contains(t, res.Err.Error(), "connection refused")
	assert.Equal(t, http.MethodPost, s.got.Method)
}

func TestCallTransportPrecedence(t *testing.T) {
	s := &stubSender{resp: transport.Response{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(`{"code":0,"msg":"success","data":{"id":"po_1"}}`),
	}}

	res := Delete[envelope.NoContent](context.Background(), s, "/v1/payouts/po_1")
	assert.Equal(t, envelope.KindTransport, res.Kind)
	assert.Equal(t, http.MethodDelete, s.got.Method)
}

func TestCallEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPut || string(body) != `{"status":"cancelled"}` {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"id":"po_9","status":"cancelled"}}`))
	}))
	t.Cleanup(srv.Close)

	tc, err := transport.New(srv.URL, "sk_test")
	require.NoError(t, err)

	got, err := Put[payout](context.Background(), tc, Endpoint("/v1/payouts", "po_9"), map[string]string{"status": "cancelled"}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base string
		id   string
		uris []string
		want string
	}{
		{"/v1/refunds", "", nil, "/v1/refunds"},
		{"/v1/refunds/", "rf_1", nil, "/v1/refunds/rf_1"},
		{"/v1/refunds", "rf_1", []string{"cancel"}, "/v1/refunds/rf_1/cancel"},
		{"/v1/selling_plans", "", []string{"search", "active"}, "/v1/selling_plans/search/active"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Endpoint(tt.base, tt.id, tt.uris...))
	}
}
