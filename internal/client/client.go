// Package client is the base every resource wrapper builds on: it sends a
// RequestSpec through a Sender and decodes the envelope into a typed Result.
package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/mattjoyce/paykit/internal/envelope"
	"github.com/mattjoyce/paykit/internal/transport"
)

// Sender performs one signed round trip. *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, spec transport.RequestSpec) (transport.Response, error)
}

var _ Sender = (*transport.Client)(nil)

// Call sends spec and decodes the reply. A failure to obtain any response
// yields KindNetwork.
func Call[T any](ctx context.Context, s Sender, spec transport.RequestSpec) envelope.Result[T] {
	resp, err := s.Send(ctx, spec)
	if err != nil {
		return envelope.Fail[T](&envelope.NetworkError{Err: err})
	}
	return envelope.Decode[T](resp.StatusCode, resp.Body)
}

// Get calls GET path.
func Get[T any](ctx context.Context, s Sender, path string) envelope.Result[T] {
	return Call[T](ctx, s, transport.RequestSpec{Method: http.MethodGet, Path: path})
}

// Post calls POST path with body.
func Post[T any](ctx context.Context, s Sender, path string, body any) envelope.Result[T] {
	return Call[T](ctx, s, transport.RequestSpec{Method: http.MethodPost, Path: path, Body: body})
}

// Put calls PUT path with body.
func Put[T any](ctx context.Context, s Sender, path string, body any) envelope.Result[T] {
	return Call[T](ctx, s, transport.RequestSpec{Method: http.MethodPut, Path: path, Body: body})
}

// Delete calls DELETE path.
func Delete[T any](ctx context.Context, s Sender, path string) envelope.Result[T] {
	return Call[T](ctx, s, transport.RequestSpec{Method: http.MethodDelete, Path: path})
}

// Endpoint joins a resource base path, an optional id, and any trailing
// segments, e.g. Endpoint("/v1/refunds", "rf_1", "cancel") is
// "/v1/refunds/rf_1/cancel".
func Endpoint(base, id string, uris ...string) string {
	endpoint := strings.TrimRight(base, "/")

	if id != "" {
		endpoint += "/" + id
	}
	if len(uris) > 0 {
		endpoint += "/" + strings.Join(uris, "/")
	}
	return endpoint
}
