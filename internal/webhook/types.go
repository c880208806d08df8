package webhook

import (
	"context"
	"time"

	"github.com/mattjoyce/paykit/internal/signature"
)

//go:generate mockgen -destination=mocks/mock_dispatcher.go -package=mocks github.com/mattjoyce/paykit/internal/webhook Dispatcher

// Dispatcher routes a verified event. *router.Router implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, event signature.Event) (bool, error)
}

// Config holds webhook receiver configuration.
type Config struct {
	// Listen is the address the receiver binds to.
	Listen string `yaml:"listen"`

	// Path is the single endpoint that accepts notifications.
	Path string `yaml:"path"`

	// Secret is the shared key used to verify signatures.
	Secret string `yaml:"secret"`

	// SignatureHeader carries the t=...,v1=... value.
	SignatureHeader string `yaml:"signature_header"`

	// MaxBodySize is the maximum accepted body in bytes (default: 1MB)
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// Tolerance bounds the age of a signed timestamp. Zero disables it.
	Tolerance time.Duration `yaml:"tolerance,omitempty"`
}

// Response is the body of every reply: {"code":0,"msg":"success"} on
// acceptance, the HTTP status and a generic message otherwise.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Default values
const (
	DefaultListen          = "127.0.0.1:8081"
	DefaultPath            = "/webhook"
	DefaultSignatureHeader = "Webhook-Signature"
	DefaultMaxBodySize     = 1048576 // 1 MB
)

var ackResponse = Response{Code: 0, Msg: "success"}
