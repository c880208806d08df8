package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/mattjoyce/paykit/internal/log"
)

// DefaultTimeout applies to each of connect, read and write when no
// explicit Timeouts are given.
const DefaultTimeout = 30 * time.Second

// HeaderRequestID carries the per-call correlation id.
const HeaderRequestID = "X-Request-Id"

var (
	ErrMissingAPIKey  = errors.New("api key is empty")
	ErrMissingBaseURL = errors.New("base url is empty")
	ErrBodyNotAllowed = errors.New("request body not allowed")
)

// RequestSpec describes one logical API call. Build a fresh value per call.
type RequestSpec struct {
	Method string
	Path   string
	Body   any
}

// Response is the raw result of a call. Interpretation of the body is left
// to the envelope package.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// Timeouts bounds each phase of a call independently. Read and write are
// inactivity timeouts applied to every socket operation.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// DefaultTimeouts returns 30s for every phase.
func DefaultTimeouts() Timeouts {
	return Timeouts{Connect: DefaultTimeout, Read: DefaultTimeout, Write: DefaultTimeout}
}

// Client sends authenticated requests to the platform API. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	timeouts  Timeouts
	http      *http.Client
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeouts overrides the default connect/read/write timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) { c.timeouts = t }
}

// WithHTTPClient replaces the underlying HTTP client. Timeouts are then the
// caller's responsibility.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-call debug records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client for baseURL authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: "paykit-go",
		timeouts:  DefaultTimeouts(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{Transport: newHTTPTransport(c.timeouts)}
	}
	if c.logger == nil {
		c.logger = log.Discard()
	}
	return c, nil
}

// Credential returns the value placed after "Basic " in the Authorization
// header: base64(apiKey + ":").
func Credential(apiKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(apiKey + ":"))
}

// CanonicalJSON serializes v as RFC 8785 canonical JSON. Raw JSON
// ([]byte or json.RawMessage) is canonicalized as-is. Integer literals
// beyond ±2^53 keep their exact digits instead of being rounded to a double.
func CanonicalJSON(v any) ([]byte, error) {
	var raw []byte
	switch b := v.(type) {
	case json.RawMessage:
		raw = b
	case []byte:
		raw = b
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		raw = data
	}

	tree, err := decodeExact(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize body: %w", err)
	}

	// Unsafe integers are swapped for unique string markers so jcs can sort
	// and format everything else, then the original digits are put back.
	marker := "paykit-int-" + uuid.NewString() + "-"
	var literals []string
	tree = replaceUnsafeInts(tree, func(n json.Number) any {
		literals = append(literals, n.String())
		return marker + strconv.Itoa(len(literals)-1)
	})
	if len(literals) > 0 {
		if raw, err = json.Marshal(tree); err != nil {
			return nil, fmt.Errorf("canonicalize body: %w", err)
		}
	}

	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize body: %w", err)
	}
	for i, lit := range literals {
		out = bytes.Replace(out, []byte(`"`+marker+strconv.Itoa(i)+`"`), []byte(lit), 1)
	}
	return out, nil
}

// maxSafeInt bounds the integers a double holds exactly.
var maxSafeInt = new(big.Int).Lsh(big.NewInt(1), 53)

func decodeExact(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return tree, nil
}

func replaceUnsafeInts(v any, replace func(json.Number) any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = replaceUnsafeInts(e, replace)
		}
	case []any:
		for i, e := range x {
			x[i] = replaceUnsafeInts(e, replace)
		}
	case json.Number:
		if !isSafeNumber(x.String()) {
			return replace(x)
		}
	}
	return v
}

// isSafeNumber reports whether jcs can reformat lit without changing its
// value. Fractions and exponents are doubles on every side already.
func isSafeNumber(lit string) bool {
	if strings.ContainsAny(lit, ".eE") {
		return true
	}
	n, ok := new(big.Int).SetString(lit, 10)
	return !ok || n.CmpAbs(maxSafeInt) <= 0
}

// hasBody reports whether b should be sent. Empty raw bodies count as
// absent.
func hasBody(b any) bool {
	switch x := b.(type) {
	case nil:
		return false
	case json.RawMessage:
		return len(x) > 0
	case []byte:
		return len(x) > 0
	}
	return true
}

// Send performs exactly one round trip for spec. A non-2xx status is not an
// error at this layer; only failures to reach the server or read its reply
// are.
func (c *Client) Send(ctx context.Context, spec RequestSpec) (Response, error) {
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if hasBody(spec.Body) {
		if !allowsBody(method) {
			return Response{}, fmt.Errorf("%w: %s %s", ErrBodyNotAllowed, method, spec.Path)
		}
		data, err := CanonicalJSON(spec.Body)
		if err != nil {
			return Response{}, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(spec.Path), body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Basic "+Credential(c.apiKey))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"method", method,
			"path", spec.Path,
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return Response{}, fmt.Errorf("%s %s: %w", method, spec.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{StatusCode: resp.StatusCode, RequestID: requestID}, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("api request",
		"method", method,
		"path", spec.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return Response{StatusCode: resp.StatusCode, Body: data, RequestID: requestID}, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func allowsBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return false
	}
	return true
}

// newHTTPTransport builds a transport whose dialer enforces the connect
// timeout and whose connections enforce per-operation read/write deadlines.
func newHTTPTransport(t Timeouts) *http.Transport {
	dialer := &net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSHandshakeTimeout = t.Connect
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, read: t.Read, write: t.Write}, nil
	}
	return tr
}

type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
