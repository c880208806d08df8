// Package signature authenticates inbound webhook notifications.
//
// A notification carries a header of the form
//
//	t=<unix-seconds>,v1=<lowercase-hex>
//
// where the hex value is HMAC-SHA256 keyed with the shared secret over the
// decimal timestamp, a literal ".", and the raw request body, in that order.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	timestampKey = "t"
	signatureKey = "v1"
)

var (
	ErrMissingHeader     = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMalformedEvent    = errors.New("malformed event body")
	ErrStaleTimestamp    = errors.New("signature timestamp outside tolerance")
	ErrEmptySecret       = errors.New("webhook secret is empty")
)

// Event is a verified webhook notification. Data is left for the handler.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// Header is a parsed signature header. More than one v1 value may be
// present while a secret is being rotated.
type Header struct {
	Timestamp  int64
	Signatures []string
}

// ParseHeader splits value into key=value pairs on ",". Keys other than t
// and v1 are ignored.
func ParseHeader(value string) (Header, error) {
	var (
		h    Header
		hasT bool
	)

	for _, pair := range strings.Split(value, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch key {
		case timestampKey:
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return Header{}, fmt.Errorf("%w: timestamp %q is not an integer", ErrMalformedHeader, val)
			}
			h.Timestamp = ts
			hasT = true
		case signatureKey:
			if val != "" {
				h.Signatures = append(h.Signatures, val)
			}
		}
	}

	if !hasT {
		return Header{}, fmt.Errorf("%w: no timestamp", ErrMalformedHeader)
	}
	if len(h.Signatures) == 0 {
		return Header{}, fmt.Errorf("%w: no v1 signature", ErrMalformedHeader)
	}
	return h, nil
}

// String renders h in wire form.
func (h Header) String() string {
	var b strings.Builder
	b.WriteString(timestampKey + "=")
	b.WriteString(strconv.FormatInt(h.Timestamp, 10))
	for _, sig := range h.Signatures {
		b.WriteString("," + signatureKey + "=")
		b.WriteString(sig)
	}
	return b.String()
}

// Compute returns the lowercase hex signature of payload at ts.
func Compute(secret string, ts int64, payload []byte) string {
	return hex.EncodeToString(computeMAC([]byte(secret), ts, payload))
}

// Sign returns a complete header value for payload at ts.
func Sign(secret string, ts int64, payload []byte) string {
	return Header{Timestamp: ts, Signatures: []string{Compute(secret, ts, payload)}}.String()
}

func computeMAC(secret []byte, ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// Verify checks header against payload with secret and parses the event.
// No timestamp tolerance is applied.
func Verify(payload []byte, header, secret string) (Event, error) {
	v := &Verifier{secret: []byte(secret), now: time.Now}
	return v.Verify(payload, header)
}

// Verifier holds the shared secret for the life of a receiver. It is safe
// for concurrent use.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

type Option func(*Verifier)

// WithTolerance rejects signed timestamps further than d from now. Zero
// disables the check.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// WithClock replaces time.Now for tolerance checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	v := &Verifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify authenticates payload and returns the parsed event. Errors match
// one of the package sentinels with errors.Is.
func (v *Verifier) Verify(payload []byte, header string) (Event, error) {
	h, err := ParseHeader(header)
	if err != nil {
		return Event{}, err
	}

	expected := hex.EncodeToString(computeMAC(v.secret, h.Timestamp, payload))
	if !anyMatch(expected, h.Signatures) {
		return Event{}, ErrSignatureMismatch
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(h.Timestamp, 0))
		if age < 0 {
			age = -age
		}
		if age > v.tolerance {
			return Event{}, fmt.Errorf("%w: off by %s", ErrStaleTimestamp, age.Truncate(time.Second))
		}
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return ev, nil
}

// anyMatch compares lowercase hex strings in constant time. Uppercase or
// non-hex candidates never match.
func anyMatch(expected string, candidates []string) bool {
	matched := false
	for _, c := range candidates {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(c)) == 1 {
			matched = true
		}
	}
	return matched
}
