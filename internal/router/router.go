package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattjoyce/paykit/internal/signature"
)

//go:generate mockgen -destination=mocks/mock_handler.go -package=mocks github.com/mattjoyce/paykit/internal/router Handler

// Handler processes one verified event. It extracts its own fields from
// event.Data.
type Handler interface {
	HandleEvent(ctx context.Context, event signature.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event signature.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event signature.Event) error {
	return f(ctx, event)
}

// Rule binds an event type prefix to a handler.
type Rule struct {
	Prefix  string
	Handler Handler
}

var (
	ErrInvalidRule  = errors.New("invalid rule")
	ErrShadowedRule = errors.New("rule is shadowed by an earlier rule")
)

// StandardPrefixes lists the platform's event families, most specific first.
var StandardPrefixes = []string{
	"payroll_item",
	"payroll",
	"payment_intent",
	"payout",
	"refund",
	"customer",
	"product",
	"subscription",
	"selling_plan",
	"merchant_address",
}

// Router dispatches an event to the first rule whose prefix matches its
// type. Rules are fixed at construction.
type Router struct {
	rules []Rule
}

// New validates rules in order. A rule whose prefix starts with an earlier
// rule's prefix could never match, so it is rejected with ErrShadowedRule.
func New(rules ...Rule) (*Router, error) {
	for i, rule := range rules {
		if rule.Handler == nil {
			return nil, fmt.Errorf("%w: rule %d (%q) has no handler", ErrInvalidRule, i, rule.Prefix)
		}
		for j := 0; j < i; j++ {
			if strings.HasPrefix(rule.Prefix, rules[j].Prefix) {
				return nil, fmt.Errorf("%w: rule %d (%q) is unreachable behind rule %d (%q)",
					ErrShadowedRule, i, rule.Prefix, j, rules[j].Prefix)
			}
		}
	}

	return &Router{rules: append([]Rule(nil), rules...)}, nil
}

// FromPrefixes builds one rule per prefix, in order, using build to create
// each handler.
func FromPrefixes(prefixes []string, build func(prefix string) Handler) (*Router, error) {
	rules := make([]Rule, 0, len(prefixes))
	for _, p := range prefixes {
		rules = append(rules, Rule{Prefix: p, Handler: build(p)})
	}
	return New(rules...)
}

// Match returns the rule that would handle eventType.
func (r *Router) Match(eventType string) (Rule, bool) {
	for _, rule := range r.rules {
		if strings.HasPrefix(eventType, rule.Prefix) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Dispatch runs the matching handler, if any. An unmatched event reports
// false with a nil error.
func (r *Router) Dispatch(ctx context.Context, event signature.Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rule, ok := r.Match(event.Type)
	if !ok {
		return false, nil
	}
	if err := rule.Handler.HandleEvent(ctx, event); err != nil {
		return true, fmt.Errorf("handle %s via %q: %w", event.Type, rule.Prefix, err)
	}
	return true, nil
}

// Rules returns a copy of the ordered rules.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}
