package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattjoyce/paykit/internal/router"
	"github.com/mattjoyce/paykit/internal/signature"
)

const secretEnv = "PAYKIT_WEBHOOK_SECRET"

func (c *cli) runSign(args []string) int {
	fs := c.newFlagSet("sign")
	secret := fs.String("secret", os.Getenv(secretEnv), "Webhook secret (default: $"+secretEnv+")")
	ts := fs.Int64("timestamp", 0, "Unix seconds to sign at (default: now)")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: paykit sign [--secret S] [--timestamp N] FILE|-")
		return 1
	}
	if *secret == "" {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("sign:"), signature.ErrEmptySecret)
		return 1
	}

	payload, err := c.readPayload(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("sign:"), err)
		return 1
	}

	if *ts == 0 {
		*ts = time.Now().Unix()
	}
	fmt.Fprintln(c.stdout, signature.Sign(*secret, *ts, payload))
	return 0
}

func (c *cli) runVerify(args []string) int {
	fs := c.newFlagSet("verify")
	secret := fs.String("secret", os.Getenv(secretEnv), "Webhook secret (default: $"+secretEnv+")")
	header := fs.String("header", "", "Signature header value (t=...,v1=...)")
	tolerance := fs.Duration("tolerance", 0, "Reject timestamps older than this (0 disables)")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 || *header == "" {
		fmt.Fprintln(c.stderr, "Usage: paykit verify --header H [--secret S] [--tolerance D] FILE|-")
		return 1
	}

	v, err := signature.NewVerifier(*secret, signature.WithTolerance(*tolerance))
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("verify:"), err)
		return 1
	}

	payload, err := c.readPayload(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("verify:"), err)
		return 1
	}

	ev, err := v.Verify(payload, *header)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("rejected"), err)
		return 1
	}

	family := c.theme.Warn.Render("(no handler)")
	if rt, err := router.FromPrefixes(router.StandardPrefixes, noopHandler); err == nil {
		if rule, ok := rt.Match(ev.Type); ok {
			family = rule.Prefix
		}
	}

	fmt.Fprintf(c.stdout, "%s id=%s type=%s family=%s\n", c.theme.OK.Render("verified"), ev.ID, ev.Type, family)
	return 0
}

func noopHandler(string) router.Handler {
	return router.HandlerFunc(func(context.Context, signature.Event) error { return nil })
}

// readPayload reads name, or stdin for "-". The bytes are used unmodified.
func (c *cli) readPayload(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(c.stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}
