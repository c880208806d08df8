package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mattjoyce/paykit/internal/client"
	"github.com/mattjoyce/paykit/internal/config"
	"github.com/mattjoyce/paykit/internal/envelope"
	"github.com/mattjoyce/paykit/internal/log"
	"github.com/mattjoyce/paykit/internal/transport"
)

const maxEchoedBody = 512

func (c *cli) runCall(args []string) int {
	fs := c.newFlagSet("call")
	configPath := configFlag(fs)
	data := fs.String("data", "", "JSON request body")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(c.stderr, "Usage: paykit call [--config PATH] [--data JSON] METHOD PATH")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("call:"), err)
		return 1
	}
	log.SetupWriter(c.stderr, cfg.Service.LogLevel, cfg.Service.LogFormat)

	tc, err := newTransport(cfg)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("call:"), err)
		return 1
	}

	spec := transport.RequestSpec{Method: strings.ToUpper(fs.Arg(0)), Path: fs.Arg(1)}
	if *data != "" {
		if !json.Valid([]byte(*data)) {
			fmt.Fprintf(c.stderr, "%s --data is not valid JSON\n", c.theme.Failed.Render("call:"))
			return 1
		}
		spec.Body = json.RawMessage(*data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.printResult(client.Call[json.RawMessage](ctx, tc, spec))
}

func newTransport(cfg *config.Config) (*transport.Client, error) {
	t := cfg.API.Timeouts
	return transport.New(cfg.API.BaseURL, cfg.API.APIKey,
		transport.WithTimeouts(transport.Timeouts{Connect: t.Connect, Read: t.Read, Write: t.Write}),
		transport.WithLogger(log.WithComponent("transport")),
	)
}

// printResult writes data to stdout on success or the classified error to
// stderr. Business errors exit 2, everything else 1.
func (c *cli) printResult(res envelope.Result[json.RawMessage]) int {
	if res.OK() {
		fmt.Fprintln(c.stdout, c.theme.OK.Render("ok"))
		if len(res.Value) == 0 {
			fmt.Fprintln(c.stdout, "null")
			return 0
		}
		var out bytes.Buffer
		if err := json.Indent(&out, res.Value, "", "  "); err != nil {
			out.Reset()
			out.Write(res.Value)
		}
		fmt.Fprintln(c.stdout, out.String())
		return 0
	}

	fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render(res.Kind.String()), res.Err)

	var te *envelope.TransportError
	if errors.As(res.Err, &te) && len(te.Body) > 0 {
		body := te.Body
		if len(body) > maxEchoedBody {
			body = body[:maxEchoedBody]
		}
		fmt.Fprintln(c.stderr, c.theme.Dim.Render(string(body)))
	}

	if res.Kind == envelope.KindBusiness {
		return 2
	}
	return 1
}
