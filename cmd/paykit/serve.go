package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/paykit/internal/config"
	"github.com/mattjoyce/paykit/internal/log"
	"github.com/mattjoyce/paykit/internal/router"
	"github.com/mattjoyce/paykit/internal/signature"
	"github.com/mattjoyce/paykit/internal/webhook"
)

func (c *cli) runServe(args []string) int {
	fs := c.newFlagSet("serve")
	configPath := configFlag(fs)
	if code, ok := c.parse(fs, args); !ok {
		return code
	}

	server, err := c.buildServer(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("serve:"), err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("serve:"), err)
		return 1
	}
	return 0
}

// buildServer wires config, logging, the standard routing table and the
// receiver.
func (c *cli) buildServer(configPath string) (*webhook.Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Webhook == nil {
		return nil, fmt.Errorf("config %s has no webhook section", cfg.Path)
	}

	log.SetupWriter(c.stderr, cfg.Service.LogLevel, cfg.Service.LogFormat)

	whCfg, err := webhook.FromGlobalConfig(cfg.Webhook)
	if err != nil {
		return nil, err
	}

	rt, err := router.FromPrefixes(router.StandardPrefixes, loggingHandler)
	if err != nil {
		return nil, err
	}

	return webhook.New(whCfg, rt, log.WithComponent("webhook"))
}

// loggingHandler records each event of a family without touching its data.
func loggingHandler(prefix string) router.Handler {
	return router.HandlerFunc(func(_ context.Context, ev signature.Event) error {
		log.WithEvent(ev.ID, ev.Type).Info("event received",
			"family", prefix,
			"created", ev.Created,
			"data_bytes", len(ev.Data),
		)
		return nil
	})
}
