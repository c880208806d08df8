package main

import (
	"fmt"
	"path/filepath"

	"github.com/mattjoyce/paykit/internal/config"
	"github.com/mattjoyce/paykit/internal/webhook"
)

func (c *cli) runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "Usage: paykit config <lock|check> [flags]")
		return 1
	}

	switch args[0] {
	case "lock":
		return c.runConfigLock(args[1:])
	case "check":
		return c.runConfigCheck(args[1:])
	case "help", "--help", "-h":
		fmt.Fprintln(c.stdout, "Usage: paykit config <lock|check> [flags]")
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func (c *cli) runConfigLock(args []string) int {
	fs := c.newFlagSet("config lock")
	configPath := configFlag(fs)
	dryRun := fs.Bool("dry-run", false, "Show hashes without writing .checksums")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}

	absPath, err := config.ResolvePath(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("lock:"), err)
		return 1
	}

	report, err := config.GenerateChecksums(filepath.Dir(absPath), config.LockedFiles(absPath), *dryRun)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("lock:"), err)
		return 1
	}

	for _, f := range report.Files {
		if !f.Exists {
			fmt.Fprintf(c.stdout, "  %s %s\n", c.theme.Dim.Render("skip"), f.Filename)
			continue
		}
		fmt.Fprintf(c.stdout, "  %s %s %s\n", c.theme.Label.Render("hash"), f.Filename, c.theme.Dim.Render(f.Hash))
	}
	if report.Written {
		fmt.Fprintf(c.stdout, "%s wrote %s\n", c.theme.OK.Render("locked"), report.ChecksumPath)
	} else {
		fmt.Fprintf(c.stdout, "%s nothing written\n", c.theme.Warn.Render("dry-run"))
	}
	return 0
}

func (c *cli) runConfigCheck(args []string) int {
	fs := c.newFlagSet("config check")
	configPath := configFlag(fs)
	if code, ok := c.parse(fs, args); !ok {
		return code
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s %v\n", c.theme.Failed.Render("invalid"), err)
		return 1
	}

	ok := true
	fmt.Fprintf(c.stdout, "%s %s\n", c.theme.Label.Render("config"), cfg.Path)

	if _, err := newTransport(cfg); err != nil {
		fmt.Fprintf(c.stdout, "  %s api: %v (call disabled)\n", c.theme.Warn.Render("warn"), err)
	} else {
		fmt.Fprintf(c.stdout, "  %s api: %s\n", c.theme.OK.Render("ok"), cfg.API.BaseURL)
	}

	if cfg.Webhook == nil {
		fmt.Fprintf(c.stdout, "  %s webhook: not configured (serve disabled)\n", c.theme.Warn.Render("warn"))
	} else if whCfg, err := webhook.FromGlobalConfig(cfg.Webhook); err != nil {
		fmt.Fprintf(c.stdout, "  %s webhook: %v\n", c.theme.Failed.Render("fail"), err)
		ok = false
	} else {
		fmt.Fprintf(c.stdout, "  %s webhook: %s%s (max body %d bytes)\n",
			c.theme.OK.Render("ok"), whCfg.Listen, whCfg.Path, whCfg.MaxBodySize)
	}

	if _, err := config.LoadChecksums(filepath.Dir(cfg.Path)); err != nil {
		fmt.Fprintf(c.stdout, "  %s integrity: %v\n", c.theme.Warn.Render("warn"), err)
	} else {
		fmt.Fprintf(c.stdout, "  %s integrity: checksums verified\n", c.theme.OK.Render("ok"))
	}

	if !ok {
		return 1
	}
	fmt.Fprintln(c.stdout, c.theme.OK.Render("valid"))
	return 0
}
