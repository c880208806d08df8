package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const defaultConfigPath = "./config.yaml"

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	return newCLI(os.Stdout, os.Stderr).run(cliArgs)
}

// cli carries the process streams so commands can be exercised in tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	theme  theme
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdin: os.Stdin, stdout: stdout, stderr: stderr, theme: newTheme()}
}

func (c *cli) run(cliArgs []string) int {
	if len(cliArgs) < 1 {
		c.printUsage(c.stderr)
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "serve":
		return c.runServe(args)
	case "call":
		return c.runCall(args)
	case "sign":
		return c.runSign(args)
	case "verify":
		return c.runVerify(args)
	case "config":
		return c.runConfigNoun(args)
	case "version", "--version":
		return c.runVersion(args)
	case "help", "--help", "-h":
		c.printUsage(c.stdout)
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", cmd)
		c.printUsage(c.stderr)
		return 1
	}
}

// newFlagSet returns a FlagSet that reports errors to stderr instead of
// exiting the process.
func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// parse reports whether the command should proceed. --help exits 0.
func (c *cli) parse(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 1, false
	}
	return 0, true
}

// configFlag registers --config with PAYKIT_CONFIG as the default.
func configFlag(fs *flag.FlagSet) *string {
	def := os.Getenv("PAYKIT_CONFIG")
	if def == "" {
		def = defaultConfigPath
	}
	return fs.String("config", def, "Path to config file or directory")
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func (c *cli) runVersion(args []string) int {
	fs := c.newFlagSet("version")
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(c.stderr, "Usage: paykit version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(c.stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Fprintln(c.stdout, string(data))
		return 0
	}

	fmt.Fprintf(c.stdout, "paykit %s\n", info.Version)
	fmt.Fprintf(c.stdout, "commit: %s\n", info.Commit)
	fmt.Fprintf(c.stdout, "built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, resolvedBuildTime); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func (c *cli) printUsage(w io.Writer) {
	fmt.Fprint(w, `paykit - payment platform client and webhook receiver

Usage:
  paykit <command> [flags]

Commands:
  serve                     Run the webhook receiver in foreground
  call [flags] METHOD PATH  Make one signed API call and print the decoded result
  sign [flags] FILE         Print a signature header for a payload ("-" reads stdin)
  verify [flags] FILE       Verify a payload against a signature header
  config lock               Record integrity hashes for the config
  config check              Validate syntax, policy, and integrity
  version                   Show version information
  help                      Show this help message

Use 'paykit <command> --help' for command flags.
`)
}
