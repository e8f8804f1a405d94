package config

import (
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
)

type testCLI struct {
	API    string `default:"http://localhost:5001"`
	Output string `enum:"pretty,json" default:"pretty"`
	Watch  struct {
		PollInterval time.Duration `default:"2s"`
		DiscardStale bool
		Resolver     []string
	} `cmd:""`
	Version struct{} `cmd:""`
}

func parse(t *testing.T, file string, args ...string) testCLI {
	t.Helper()
	resolver, err := TOML(strings.NewReader(file))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cli := testCLI{}
	parser, err := kong.New(&cli, kong.Resolvers(resolver))
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cli
}

func TestTopLevelKeys(t *testing.T) {
	cli := parse(t, `
api = "http://lab:5001"
output = "json"
`, "version")
	if cli.API != "http://lab:5001" || cli.Output != "json" {
		t.Fatalf("unexpected values: %+v", cli)
	}
}

func TestCommandTable(t *testing.T) {
	cli := parse(t, `
[watch]
poll_interval = "500ms"
discard-stale = true
resolver = ["10.5.0.53", "10.5.0.54"]
`, "watch")
	if cli.Watch.PollInterval != 500*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cli.Watch.PollInterval)
	}
	if !cli.Watch.DiscardStale {
		t.Fatalf("expected discard-stale from config")
	}
	if len(cli.Watch.Resolver) != 2 || cli.Watch.Resolver[1] != "10.5.0.54" {
		t.Fatalf("unexpected resolvers: %v", cli.Watch.Resolver)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cli := parse(t, `api = "http://lab:5001"`, "--api", "http://other:5001", "version")
	if cli.API != "http://other:5001" {
		t.Fatalf("expected command line to win, got %s", cli.API)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := TOML(strings.NewReader("api = ")); err == nil {
		t.Fatalf("expected parse error")
	}
}
