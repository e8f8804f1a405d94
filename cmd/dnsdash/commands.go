package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/analyze"
	"github.com/jaxxstorm/dnsdash/internal/apiclient"
	"github.com/jaxxstorm/dnsdash/internal/dashboard"
	"github.com/jaxxstorm/dnsdash/internal/dnsclient"
	"github.com/jaxxstorm/dnsdash/internal/history"
	"github.com/jaxxstorm/dnsdash/internal/model"
	"github.com/jaxxstorm/dnsdash/internal/output"
	"github.com/jaxxstorm/dnsdash/internal/probe"
)

type StatusCmd struct {
	Hostname string `default:"www.victim.local" help:"Hostname to resolve."`
}

func (c *StatusCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		info, err := api.CurrentResolver(ctx)
		if err != nil {
			return err
		}
		resolution, err := api.Resolve(ctx, c.Hostname)
		if err != nil {
			return err
		}
		attack, err := api.AttackStatus(ctx)
		if err != nil {
			return err
		}
		state := dashboard.State{
			DNSSECEnabled: info.DNSSECEnabled,
			Resolver:      info,
			Resolution:    resolution,
			Attack:        attack,
			AttackRunning: attack.Running(model.ModeFor(info.DNSSECEnabled)),
			Tab:           model.TabWebsite,
			WebsiteURL:    api.WebsiteURL(c.Hostname),
		}
		return a.emit(state, func() string { return output.RenderPretty(state) })
	})
}

type ToggleCmd struct {
	State string `arg:"" enum:"on,off,flip" default:"flip" optional:"" help:"Desired DNSSEC state."`
}

func (c *ToggleCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		enabled := c.State == "on"
		if c.State == "flip" {
			info, err := api.CurrentResolver(ctx)
			if err != nil {
				return err
			}
			enabled = !info.DNSSECEnabled
		}
		result, err := api.ToggleDNSSEC(ctx, enabled)
		if err != nil {
			return err
		}
		return a.emit(result, func() string {
			state := "off"
			if result.DNSSECEnabled {
				state = "on"
			}
			line := fmt.Sprintf("dnssec %s resolver=%s", state, result.ResolverIP)
			if result.Message != "" {
				line += " " + result.Message
			}
			return line
		})
	})
}

type AttackCmd struct {
	Start  AttackStartCmd  `cmd:"" help:"Start the attacker against the current (or given) resolver."`
	Stop   AttackStopCmd   `cmd:"" help:"Stop every attacker."`
	Status AttackStatusCmd `cmd:"" help:"Show per-resolver attack state."`
}

type AttackStartCmd struct {
	Mode string `help:"Resolver to attack; defaults to the backend's current mode."`
}

func (c *AttackStartCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		mode, err := a.mode(ctx, api, c.Mode)
		if err != nil {
			return err
		}
		ack, err := api.StartAttack(ctx, mode)
		if err != nil {
			return err
		}
		return a.emit(ack, func() string { return ackLine("attack started against "+string(mode), ack) })
	})
}

type AttackStopCmd struct{}

func (c *AttackStopCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		ack, err := api.StopAttack(ctx)
		if err != nil {
			return err
		}
		return a.emit(ack, func() string { return ackLine("attack stopped", ack) })
	})
}

type AttackStatusCmd struct{}

func (c *AttackStatusCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		status, err := api.AttackStatus(ctx)
		if err != nil {
			return err
		}
		return a.emit(status, func() string {
			return fmt.Sprintf("plain=%t dnssec=%t any=%t", status.Plain, status.DNSSEC, status.AnyRunning)
		})
	})
}

// ModeFlag is shared by every resolver-scoped command.
type ModeFlag struct {
	Mode string `help:"Resolver to target; defaults to the backend's current mode."`
}

type ClearCacheCmd struct {
	ModeFlag `embed:""`
}

func (c *ClearCacheCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		mode, err := a.mode(ctx, api, c.Mode)
		if err != nil {
			return err
		}
		ack, err := api.ClearCache(ctx, mode)
		if err != nil {
			return err
		}
		return a.emit(ack, func() string { return ackLine(string(mode)+" cache cleared", ack) })
	})
}

type DigCmd struct {
	ModeFlag `embed:""`
}

func (c *DigCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		mode, err := a.mode(ctx, api, c.Mode)
		if err != nil {
			return err
		}
		out, err := api.Dig(ctx, mode)
		if err != nil {
			return err
		}
		return a.emit(out, func() string { return out.Output })
	})
}

type CaptureCmd struct {
	ModeFlag `embed:""`
}

func (c *CaptureCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		mode, err := a.mode(ctx, api, c.Mode)
		if err != nil {
			return err
		}
		out, err := api.Capture(ctx, mode)
		if err != nil {
			return err
		}
		return a.emit(out, func() string { return out.Tcpdump })
	})
}

type LogsCmd struct {
	ModeFlag `embed:""`
}

func (c *LogsCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		mode, err := a.mode(ctx, api, c.Mode)
		if err != nil {
			return err
		}
		out, err := api.Logs(ctx, mode)
		if err != nil {
			return err
		}
		return a.emit(out, func() string { return out.Logs })
	})
}

type PlotCmd struct {
	Type string `default:"attack" help:"Plot to fetch."`
}

func (c *PlotCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		data, err := api.PlotData(ctx, c.Type)
		if err != nil {
			return err
		}
		return a.emit(data, func() string { return output.RenderPlot(data) })
	})
}

type WebsiteCmd struct {
	Hostname string `default:"www.victim.local" help:"Hostname served through the proxy."`
}

func (c *WebsiteCmd) Run(a *app) error {
	api, err := a.client()
	if err != nil {
		return err
	}
	websiteURL := api.WebsiteURL(c.Hostname)
	return a.emit(map[string]string{"url": websiteURL}, func() string { return websiteURL })
}

type HealthCmd struct{}

func (c *HealthCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		health, err := api.Health(ctx)
		if err != nil {
			return err
		}
		return a.emit(health, func() string { return health.Status })
	})
}

type DNSSECStatusCmd struct{}

func (c *DNSSECStatusCmd) Run(a *app) error {
	return a.withClient(func(ctx context.Context, api *apiclient.Client) error {
		status, err := api.DNSSECStatus(ctx)
		if err != nil {
			return err
		}
		return a.emit(status, func() string { return status.Status })
	})
}

type ProbeCmd struct {
	Hostname  string        `default:"www.victim.local" help:"Hostname to query."`
	Resolvers []string      `name:"resolver" help:"Resolver addresses to query (repeatable). Defaults to the backend's current resolver."`
	DNSSEC    bool          `help:"Set the DNSSEC DO bit."`
	Transport string        `enum:"udp,tcp,auto" default:"auto" help:"Transport to use for queries."`
	MaxTime   time.Duration `default:"2s" help:"Time budget per resolver."`
	RealIP    string        `default:"10.5.0.10" help:"Genuine address of the target host."`
	ForgedIP  string        `default:"10.5.0.99" help:"Address the attacker injects."`
}

func (c *ProbeCmd) Run(a *app) error {
	ctx, cancel := a.commandContext()
	defer cancel()

	resolvers := c.Resolvers
	if len(resolvers) == 0 {
		api, err := a.client()
		if err != nil {
			return err
		}
		info, err := api.CurrentResolver(ctx)
		if err != nil {
			return err
		}
		if info.ResolverIP == "" {
			return fmt.Errorf("backend did not report a resolver address; pass --resolver")
		}
		resolvers = []string{info.ResolverIP}
	}

	client := dnsclient.New(dnsclient.Options{
		DNSSEC:    c.DNSSEC,
		Recursion: true,
		Mode:      dnsclient.Mode(c.Transport),
		Timeout:   c.MaxTime,
		Retries:   1,
		Logger:    a.logger,
	})
	result, err := probe.Run(ctx, client, resolvers, c.Hostname, probe.Config{
		Timeout: c.MaxTime,
		Expect:  analyze.Expectation{RealIP: c.RealIP, ForgedIP: c.ForgedIP},
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	if err := a.emit(result, func() string { return output.RenderProbe(result) }); err != nil {
		return err
	}
	if result.Diagnosis.Classification != string(analyze.OutcomeCorrect) {
		return errVerdict
	}
	return nil
}

type HistoryCmd struct {
	DB string `name:"db" type:"path" help:"History database (defaults to the watch --history location)."`
}

func (c *HistoryCmd) Run(a *app) error {
	path := c.DB
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.Open(path, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := a.commandContext()
	defer cancel()
	summaries, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	return a.emit(summaries, func() string { return output.RenderHistory(summaries) })
}

// withClient runs fn with a fresh API client and a bounded context.
func (a *app) withClient(fn func(ctx context.Context, api *apiclient.Client) error) error {
	api, err := a.client()
	if err != nil {
		return err
	}
	ctx, cancel := a.commandContext()
	defer cancel()
	return fn(ctx, api)
}

func ackLine(summary string, ack model.Ack) string {
	if ack.Message != "" {
		return summary + ": " + ack.Message
	}
	return summary
}
