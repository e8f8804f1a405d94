package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jaxxstorm/dnsdash/internal/dashboard"
	"github.com/jaxxstorm/dnsdash/internal/history"
	"github.com/jaxxstorm/dnsdash/internal/output"
	"github.com/jaxxstorm/dnsdash/internal/tui"
	"go.uber.org/zap"
)

type WatchCmd struct {
	PollInterval time.Duration `default:"2s" help:"How often resolution and attack status are refreshed."`
	ErrorTTL     time.Duration `name:"error-ttl" default:"5s" help:"How long an error stays on screen."`
	Hostname     string        `default:"www.victim.local" help:"Hostname to resolve on every poll."`
	PlotType     string        `default:"attack" help:"Plot shown on the plots tab."`
	DiscardStale bool          `help:"Drop responses that complete after a newer one for the same field."`
	History      bool          `help:"Record every resolution in the local history database."`
	HistoryDB    string        `name:"history-db" type:"path" help:"History database path (defaults to ~/.local/state/dnsdash/history.db)."`
	LogFile      string        `type:"path" help:"Write logs to this file; without it the TUI discards logs."`
	NoTUI        bool          `name:"no-tui" help:"Print a snapshot on every change instead of running the interactive UI."`
}

func (c *WatchCmd) Run(a *app) error {
	logger, err := c.logger(a.globals)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	a.logger = logger

	api, err := a.client()
	if err != nil {
		return err
	}

	var observers dashboard.Observers
	if a.metrics != nil {
		observers = append(observers, a.metrics)
	}
	if c.History {
		path := c.HistoryDB
		if path == "" {
			path = history.DefaultPath()
		}
		store, err := history.Open(path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		observers = append(observers, store)
	}

	cfg := dashboard.Config{
		PollInterval: c.PollInterval,
		ErrorTTL:     c.ErrorTTL,
		Hostname:     c.Hostname,
		PlotType:     c.PlotType,
		DiscardStale: c.DiscardStale,
		Logger:       logger,
	}
	if len(observers) > 0 {
		cfg.Observer = observers
	}
	controller := dashboard.New(api, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- controller.Run(ctx) }()

	if c.NoTUI {
		err = c.print(a, controller.Subscribe())
	} else {
		_, err = tea.NewProgram(tui.New(controller, controller.Subscribe()), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if ctx.Err() != nil {
			err = nil
		}
	}
	cancel()
	if stopErr := <-runErr; stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func (c *WatchCmd) logger(g *Globals) (*zap.Logger, error) {
	if c.LogFile == "" && !c.NoTUI {
		return zap.NewNop(), nil
	}
	return newLogger(g.Verbose, g.Debug, c.LogFile)
}

// print renders every snapshot until the controller stops.
func (c *WatchCmd) print(a *app, updates <-chan dashboard.State) error {
	for state := range updates {
		if err := a.emit(state, func() string { return output.RenderPretty(state) }); err != nil {
			return err
		}
		if a.globals.Output != "json" {
			fmt.Println()
		}
	}
	return nil
}
