package dashboard

import (
	"context"

	"github.com/jaxxstorm/dnsdash/internal/model"
)

// ToggleDNSSEC asks the backend to flip DNSSEC. On success resolver info and
// resolution are refreshed; the action stays busy until both have completed.
func (c *Controller) ToggleDNSSEC() error {
	return c.perform(c.toggleDNSSEC)
}

// StartAttack starts the attacker for the current mode.
func (c *Controller) StartAttack() error {
	return c.perform(c.startAttack)
}

// StopAttack stops every attacker.
func (c *Controller) StopAttack() error {
	return c.perform(c.stopAttack)
}

// ClearCache flushes the current mode's resolver cache, then re-resolves.
func (c *Controller) ClearCache() error {
	return c.perform(c.clearCache)
}

// SetTab switches the view. Capture, logs and plots fetch their data on entry.
func (c *Controller) SetTab(tab model.Tab) error {
	if _, err := model.ParseTab(string(tab)); err != nil {
		return err
	}
	return c.perform(func() { c.setTab(tab) })
}

func (c *Controller) LoadDig() error {
	return c.perform(c.loadDig)
}

func (c *Controller) LoadCapture() error {
	return c.perform(c.loadCapture)
}

func (c *Controller) LoadLogs() error {
	return c.perform(c.loadLogs)
}

func (c *Controller) LoadPlot() error {
	return c.perform(c.loadPlot)
}

// Refresh runs one poll tick immediately.
func (c *Controller) Refresh() error {
	return c.perform(c.poll)
}

func (c *Controller) poll() {
	c.loadResolution(nil)
	c.loadAttackStatus(nil)
}

func (c *Controller) setTab(tab model.Tab) {
	c.state.Tab = tab
	switch tab {
	case model.TabCapture:
		c.loadCapture()
	case model.TabLogs:
		c.loadLogs()
	case model.TabPlots:
		c.loadPlot()
	}
}

func (c *Controller) loadResolver(then func()) {
	issue(c, "resolver", c.api.CurrentResolver, func(seq uint64, info model.ResolverInfo) {
		if !c.accept(FieldResolver, seq) {
			return
		}
		c.state.Resolver = info
		c.state.DNSSECEnabled = info.DNSSECEnabled
	}, nil, then)
}

func (c *Controller) loadResolution(then func()) {
	hostname := c.cfg.Hostname
	issue(c, "resolve", func(ctx context.Context) (model.Resolution, error) {
		return c.api.Resolve(ctx, hostname)
	}, func(seq uint64, r model.Resolution) {
		if !c.accept(FieldResolution, seq) {
			return
		}
		c.state.Resolution = r
		if c.observe != nil {
			mode := c.state.Mode()
			if r.ResolverType != "" {
				if parsed, err := model.ParseMode(r.ResolverType); err == nil {
					mode = parsed
				}
			}
			c.observe <- observation{mode: mode, resolution: r}
		}
	}, nil, then)
}

// loadAttackStatus interprets the per-mode flags with the mode current when
// the response is applied.
func (c *Controller) loadAttackStatus(then func()) {
	issue(c, "attack-status", c.api.AttackStatus, func(seq uint64, status model.AttackStatus) {
		if !c.accept(FieldAttack, seq) {
			return
		}
		c.state.Attack = status
		c.state.AttackRunning = status.Running(c.state.Mode())
	}, nil, then)
}

// followUp issues the given refreshes and finishes action once all of them
// have completed.
func (c *Controller) followUp(action Action, loads ...func(then func())) {
	remaining := len(loads)
	if remaining == 0 {
		c.finish(action)
		return
	}
	for _, load := range loads {
		load(func() {
			remaining--
			if remaining == 0 {
				c.finish(action)
			}
		})
	}
}

func (c *Controller) toggleDNSSEC() {
	c.begin(ActionToggleDNSSEC)
	enabled := !c.state.DNSSECEnabled
	issue(c, "toggle-dnssec", func(ctx context.Context) (model.ToggleResult, error) {
		return c.api.ToggleDNSSEC(ctx, enabled)
	}, func(seq uint64, res model.ToggleResult) {
		if c.accept(FieldResolver, seq) {
			c.state.DNSSECEnabled = res.DNSSECEnabled
			c.state.Resolver.DNSSECEnabled = res.DNSSECEnabled
			c.state.Resolver.ResolverIP = res.ResolverIP
		}
		c.followUp(ActionToggleDNSSEC, c.loadResolver, c.loadResolution)
	}, func(error) {
		c.fail(ActionToggleDNSSEC)
		c.finish(ActionToggleDNSSEC)
	}, nil)
}

func (c *Controller) startAttack() {
	c.begin(ActionStartAttack)
	mode := c.state.Mode()
	issue(c, "attack-start", func(ctx context.Context) (model.Ack, error) {
		return c.api.StartAttack(ctx, mode)
	}, func(seq uint64, _ model.Ack) {
		if c.accept(FieldAttack, seq) {
			c.state.AttackRunning = true
		}
		c.followUp(ActionStartAttack, c.loadAttackStatus)
	}, func(error) {
		c.fail(ActionStartAttack)
		c.finish(ActionStartAttack)
	}, nil)
}

func (c *Controller) stopAttack() {
	c.begin(ActionStopAttack)
	issue(c, "attack-stop", c.api.StopAttack, func(seq uint64, _ model.Ack) {
		if c.accept(FieldAttack, seq) {
			c.state.AttackRunning = false
		}
		c.followUp(ActionStopAttack, c.loadAttackStatus)
	}, func(error) {
		c.fail(ActionStopAttack)
		c.finish(ActionStopAttack)
	}, nil)
}

func (c *Controller) clearCache() {
	c.begin(ActionClearCache)
	mode := c.state.Mode()
	issue(c, "cache-clear", func(ctx context.Context) (model.Ack, error) {
		return c.api.ClearCache(ctx, mode)
	}, func(_ uint64, _ model.Ack) {
		c.followUp(ActionClearCache, c.loadResolution)
	}, func(error) {
		c.fail(ActionClearCache)
		c.finish(ActionClearCache)
	}, nil)
}

func (c *Controller) loadDig() {
	mode := c.state.Mode()
	issue(c, "dig", func(ctx context.Context) (model.DigOutput, error) {
		return c.api.Dig(ctx, mode)
	}, func(seq uint64, out model.DigOutput) {
		if c.accept(FieldDig, seq) {
			c.state.Dig = out.Output
		}
	}, nil, nil)
}

func (c *Controller) loadCapture() {
	c.begin(ActionCapture)
	mode := c.state.Mode()
	issue(c, "tcpdump", func(ctx context.Context) (model.CaptureOutput, error) {
		return c.api.Capture(ctx, mode)
	}, func(seq uint64, out model.CaptureOutput) {
		if c.accept(FieldCapture, seq) {
			c.state.Capture = out.Tcpdump
		}
	}, func(error) {
		c.fail(ActionCapture)
	}, func() {
		c.finish(ActionCapture)
	})
}

func (c *Controller) loadLogs() {
	mode := c.state.Mode()
	issue(c, "logs", func(ctx context.Context) (model.LogOutput, error) {
		return c.api.Logs(ctx, mode)
	}, func(seq uint64, out model.LogOutput) {
		if c.accept(FieldLogs, seq) {
			c.state.Logs = out.Logs
		}
	}, nil, nil)
}

func (c *Controller) loadPlot() {
	plotType := c.cfg.PlotType
	issue(c, "plot-data", func(ctx context.Context) (model.PlotData, error) {
		return c.api.PlotData(ctx, plotType)
	}, func(seq uint64, data model.PlotData) {
		if c.accept(FieldPlot, seq) {
			c.state.Plot = data
		}
	}, nil, nil)
}
