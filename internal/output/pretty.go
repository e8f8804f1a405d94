package output

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaxxstorm/dnsdash/internal/analyze"
	"github.com/jaxxstorm/dnsdash/internal/dashboard"
	"github.com/jaxxstorm/dnsdash/internal/history"
	"github.com/jaxxstorm/dnsdash/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	tabStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTab    = tabStyle.Bold(true).Foreground(lipgloss.Color("205")).Underline(true)
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)
)

// RenderPretty draws the full dashboard: resolver, resolution and attack cards,
// the active tab body and the error banner, if one is showing.
func RenderPretty(state dashboard.State) string {
	lines := []string{titleStyle.Render("dnsdash"), ""}
	if state.Banner != nil {
		lines = append(lines, bannerStyle.Render("error: "+state.Banner.Message), "")
	}

	lines = append(lines, renderResolver(state)...)
	lines = append(lines, "")
	lines = append(lines, renderResolution(state.Resolution)...)
	lines = append(lines, "")
	lines = append(lines, renderAttack(state)...)
	lines = append(lines, "", renderTabs(state.Tab), "")
	lines = append(lines, renderTabBody(state)...)

	if state.Dig != "" {
		lines = append(lines, "", labelStyle.Render("dig"), textStyle.Render(state.Dig))
	}
	return strings.Join(lines, "\n")
}

func renderResolver(state dashboard.State) []string {
	dnssec := warnStyle.Render("DNSSEC OFF")
	if state.DNSSECEnabled {
		dnssec = successStyle.Render("DNSSEC ON")
	}
	line := fmt.Sprintf("%s %s", labelStyle.Render("resolver"), dnssec)
	if state.Resolver.ResolverIP != "" {
		line += " " + textStyle.Render(state.Resolver.ResolverIP)
	}
	if state.Resolver.ResolverName != "" {
		line += " " + textStyle.Render("("+state.Resolver.ResolverName+")")
	}
	lines := []string{line}
	if status := state.Action(dashboard.ActionToggleDNSSEC); status.Busy {
		lines = append(lines, labelStyle.Render("  switching resolver..."))
	} else if status.Err != "" {
		lines = append(lines, failureStyle.Render("  toggle failed: "+status.Err))
	}
	return lines
}

func renderResolution(r model.Resolution) []string {
	if r.Hostname == "" {
		return []string{labelStyle.Render("resolution") + " " + textStyle.Render("pending")}
	}
	verdict := analyze.ResolutionOutcome(r)
	line := fmt.Sprintf("%s %s -> %s %s",
		labelStyle.Render("resolution"),
		textStyle.Render(r.Hostname),
		textStyle.Render(valueOr(r.ResolvedIP, "-")),
		outcomeStyle(verdict).Render(string(verdict)),
	)
	if r.ResolverIP != "" {
		line += " " + labelStyle.Render("via "+r.ResolverIP)
	}
	return []string{line}
}

func renderAttack(state dashboard.State) []string {
	running := textStyle.Render("idle")
	if state.AttackRunning {
		running = failureStyle.Render("RUNNING")
	}
	line := fmt.Sprintf("%s %s %s", labelStyle.Render("attack"), running,
		labelStyle.Render(fmt.Sprintf("(plain=%t dnssec=%t)", state.Attack.Plain, state.Attack.DNSSEC)))
	lines := []string{line}
	for _, action := range []dashboard.Action{dashboard.ActionStartAttack, dashboard.ActionStopAttack, dashboard.ActionClearCache} {
		status := state.Action(action)
		switch {
		case status.Busy:
			lines = append(lines, labelStyle.Render("  "+string(action)+"..."))
		case status.Err != "":
			lines = append(lines, failureStyle.Render("  "+string(action)+" failed: "+status.Err))
		}
	}
	return lines
}

func renderTabs(current model.Tab) string {
	parts := make([]string, 0, len(model.Tabs))
	for i, tab := range model.Tabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if tab == current {
			parts = append(parts, activeTab.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderTabBody(state dashboard.State) []string {
	switch state.Tab {
	case model.TabCapture:
		if state.Action(dashboard.ActionCapture).Busy {
			return []string{labelStyle.Render("capturing...")}
		}
		return []string{textStyle.Render(valueOr(state.Capture, "no capture yet"))}
	case model.TabLogs:
		return []string{textStyle.Render(valueOr(state.Logs, "no logs yet"))}
	case model.TabPlots:
		if state.Plot == nil {
			return []string{labelStyle.Render("loading plot...")}
		}
		return []string{RenderPlot(state.Plot)}
	default:
		return []string{labelStyle.Render("website") + " " + textStyle.Render(state.WebsiteURL)}
	}
}

// RenderPlot draws a plot payload as horizontal bars: top-level numbers as
// one chart, and each object of numbers (one per resolver) as its own group
// with bars scaled per metric across groups.
func RenderPlot(data model.PlotData) string {
	lines := renderBars(data.Counts(), "")

	groups := data.Groups()
	groupNames := make([]string, 0, len(groups))
	scale := map[string]float64{}
	for name, values := range groups {
		groupNames = append(groupNames, name)
		for metric, value := range values {
			scale[metric] = math.Max(scale[metric], math.Abs(value))
		}
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		lines = append(lines, titleStyle.Render(name))
		lines = append(lines, renderScaledBars(groups[name], scale, "  ")...)
	}

	if note := data.Note(); note != "" {
		lines = append(lines, labelStyle.Render(note))
	}
	if len(lines) == 0 {
		return labelStyle.Render("no plot data")
	}
	return strings.Join(lines, "\n")
}

func renderBars(values map[string]float64, indent string) []string {
	scale := map[string]float64{}
	maxAbs := 0.0
	for _, value := range values {
		maxAbs = math.Max(maxAbs, math.Abs(value))
	}
	for key := range values {
		scale[key] = maxAbs
	}
	return renderScaledBars(values, scale, indent)
}

// renderScaledBars draws one bar per key, sized by |value| / scale[key].
// Negative values are drawn in the warning colour.
func renderScaledBars(values map[string]float64, scale map[string]float64, indent string) []string {
	keys := make([]string, 0, len(values))
	width := 0
	for key := range values {
		keys = append(keys, key)
		width = max(width, len(key))
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		value := values[key]
		bar := 0
		if scale[key] > 0 {
			bar = int(math.Round(math.Abs(value) / scale[key] * 30))
		}
		style := failureStyle
		if value < 0 {
			style = warnStyle
		}
		lines = append(lines, fmt.Sprintf("%s%s %s %s",
			indent,
			labelStyle.Render(fmt.Sprintf("%-*s", width, key)),
			style.Render(strings.Repeat("█", max(bar, 0))),
			textStyle.Render(formatCount(value)),
		))
	}
	return lines
}

// RenderProbe prints a direct resolver probe one step per line.
func RenderProbe(result model.ProbeResult) string {
	lines := []string{titleStyle.Render("dnsdash probe " + result.Hostname), ""}
	for _, step := range result.Steps {
		style := outcomeStyle(analyze.OutcomeKind(step.Outcome))
		line := fmt.Sprintf("%s %02d %s %s %s -> %s", style.Render(step.Outcome), step.Index+1, step.Server, step.QueryName, step.QueryType, step.Rcode)
		if step.Error != "" {
			line = fmt.Sprintf("%s %02d %s %s %s -> error: %s", style.Render(step.Outcome), step.Index+1, step.Server, step.QueryName, step.QueryType, step.Error)
		}
		if step.Authenticated {
			line += " ad"
		}
		if step.RTT != "" {
			line += " rtt=" + step.RTT
		}
		if len(step.Answers) > 0 {
			line += " answers=" + strings.Join(step.Answers, " | ")
		}
		lines = append(lines, textStyle.Render(line))
	}

	lines = append(lines, "")
	summary := fmt.Sprintf("%s %s", result.Diagnosis.Classification, result.Diagnosis.Summary)
	lines = append(lines, outcomeStyle(analyze.OutcomeKind(result.Diagnosis.Classification)).Render(summary))
	if len(result.Diagnosis.Hints) > 0 {
		lines = append(lines, "Hints:")
		for _, hint := range result.Diagnosis.Hints {
			lines = append(lines, "- "+hint)
		}
	}
	return strings.Join(lines, "\n")
}

// RenderHistory prints the per-mode summary of recorded resolutions.
func RenderHistory(summaries []history.ModeSummary) string {
	if len(summaries) == 0 {
		return labelStyle.Render("no resolutions recorded")
	}
	lines := []string{titleStyle.Render("dnsdash history"), ""}
	for _, s := range summaries {
		rate := fmt.Sprintf("%.1f%%", s.PoisonRate*100)
		rateStyle := successStyle
		if s.Poisoned > 0 {
			rateStyle = failureStyle
		}
		lines = append(lines, fmt.Sprintf("%s total=%d correct=%d poisoned=%d %s",
			labelStyle.Render(fmt.Sprintf("%-6s", s.Mode)), s.Total, s.Correct, s.Poisoned, rateStyle.Render(rate)))
	}
	return strings.Join(lines, "\n")
}

func outcomeStyle(kind analyze.OutcomeKind) lipgloss.Style {
	switch kind {
	case analyze.OutcomeCorrect:
		return successStyle
	case analyze.OutcomePoisoned, analyze.OutcomeFailed:
		return failureStyle
	default:
		return warnStyle
	}
}

func formatCount(value float64) string {
	if value == math.Trunc(value) {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%.2f", value)
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
