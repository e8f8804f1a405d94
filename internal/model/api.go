package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultHostname = "www.victim.local"
	DefaultPlotType = "attack"
)

// Mode selects which lab resolver a mode-scoped call targets.
type Mode string

const (
	ModePlain  Mode = "plain"
	ModeDNSSEC Mode = "dnssec"
)

func ModeFor(dnssecEnabled bool) Mode {
	if dnssecEnabled {
		return ModeDNSSEC
	}
	return ModePlain
}

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModePlain:
		return ModePlain, nil
	case ModeDNSSEC:
		return ModeDNSSEC, nil
	default:
		return "", fmt.Errorf("unknown resolver mode: %q", value)
	}
}

// Tab is the active dashboard view.
type Tab string

const (
	TabWebsite Tab = "website"
	TabCapture Tab = "capture"
	TabLogs    Tab = "logs"
	TabPlots   Tab = "plots"
)

var Tabs = []Tab{TabWebsite, TabCapture, TabLogs, TabPlots}

func ParseTab(value string) (Tab, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "tcpdump" {
		return TabCapture, nil
	}
	for _, tab := range Tabs {
		if string(tab) == value {
			return tab, nil
		}
	}
	return "", fmt.Errorf("unknown tab: %q", value)
}

type Health struct {
	Status string `json:"status"`
}

type ResolverInfo struct {
	DNSSECEnabled bool   `json:"dnssec_enabled"`
	ResolverType  string `json:"resolver_type,omitempty"`
	ResolverIP    string `json:"resolver_ip"`
	ResolverName  string `json:"resolver_name,omitempty"`
}

type ToggleResult struct {
	DNSSECEnabled bool   `json:"dnssec_enabled"`
	ResolverIP    string `json:"resolver_ip"`
	Message       string `json:"message,omitempty"`
}

type Resolution struct {
	Hostname      string `json:"hostname"`
	ResolvedIP    string `json:"resolved_ip"`
	ResolverType  string `json:"resolver_type,omitempty"`
	ResolverIP    string `json:"resolver_ip,omitempty"`
	DNSSECEnabled bool   `json:"dnssec_enabled"`
	IsPoisoned    bool   `json:"is_poisoned"`
	IsCorrect     bool   `json:"is_correct"`
}

type AttackStatus struct {
	Plain      bool `json:"plain"`
	DNSSEC     bool `json:"dnssec"`
	AnyRunning bool `json:"any_running"`
}

// Running reports the attack state for one resolver mode.
func (s AttackStatus) Running(mode Mode) bool {
	if mode == ModeDNSSEC {
		return s.DNSSEC
	}
	return s.Plain
}

// Ack is the generic acknowledgement returned by control endpoints.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

type DigOutput struct {
	Resolver string `json:"resolver"`
	Output   string `json:"output"`
}

type CaptureOutput struct {
	Resolver string `json:"resolver"`
	Tcpdump  string `json:"tcpdump"`
}

type LogOutput struct {
	Resolver string `json:"resolver"`
	Logs     string `json:"logs"`
}

type DNSSECStatus struct {
	Status string `json:"status"`
}

// PlotData is passed through untouched; helpers only read well-known keys.
type PlotData map[string]json.RawMessage

// Note returns the backend's "note" field, if any.
func (p PlotData) Note() string {
	raw, ok := p["note"]
	if !ok {
		return ""
	}
	var note string
	if err := json.Unmarshal(raw, &note); err != nil {
		return ""
	}
	return note
}

// Counts returns every numeric top-level entry, as used by the "attack" plot.
func (p PlotData) Counts() map[string]float64 {
	out := map[string]float64{}
	for key, raw := range p {
		var value float64
		if err := json.Unmarshal(raw, &value); err == nil {
			out[key] = value
		}
	}
	return out
}

// Groups returns every top-level object whose members include numbers, as in
// the "performance" plot ({resolver: {avg_latency_ms: ...}}). Non-numeric
// members are skipped.
func (p PlotData) Groups() map[string]map[string]float64 {
	out := map[string]map[string]float64{}
	for key, raw := range p {
		var members map[string]json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil {
			continue
		}
		values := map[string]float64{}
		for name, member := range members {
			var value float64
			if err := json.Unmarshal(member, &value); err == nil {
				values[name] = value
			}
		}
		if len(values) > 0 {
			out[key] = values
		}
	}
	return out
}
