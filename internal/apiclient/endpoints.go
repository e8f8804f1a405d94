package apiclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/jaxxstorm/dnsdash/internal/model"
)

func (c *Client) Health(ctx context.Context) (model.Health, error) {
	var out model.Health
	err := c.get(ctx, "health", "/health", nil, &out)
	return out, err
}

func (c *Client) CurrentResolver(ctx context.Context) (model.ResolverInfo, error) {
	var out model.ResolverInfo
	err := c.get(ctx, "resolver", "/resolver/current", nil, &out)
	return out, err
}

func (c *Client) ToggleDNSSEC(ctx context.Context, enabled bool) (model.ToggleResult, error) {
	var out model.ToggleResult
	body := struct {
		Enabled bool `json:"enabled"`
	}{Enabled: enabled}
	err := c.post(ctx, "toggle-dnssec", "/dnssec/toggle", nil, body, &out)
	return out, err
}

func (c *Client) Resolve(ctx context.Context, hostname string) (model.Resolution, error) {
	var out model.Resolution
	query := url.Values{"hostname": {hostnameOrDefault(hostname)}}
	err := c.get(ctx, "resolve", "/dns/resolve", query, &out)
	return out, err
}

func (c *Client) AttackStatus(ctx context.Context) (model.AttackStatus, error) {
	var out model.AttackStatus
	err := c.get(ctx, "attack-status", "/attack/status", nil, &out)
	return out, err
}

// StartAttack omits the mode parameter when mode is empty, leaving the
// choice to the backend's current resolver.
func (c *Client) StartAttack(ctx context.Context, mode model.Mode) (model.Ack, error) {
	var out model.Ack
	var query url.Values
	if mode != "" {
		query = url.Values{"mode": {string(mode)}}
	}
	err := c.post(ctx, "attack-start", "/attack/start", query, nil, &out)
	return out, err
}

func (c *Client) StopAttack(ctx context.Context) (model.Ack, error) {
	var out model.Ack
	err := c.post(ctx, "attack-stop", "/attack/stop", nil, nil, &out)
	return out, err
}

func (c *Client) Dig(ctx context.Context, mode model.Mode) (model.DigOutput, error) {
	var out model.DigOutput
	err := c.get(ctx, "dig", "/dig", resolverQuery(mode), &out)
	return out, err
}

func (c *Client) Capture(ctx context.Context, mode model.Mode) (model.CaptureOutput, error) {
	var out model.CaptureOutput
	err := c.get(ctx, "tcpdump", "/tcpdump", resolverQuery(mode), &out)
	return out, err
}

func (c *Client) Logs(ctx context.Context, mode model.Mode) (model.LogOutput, error) {
	var out model.LogOutput
	err := c.get(ctx, "logs", "/logs", resolverQuery(mode), &out)
	return out, err
}

func (c *Client) ClearCache(ctx context.Context, mode model.Mode) (model.Ack, error) {
	var out model.Ack
	err := c.post(ctx, "cache-clear", "/cache/clear", resolverQuery(mode), nil, &out)
	return out, err
}

func (c *Client) PlotData(ctx context.Context, plotType string) (model.PlotData, error) {
	if strings.TrimSpace(plotType) == "" {
		plotType = model.DefaultPlotType
	}
	out := model.PlotData{}
	err := c.get(ctx, "plot-data", "/plot/data", url.Values{"type": {plotType}}, &out)
	return out, err
}

func (c *Client) DNSSECStatus(ctx context.Context) (model.DNSSECStatus, error) {
	var out model.DNSSECStatus
	err := c.get(ctx, "dnssec-status", "/dnssec/status", nil, &out)
	return out, err
}

// WebsiteURL builds the proxied website address. It performs no I/O.
func (c *Client) WebsiteURL(hostname string) string {
	return c.endpoint("/proxy/website", url.Values{"hostname": {hostnameOrDefault(hostname)}})
}

func hostnameOrDefault(hostname string) string {
	if strings.TrimSpace(hostname) == "" {
		return model.DefaultHostname
	}
	return hostname
}

func resolverQuery(mode model.Mode) url.Values {
	if mode == "" {
		mode = model.ModePlain
	}
	return url.Values{"resolver": {string(mode)}}
}
