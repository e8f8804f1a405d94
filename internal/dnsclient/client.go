package dnsclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// ednsBufferSize is the UDP payload size advertised in every query.
const ednsBufferSize = 1232

type Mode string

const (
	ModeUDP  Mode = "udp"
	ModeTCP  Mode = "tcp"
	ModeAuto Mode = "auto"
)

type Options struct {
	// DNSSEC sets the DO bit so a validating resolver reports AD.
	DNSSEC    bool
	Recursion bool
	Mode      Mode
	Timeout   time.Duration
	Retries   int
	Logger    *zap.Logger
}

type Client struct {
	opts Options
	udp  Transport
	tcp  Transport
}

func New(opts Options) *Client {
	return NewWithTransports(opts, &netTransport{network: "udp", timeout: opts.Timeout}, &netTransport{network: "tcp", timeout: opts.Timeout})
}

func NewWithTransports(opts Options, udp Transport, tcp Transport) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 1
	}
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{opts: opts, udp: udp, tcp: tcp}
}

func (c *Client) BuildQuery(name string, qtype uint16) *dns.Msg {
	msg := &dns.Msg{}
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = c.opts.Recursion
	msg.SetEdns0(ednsBufferSize, c.opts.DNSSEC)
	return msg
}

// Exchange sends msg to server and reports which transport produced the answer.
// In auto mode a truncated UDP reply is retried over TCP.
func (c *Client) Exchange(ctx context.Context, server string, msg *dns.Msg) (*dns.Msg, time.Duration, string, error) {
	server = NormalizeServer(server)
	switch c.opts.Mode {
	case ModeUDP, ModeTCP:
		transport := c.udp
		if c.opts.Mode == ModeTCP {
			transport = c.tcp
		}
		resp, rtt, err := c.try(ctx, transport, server, msg, string(c.opts.Mode))
		return resp, rtt, string(c.opts.Mode), err
	case ModeAuto:
		resp, rtt, err := c.try(ctx, c.udp, server, msg, "udp")
		if err != nil || resp == nil || !resp.Truncated {
			return resp, rtt, "udp", err
		}
		c.opts.Logger.Debug("udp truncated, retrying with tcp", zap.String("server", server))
		resp, rtt, err = c.try(ctx, c.tcp, server, msg, "tcp")
		return resp, rtt, "tcp", err
	default:
		return nil, 0, "", fmt.Errorf("unsupported transport mode: %s", c.opts.Mode)
	}
}

func (c *Client) try(ctx context.Context, transport Transport, server string, msg *dns.Msg, network string) (*dns.Msg, time.Duration, error) {
	log := c.opts.Logger.With(zap.String("transport", network), zap.String("server", server))
	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		resp, rtt, err := transport.Exchange(ctx, server, msg.Copy())
		if err == nil && resp == nil {
			err = errors.New("empty dns response")
		}
		if err == nil {
			log.Debug("dns answer",
				zap.String("rcode", dns.RcodeToString[resp.Rcode]),
				zap.Int("answers", len(resp.Answer)),
				zap.Bool("ad", resp.AuthenticatedData),
				zap.Duration("rtt", rtt),
			)
			return resp, rtt, nil
		}
		log.Debug("dns attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("dns exchange failed")
	}
	return nil, 0, lastErr
}

// NormalizeServer appends the DNS port when the address carries none.
func NormalizeServer(server string) string {
	if server == "" {
		return server
	}
	if strings.HasPrefix(server, "[") {
		if strings.Contains(server, "]:") {
			return server
		}
		return server + ":53"
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	if strings.Contains(server, ":") {
		return "[" + server + "]:53"
	}
	return server + ":53"
}

// Addresses extracts A and AAAA values from an answer section.
func Addresses(rrs []dns.RR) []string {
	out := []string{}
	for _, rr := range rrs {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		}
	}
	return out
}
