// Package probe queries lab resolvers directly and judges their answers
// against the known genuine and forged addresses.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/analyze"
	"github.com/jaxxstorm/dnsdash/internal/dnsclient"
	"github.com/jaxxstorm/dnsdash/internal/model"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

type Config struct {
	Timeout time.Duration
	Expect  analyze.Expectation
	Logger  *zap.Logger
}

// Run sends one recursive A query per resolver, in order.
func Run(ctx context.Context, client *dnsclient.Client, resolvers []string, hostname string, cfg Config) (model.ProbeResult, error) {
	if len(resolvers) == 0 {
		return model.ProbeResult{}, fmt.Errorf("no resolvers to probe")
	}
	if strings.TrimSpace(hostname) == "" {
		hostname = model.DefaultHostname
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Expect == (analyze.Expectation{}) {
		cfg.Expect = analyze.LabExpectation
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	result := model.ProbeResult{Hostname: dns.Fqdn(hostname)}
	for i, resolver := range resolvers {
		resolver = dnsclient.NormalizeServer(resolver)
		query := client.BuildQuery(hostname, dns.TypeA)

		ctxReq, cancel := context.WithTimeout(ctx, cfg.Timeout)
		resp, rtt, transport, err := client.Exchange(ctxReq, resolver, query)
		cancel()

		step := model.ProbeStep{
			Index:     i,
			Server:    resolver,
			QueryName: dns.Fqdn(hostname),
			QueryType: dns.TypeToString[dns.TypeA],
			Transport: transport,
			RTT:       rtt.String(),
			Timestamp: time.Now(),
		}

		switch {
		case err != nil:
			step.Error = err.Error()
			step.Outcome = string(analyze.OutcomeFailed)
			cfg.Logger.Info("probe failed", zap.String("server", resolver), zap.Error(err))
		case resp == nil:
			step.Error = "empty response"
			step.Outcome = string(analyze.OutcomeFailed)
		default:
			step.Rcode = dns.RcodeToString[resp.Rcode]
			step.Authenticated = resp.AuthenticatedData
			step.Answers = rrStrings(resp.Answer)
			step.Addresses = dnsclient.Addresses(resp.Answer)
			step.Outcome = string(analyze.Classify(cfg.Expect, step.Addresses))
		}
		result.Steps = append(result.Steps, step)
	}

	result.Diagnosis = diagnose(result, cfg.Expect)
	return result, nil
}

func diagnose(result model.ProbeResult, exp analyze.Expectation) model.Diagnosis {
	firstPoisoned := -1
	firstUnexpected := -1
	firstNoAnswer := -1
	firstFailed := -1
	correct := 0
	for _, step := range result.Steps {
		switch analyze.OutcomeKind(step.Outcome) {
		case analyze.OutcomePoisoned:
			if firstPoisoned == -1 {
				firstPoisoned = step.Index
			}
		case analyze.OutcomeUnexpected:
			if firstUnexpected == -1 {
				firstUnexpected = step.Index
			}
		case analyze.OutcomeNoAnswer:
			if firstNoAnswer == -1 {
				firstNoAnswer = step.Index
			}
		case analyze.OutcomeFailed:
			if firstFailed == -1 {
				firstFailed = step.Index
			}
		case analyze.OutcomeCorrect:
			correct++
		}
	}

	switch {
	case firstPoisoned >= 0:
		return analyze.Diagnose(analyze.Outcome{
			Kind:         analyze.OutcomePoisoned,
			Summary:      fmt.Sprintf("%s answered with forged address %s", result.Steps[firstPoisoned].Server, exp.ForgedIP),
			EvidenceStep: firstPoisoned,
			Hints:        []string{"clear the resolver cache", "compare against the DNSSEC-validating resolver"},
		})
	case firstUnexpected >= 0:
		return analyze.Diagnose(analyze.Outcome{Kind: analyze.OutcomeUnexpected, Summary: "resolver returned an address outside the lab plan", EvidenceStep: firstUnexpected})
	case firstNoAnswer >= 0:
		return analyze.Diagnose(analyze.Outcome{Kind: analyze.OutcomeNoAnswer, Summary: "resolver returned no A records", EvidenceStep: firstNoAnswer})
	case firstFailed >= 0 && correct == 0:
		return analyze.Diagnose(analyze.Outcome{
			Kind:         analyze.OutcomeFailed,
			Summary:      "no resolver answered",
			EvidenceStep: firstFailed,
			Hints:        []string{"check reachability of the lab network", "retry with --transport tcp"},
		})
	case firstFailed >= 0:
		return analyze.Diagnose(analyze.Outcome{Kind: analyze.OutcomeFailed, Summary: "some resolvers did not answer", EvidenceStep: firstFailed})
	default:
		return analyze.Diagnose(analyze.Outcome{Kind: analyze.OutcomeCorrect, Summary: "all resolvers returned the genuine address", EvidenceStep: -1})
	}
}

func rrStrings(rrs []dns.RR) []string {
	out := []string{}
	for _, rr := range rrs {
		out = append(out, strings.Join(strings.Fields(rr.String()), " "))
	}
	return out
}
