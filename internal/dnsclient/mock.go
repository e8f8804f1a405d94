package dnsclient

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

// MockTransport answers through Responder and counts exchanges.
type MockTransport struct {
	Responder func(server string, msg *dns.Msg) (*dns.Msg, time.Duration, error)
	calls     atomic.Int64
}

func (m *MockTransport) Exchange(ctx context.Context, server string, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
	m.calls.Add(1)
	if m.Responder == nil {
		return nil, 0, nil
	}
	return m.Responder(server, msg)
}

func (m *MockTransport) Calls() int {
	return int(m.calls.Load())
}
