package dnsclient

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func TestAutoFallbackToTCPOnTruncation(t *testing.T) {
	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if w.RemoteAddr().Network() == "udp" {
			m.Truncated = true
			_ = w.WriteMsg(m)
			return
		}
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.ParseIP("10.5.0.10"),
		})
		_ = w.WriteMsg(m)
	})

	udpConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("udp listen: %v", err)
	}
	defer udpConn.Close()

	addr := udpConn.LocalAddr().String()
	tcpLn, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("tcp listen: %v", err)
	}
	defer tcpLn.Close()

	udpSrv := &dns.Server{PacketConn: udpConn, Handler: mux}
	tcpSrv := &dns.Server{Listener: tcpLn, Handler: mux}

	go func() { _ = udpSrv.ActivateAndServe() }()
	go func() { _ = tcpSrv.ActivateAndServe() }()
	defer udpSrv.Shutdown()
	defer tcpSrv.Shutdown()

	client := New(Options{Mode: ModeAuto, Recursion: true, Timeout: 500 * time.Millisecond})
	msg := client.BuildQuery("www.victim.local", dns.TypeA)
	resp, _, transport, err := client.Exchange(context.Background(), addr, msg)
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if transport != "tcp" {
		t.Fatalf("expected tcp transport, got %s", transport)
	}
	addrs := Addresses(resp.Answer)
	if len(addrs) != 1 || addrs[0] != "10.5.0.10" {
		t.Fatalf("unexpected addresses after tcp fallback: %#v", addrs)
	}
}

func TestBuildQueryFlags(t *testing.T) {
	client := New(Options{DNSSEC: true, Recursion: true})
	msg := client.BuildQuery("www.victim.local", dns.TypeA)
	if !msg.RecursionDesired {
		t.Fatalf("expected RD bit")
	}
	opt := msg.IsEdns0()
	if opt == nil || !opt.Do() {
		t.Fatalf("expected EDNS0 with DO bit")
	}
	if opt.UDPSize() != ednsBufferSize {
		t.Fatalf("expected udp size %d, got %d", ednsBufferSize, opt.UDPSize())
	}
	if msg.Question[0].Name != "www.victim.local." {
		t.Fatalf("expected fqdn question, got %s", msg.Question[0].Name)
	}
}

func TestRetriesExhausted(t *testing.T) {
	transport := &MockTransport{Responder: func(server string, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
		return nil, 0, errors.New("i/o timeout")
	}}
	client := NewWithTransports(Options{Mode: ModeUDP, Retries: 3}, transport, transport)
	_, _, _, err := client.Exchange(context.Background(), "10.5.0.53", client.BuildQuery("www.victim.local", dns.TypeA))
	if err == nil {
		t.Fatalf("expected error")
	}
	if transport.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", transport.Calls())
	}
}

func TestNormalizeServer(t *testing.T) {
	cases := map[string]string{
		"10.5.0.53":      "10.5.0.53:53",
		"10.5.0.53:5353": "10.5.0.53:5353",
		"::1":            "[::1]:53",
		"[::1]":          "[::1]:53",
	}
	for in, want := range cases {
		if got := NormalizeServer(in); got != want {
			t.Fatalf("NormalizeServer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmptyResponseIsAnError(t *testing.T) {
	transport := &MockTransport{}
	client := NewWithTransports(Options{Mode: ModeUDP}, transport, transport)
	if _, _, _, err := client.Exchange(context.Background(), "10.5.0.53", client.BuildQuery("www.victim.local", dns.TypeA)); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
