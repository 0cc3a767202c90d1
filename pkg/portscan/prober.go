package portscan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/proxy"
)

// Probe is the outcome of one connection attempt. Conn is set only when
// State is open, and the caller owns it from then on.
type Probe struct {
	State   PortState
	Reason  string
	Latency time.Duration
	Conn    net.Conn
}

// Prober attempts one TCP connection to ip:port within timeout.
type Prober interface {
	Probe(ctx context.Context, ip string, port int, timeout time.Duration) Probe
}

// TCPProber connects directly or through a proxy dialer.
type TCPProber struct {
	dialer proxy.Dialer
}

// NewTCPProber returns a prober dialing through proxyURL when it is set.
func NewTCPProber(proxyURL string) (*TCPProber, error) {
	p := &TCPProber{}
	if proxyURL == "" {
		return p, nil
	}
	dialer, err := newProxyDialer(proxyURL)
	if err != nil {
		return nil, err
	}
	p.dialer = dialer
	return p, nil
}

func (p *TCPProber) Probe(ctx context.Context, ip string, port int, timeout time.Duration) Probe {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	start := time.Now()
	conn, err := p.dial(ctx, addr)
	latency := time.Since(start)
	if err != nil {
		state, reason := classifyDialError(ctx, err)
		return Probe{State: state, Reason: reason, Latency: latency}
	}
	return Probe{State: PortStateOpen, Latency: latency, Conn: conn}
}

func (p *TCPProber) dial(ctx context.Context, addr string) (net.Conn, error) {
	if p.dialer == nil {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
	if cd, ok := p.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := p.dialer.Dial("tcp", addr)
		ch <- dialResult{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		// close the late connection so nothing leaks
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// classifyDialError maps a dial failure to closed or filtered.
func classifyDialError(ctx context.Context, err error) (PortState, string) {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return PortStateClosed, "connection refused"
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return PortStateFiltered, "cancelled"
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return PortStateFiltered, "timeout"
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return PortStateFiltered, "unreachable"
	}
	msg := err.Error()
	// proxies report refusals as plain text
	if strings.Contains(strings.ToLower(msg), "refused") {
		return PortStateClosed, "connection refused"
	}
	return PortStateFiltered, msg
}
