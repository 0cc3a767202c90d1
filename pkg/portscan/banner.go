package portscan

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/zan8in/hefest/pkg/utils"
)

const httpProbe = "GET / HTTP/1.0\r\nHost: %s\r\n\r\n"

// drainGap is how long the grabber keeps waiting for more data once the
// peer has started talking.
const drainGap = 150 * time.Millisecond

// bannerProbe describes how to coax a banner out of a port.
type bannerProbe struct {
	payload string
	tls     bool
}

// probeTable maps ports to their probe. Ports not listed are read passively.
var probeTable = map[int]bannerProbe{
	80:   {payload: httpProbe},
	81:   {payload: httpProbe},
	8000: {payload: httpProbe},
	8008: {payload: httpProbe},
	8080: {payload: httpProbe},
	8081: {payload: httpProbe},
	8888: {payload: httpProbe},
	443:  {payload: httpProbe, tls: true},
	8443: {payload: httpProbe, tls: true},
	465:  {tls: true},
	993:  {tls: true},
	995:  {tls: true},
}

// Grabber reads a bounded banner from an open connection.
type Grabber struct {
	Timeout  time.Duration
	MaxBytes int
}

func NewGrabber(timeout time.Duration, maxBytes int) *Grabber {
	return &Grabber{Timeout: timeout, MaxBytes: maxBytes}
}

// Grab sends the probe for port, if any, and reads at most MaxBytes within
// Timeout. It always closes conn. A silent or failing peer yields an empty
// banner. raw holds the bytes as received.
func (g *Grabber) Grab(ctx context.Context, conn net.Conn, host string, port int) (banner string, raw []byte) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline := time.Now().Add(g.Timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return "", nil
	}

	p := probeTable[port]
	rw := conn
	if p.tls {
		tc := tls.Client(conn, &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         serverName(host),
		})
		if err := tc.HandshakeContext(ctx); err != nil {
			return "", nil
		}
		rw = tc
	}

	if p.payload != "" {
		if _, err := fmt.Fprintf(rw, p.payload, host); err != nil {
			return "", nil
		}
	}

	raw = readBounded(rw, g.MaxBytes, deadline)
	if len(raw) == 0 {
		return "", nil
	}
	return utils.Truncate(utils.DecodeBanner(raw), g.MaxBytes), raw
}

// readBounded reads until max bytes, EOF, an error or the deadline.
func readBounded(conn net.Conn, max int, deadline time.Time) []byte {
	buf := make([]byte, max)
	n := 0
	for n < max {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			break
		}
		if m > 0 {
			idle := time.Now().Add(drainGap)
			if idle.Before(deadline) {
				conn.SetReadDeadline(idle)
			}
		}
	}
	return buf[:n]
}

// serverName returns host for SNI, or empty for IP literals.
func serverName(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}
	return host
}
