package portscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/xid"
	"github.com/zan8in/gologger"
	"github.com/zan8in/hefest/pkg/service"
	"github.com/zan8in/hefest/pkg/utils"
)

// Scanner is the main entry point for port scanning
type Scanner struct {
	options    *Options
	prober     Prober
	grabber    *Grabber
	classifier *service.Classifier
}

// NewScanner creates a new scanner instance
func NewScanner(opt *Options) (*Scanner, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}

	scanner := &Scanner{
		options:    opt,
		prober:     opt.Prober,
		grabber:    NewGrabber(opt.BannerTimeout, opt.BannerSize),
		classifier: opt.Classifier,
	}
	if scanner.prober == nil {
		prober, err := NewTCPProber(opt.Proxy)
		if err != nil {
			return nil, err
		}
		scanner.prober = prober
	}
	if scanner.classifier == nil {
		scanner.classifier = service.New()
	}
	return scanner, nil
}

// Scan probes every port of target once with at most Concurrency probes in
// flight. A target that cannot be resolved returns a *ResolutionError before
// anything is probed. When ctx is cancelled the ports completed so far are
// returned with Interrupted set and a nil error.
func (s *Scanner) Scan(ctx context.Context, target string, ports []int) (*ScanResult, error) {
	portIter, err := NewPortIterator(ports)
	if err != nil {
		return nil, err
	}
	if s.options.Shuffle {
		portIter.Shuffle()
	}

	resolved, err := ResolveTarget(ctx, s.options.Resolver, target)
	if err != nil {
		return nil, err
	}

	total := portIter.Total()
	result := &ScanResult{
		ID:        xid.New().String(),
		Target:    resolved.Host,
		IP:        resolved.IP.String(),
		StartTime: time.Now(),
		Total:     total,
	}
	set := newResultSet(total)

	if !s.options.Quiet {
		gologger.Info().Msgf("%-18s | %-9s | target=%s ip=%s ports=%d", "Port scan", "started", result.Target, result.IP, total)
	}

	var (
		wg   sync.WaitGroup
		done int64
	)
	size := s.options.Concurrency
	if size > total {
		size = total
	}
	pool, err := ants.NewPoolWithFunc(size, func(i interface{}) {
		defer wg.Done()
		port := i.(int)

		select {
		case <-ctx.Done():
			return
		default:
		}

		r := s.scanPort(ctx, resolved, port)
		if r == nil || !set.add(r) {
			return
		}
		n := atomic.AddInt64(&done, 1)
		if s.options.OnResult != nil {
			s.options.OnResult(r)
		}
		if s.options.OnProgress != nil {
			s.options.OnProgress(int(n), total)
		}
	})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

dispatch:
	for {
		port, ok := portIter.Next()
		if !ok {
			break
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		for {
			err := pool.Invoke(port)
			if err == nil {
				break
			}
			if errors.Is(err, ants.ErrPoolOverload) {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			wg.Done()
			if s.options.Debug {
				gologger.Debug().Msgf("dispatch of port %d failed: %v", port, err)
			}
			break dispatch
		}
	}

	wg.Wait()

	set.finalize(result)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Interrupted = result.Completed() < total

	if result.Interrupted && !s.options.Quiet {
		gologger.Warning().Msgf("%-18s | %-9s | completed=%d/%d partial results", "Port scan", "interrupted", result.Completed(), total)
	}
	if !s.options.Quiet {
		gologger.Info().Msgf("%-18s | %-9s | target=%s ports=%d open=%d duration=%s",
			"Port scan",
			"completed",
			result.Target,
			result.Completed(),
			len(result.OpenPorts),
			result.Duration.Truncate(time.Millisecond),
		)
	}
	return result, nil
}

// scanPort runs probe, banner grab and classification for one port. It
// returns nil when the scan was cancelled before the port state was known.
func (s *Scanner) scanPort(ctx context.Context, target ScanTarget, port int) *PortResult {
	p := s.prober.Probe(ctx, target.IP.String(), port, s.options.Timeout)
	if p.State != PortStateOpen {
		if p.Conn != nil {
			p.Conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		if s.options.Debug {
			gologger.Debug().Msgf("%s:%d %s (%s)", target.IP, port, p.State, p.Reason)
		}
		return &PortResult{Port: port, State: p.State, Reason: p.Reason, Latency: p.Latency}
	}

	r := &PortResult{Port: port, State: PortStateOpen, Latency: p.Latency}
	var raw []byte
	if s.options.NoBanner {
		p.Conn.Close()
	} else {
		r.Banner, raw = s.grab(ctx, p.Conn, target.Host, port)
	}
	r.BannerHash = utils.Mmh3Hash32(raw)
	r.classify(s.classify(port, r.Banner))
	return r
}

// grab never lets a grabber failure escape into the port result.
func (s *Scanner) grab(ctx context.Context, conn net.Conn, host string, port int) (banner string, raw []byte) {
	defer func() {
		if e := recover(); e != nil {
			conn.Close()
			banner, raw = "", nil
			if s.options.Debug {
				gologger.Debug().Msgf("banner grab on port %d panicked: %v", port, e)
			}
		}
	}()
	return s.grabber.Grab(ctx, conn, host, port)
}

func (s *Scanner) classify(port int, banner string) (c service.Classification) {
	defer func() {
		if e := recover(); e != nil {
			c = service.New().Classify(port, "")
			if s.options.Debug {
				gologger.Debug().Msgf("classification of port %d panicked: %v", port, e)
			}
		}
	}()
	return s.classifier.Classify(port, banner)
}

func (r *ScanResult) String() string {
	return fmt.Sprintf("%s (%s) %d/%d ports, %d open", r.Target, r.IP, r.Completed(), r.Total, len(r.OpenPorts))
}
