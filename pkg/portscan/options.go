package portscan

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/zan8in/hefest/pkg/service"
)

const (
	DefaultTimeout       = time.Second
	DefaultBannerTimeout = 800 * time.Millisecond
	DefaultBannerSize    = 512
	DefaultConcurrency   = 150
)

// Resolver turns a host name into addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Options configuration for the port scanner
type Options struct {
	// Timeout bounds each connection attempt.
	Timeout time.Duration
	// BannerTimeout bounds the whole banner read on an open port.
	BannerTimeout time.Duration
	// BannerSize is the maximum number of banner bytes read per port.
	BannerSize int
	// Concurrency is the maximum number of ports probed at once.
	Concurrency int
	// NoBanner skips banner grabbing, services are guessed by port only.
	NoBanner bool
	// Shuffle randomizes the probe order.
	Shuffle bool
	// Proxy is an optional socks5:// or http:// proxy URL.
	Proxy string

	Classifier *service.Classifier
	Prober     Prober
	Resolver   Resolver

	// OnResult is called from worker goroutines once per completed port.
	OnResult func(*PortResult)
	// OnProgress is called from worker goroutines after each completed port.
	OnProgress func(done, total int)

	Quiet bool
	Debug bool
}

// DefaultOptions returns a safe default configuration
func DefaultOptions() *Options {
	return &Options{
		Timeout:       DefaultTimeout,
		BannerTimeout: DefaultBannerTimeout,
		BannerSize:    DefaultBannerSize,
		Concurrency:   DefaultConcurrency,
	}
}

func (o *Options) validate() error {
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	if o.BannerTimeout <= 0 {
		return fmt.Errorf("banner timeout must be positive, got %s", o.BannerTimeout)
	}
	if o.BannerSize <= 0 {
		return fmt.Errorf("banner size must be positive, got %d", o.BannerSize)
	}
	if o.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	return nil
}
