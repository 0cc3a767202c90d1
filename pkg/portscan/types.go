package portscan

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/zan8in/hefest/pkg/service"
)

// PortState represents the state of a port
type PortState int

const (
	PortStateOpen PortState = iota
	PortStateClosed
	PortStateFiltered
)

func (s PortState) String() string {
	switch s {
	case PortStateOpen:
		return "open"
	case PortStateClosed:
		return "closed"
	default:
		return "filtered"
	}
}

func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PortState) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "open":
		*s = PortStateOpen
	case "closed":
		*s = PortStateClosed
	case "filtered", "error":
		*s = PortStateFiltered
	default:
		return fmt.Errorf("invalid port state %q", text)
	}
	return nil
}

// PortResult is produced by exactly one worker for one port and is not
// modified after it has been handed to the aggregate.
type PortResult struct {
	Port    int
	State   PortState
	Reason  string
	Latency time.Duration

	Banner     string
	BannerHash int32

	Service         string
	Description     string
	Protocol        string
	Category        string
	Risk            service.Risk
	Product         string
	Version         string
	Recommendations []string
}

func (r *PortResult) IsOpen() bool {
	return r.State == PortStateOpen
}

func (r *PortResult) classify(c service.Classification) {
	r.Service = c.Service
	r.Description = c.Description
	r.Protocol = c.Protocol
	r.Category = c.Category
	r.Risk = c.Risk
	r.Product = c.Product
	r.Version = c.Version
	r.Recommendations = c.Recommendations
}

// ScanTarget is the host as given and the address it resolved to.
type ScanTarget struct {
	Host string
	IP   net.IP
}

// ScanResult aggregates one scan invocation.
type ScanResult struct {
	ID        string
	Target    string
	IP        string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Total is the number of ports requested.
	Total int
	// Ports holds one entry per completed port, ascending by port number.
	Ports []*PortResult
	// OpenPorts lists open port numbers in ascending order.
	OpenPorts []int

	Interrupted bool
}

// Completed returns how many ports produced a result.
func (r *ScanResult) Completed() int {
	return len(r.Ports)
}

// Open returns the open port results in ascending port order.
func (r *ScanResult) Open() []*PortResult {
	open := make([]*PortResult, 0, len(r.OpenPorts))
	for _, p := range r.Ports {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

// Port returns the result for port, or nil when it was not scanned.
func (r *ScanResult) Port(port int) *PortResult {
	for _, p := range r.Ports {
		if p.Port == port {
			return p
		}
	}
	return nil
}
