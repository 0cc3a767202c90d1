package portscan

import (
	"sort"
	"sync"
)

// resultSet is the append-only collection workers publish into. It is keyed
// by port so arrival order never matters.
type resultSet struct {
	mu     sync.Mutex
	byPort map[int]*PortResult
}

func newResultSet(size int) *resultSet {
	return &resultSet{byPort: make(map[int]*PortResult, size)}
}

// add stores r unless its port already has a result.
func (s *resultSet) add(r *PortResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPort[r.Port]; ok {
		return false
	}
	s.byPort[r.Port] = r
	return true
}

func (s *resultSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPort)
}

// finalize writes the sorted results and open port list into result.
func (s *resultSet) finalize(result *ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ports := make([]*PortResult, 0, len(s.byPort))
	for _, r := range s.byPort {
		ports = append(ports, r)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Port < ports[j].Port })

	open := make([]int, 0)
	for _, r := range ports {
		if r.IsOpen() {
			open = append(open, r.Port)
		}
	}
	result.Ports = ports
	result.OpenPorts = open
}
