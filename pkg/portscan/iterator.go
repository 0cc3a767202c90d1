package portscan

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// commonPorts is the default port set, scanned when no ports are given.
var commonPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445, 993, 995,
	1433, 1434, 1723, 3306, 3389, 5432, 5900, 8080,
}

// CommonPorts returns a copy of the default port set.
func CommonPorts() []int {
	return append([]int(nil), commonPorts...)
}

// AllPorts returns 1-65535 with the top 100 ports first.
func AllPorts() []int {
	top := getTop100Ports()
	seen := make(map[int]bool, len(top))
	ports := make([]int, 0, 65535)
	for _, p := range top {
		seen[p] = true
		ports = append(ports, p)
	}
	for i := 1; i <= 65535; i++ {
		if !seen[i] {
			ports = append(ports, i)
		}
	}
	return ports
}

// ParsePorts expands a port definition into a duplicate-free port list.
// Supported formats: "80", "80,443", "100-200", "common", "top-100", "full"
// and any comma separated mix of numbers, ranges and keywords. An empty
// definition means the common ports.
func ParsePorts(portStr string) ([]int, error) {
	portStr = strings.TrimSpace(portStr)
	if portStr == "" {
		return CommonPorts(), nil
	}

	ports := make([]int, 0)
	for _, part := range strings.Split(portStr, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		switch part {
		case "":
			continue
		case "common":
			ports = append(ports, commonPorts...)
			continue
		case "top-100", "top100":
			ports = append(ports, getTop100Ports()...)
			continue
		case "full", "all", "-":
			ports = append(ports, AllPorts()...)
			continue
		}

		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			start, err1 := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			if !isValidPort(start) || !isValidPort(end) || start > end {
				return nil, fmt.Errorf("port range %q out of bounds", part)
			}
			for i := start; i <= end; i++ {
				ports = append(ports, i)
			}
			continue
		}

		port, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		if !isValidPort(port) {
			return nil, fmt.Errorf("port %d out of range 1-65535", port)
		}
		ports = append(ports, port)
	}

	ports = removeDuplicateInt(ports)
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports in %q", portStr)
	}
	return ports, nil
}

func getTop100Ports() []int {
	return []int{
		80, 443, 8080, 8443, 22, 21, 23, 25, 53, 110, 143, 389, 445, 3389, 135, 139, 8000, 8081, 9090,
		3306, 5432, 6379, 27017, 1433, 1521, 2181, 9200, 11211, 5672, 5900, 5000, 8888, 2222, 2375,
		8008, 8009, 8090, 8161, 8181, 9000, 10000, 4567, 1234, 5001, 5002, 5003, 5004, 5005, 5006, 5007,
		5008, 5009, 5010, 7001, 7002, 7070, 7071, 7100, 7547, 8001, 8002, 8003, 8004, 8005, 8006, 8007,
		8010, 8020, 8030, 8040, 8050, 8060, 8082, 8083, 8084, 8085, 8086, 8087, 8088, 8089, 8091, 8092,
		8093, 8094, 8095, 8096, 8097, 8098, 8099, 81, 82, 83, 84, 85, 86, 87, 88, 89, 90, 91, 92, 93, 94,
	}
}

func removeDuplicateInt(intSlice []int) []int {
	keys := make(map[int]bool)
	list := []int{}
	for _, entry := range intSlice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

func isValidPort(p int) bool {
	return p > 0 && p <= 65535
}

// normalizePorts validates ports and drops duplicates, keeping first occurrence order.
func normalizePorts(ports []int) ([]int, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports to scan")
	}
	for _, p := range ports {
		if !isValidPort(p) {
			return nil, fmt.Errorf("port %d out of range 1-65535", p)
		}
	}
	return removeDuplicateInt(ports), nil
}

// PortIterator hands out each port of a set exactly once.
type PortIterator struct {
	ports []int
	index int
}

// NewPortIterator creates a new iterator over a normalized copy of ports.
func NewPortIterator(ports []int) (*PortIterator, error) {
	ports, err := normalizePorts(ports)
	if err != nil {
		return nil, err
	}
	return &PortIterator{ports: ports}, nil
}

func (pi *PortIterator) Next() (int, bool) {
	if pi.index >= len(pi.ports) {
		return 0, false
	}
	port := pi.ports[pi.index]
	pi.index++
	return port, true
}

func (pi *PortIterator) Reset() {
	pi.index = 0
}

func (pi *PortIterator) Total() int {
	return len(pi.ports)
}

func (pi *PortIterator) Shuffle() {
	rand.Shuffle(len(pi.ports), func(i, j int) {
		pi.ports[i], pi.ports[j] = pi.ports[j], pi.ports[i]
	})
	pi.index = 0
}
