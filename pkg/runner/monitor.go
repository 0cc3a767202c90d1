package runner

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/zan8in/gologger"
)

// monitor samples the process while a scan runs so descriptor growth
// during large scans is visible in debug output.
type monitor struct {
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.RWMutex
	cpu     float64
	memory  float32
	fds     int32
	peakFDs int32
}

func newMonitor(interval time.Duration) *monitor {
	return &monitor{
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (m *monitor) start() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		gologger.Debug().Msgf("Failed to get process info: %v", err)
		close(m.done)
		return
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopChan:
				m.sample(proc)
				return
			case <-ticker.C:
				m.sample(proc)
				cpu, mem, fds := m.stats()
				gologger.Debug().Msgf("%-18s | cpu=%.1f%% mem=%.1f%% fds=%d", "Process", cpu, mem, fds)
			}
		}
	}()
}

func (m *monitor) sample(proc *process.Process) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cpu, err := proc.Percent(0); err == nil {
		m.cpu = cpu
	}
	if mem, err := proc.MemoryPercent(); err == nil {
		m.memory = mem
	}
	if fds, err := proc.NumFDs(); err == nil {
		m.fds = fds
		if fds > m.peakFDs {
			m.peakFDs = fds
		}
	}
}

func (m *monitor) stop() {
	select {
	case <-m.stopChan:
	default:
		close(m.stopChan)
	}
	<-m.done
}

func (m *monitor) stats() (float64, float32, int32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cpu, m.memory, m.fds
}

// peak returns the highest descriptor count seen.
func (m *monitor) peak() int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakFDs
}
