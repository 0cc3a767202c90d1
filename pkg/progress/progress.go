package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// GetProgressBar renders a bar like [=====>-----] for progress in percent.
func GetProgressBar(progress, width int) string {
	if width == 0 {
		width = 50
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	barLength := progress * width / 100
	progressBar := strings.Repeat("=", barLength)
	progressBar += ">"
	progressBar += strings.Repeat("-", width-barLength)
	return progressBar
}

// Tracker renders scan progress to w once per interval. Update may be
// called from any goroutine.
type Tracker struct {
	w        io.Writer
	interval time.Duration
	start    time.Time

	done        int64
	total       int64
	lastPercent int32

	mu       sync.Mutex
	stop     chan struct{}
	finished chan struct{}
}

func NewTracker(w io.Writer, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Tracker{
		w:           w,
		interval:    interval,
		lastPercent: -1,
	}
}

// Start begins periodic rendering.
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	atomic.StoreInt64(&t.total, int64(total))
	t.start = time.Now()
	t.stop = make(chan struct{})
	t.finished = make(chan struct{})

	go func(stop, finished chan struct{}) {
		defer close(finished)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.render(false, false)
			}
		}
	}(t.stop, t.finished)
}

// Update records the number of completed ports.
func (t *Tracker) Update(done, total int) {
	atomic.StoreInt64(&t.total, int64(total))
	for {
		cur := atomic.LoadInt64(&t.done)
		if int64(done) <= cur || atomic.CompareAndSwapInt64(&t.done, cur, int64(done)) {
			return
		}
	}
}

// Done returns the completed and total counts.
func (t *Tracker) Done() (int, int) {
	return int(atomic.LoadInt64(&t.done)), int(atomic.LoadInt64(&t.total))
}

// Stop ends rendering and prints the final line. complete reports whether
// every port finished.
func (t *Tracker) Stop(complete bool) {
	t.mu.Lock()
	stop, finished := t.stop, t.finished
	t.stop = nil
	t.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-finished
	t.render(true, complete)
	fmt.Fprint(t.w, "\n")
}

func (t *Tracker) render(force, complete bool) {
	curr, total := t.Done()
	if curr > total {
		curr = total
	}
	percent := 0
	if total > 0 {
		percent = curr * 100 / total
	}
	if complete {
		percent = 100
		curr = total
	} else if !force {
		if int32(percent) == atomic.LoadInt32(&t.lastPercent) {
			return
		}
		atomic.StoreInt32(&t.lastPercent, int32(percent))
	}
	elapsed := time.Since(t.start).Truncate(time.Second)
	fmt.Fprint(t.w, "\r\033[2K")
	fmt.Fprintf(t.w, "\r[%s] %d%% (%d/%d), %s", GetProgressBar(percent, 0), percent, curr, total, elapsed)
}
