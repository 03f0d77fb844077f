package log

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ReplayProgress reports how many bars a replay run has processed,
// with the same ETA/bar presentation the pack's scan progress
// indicator uses, retargeted to minutes-of-data instead of scanned
// symbols.
type ReplayProgress struct {
	mu           sync.Mutex
	symbol       string
	totalBars    int
	barsDone     int
	startTime    time.Time
	showProgress bool
	showETA      bool
}

// NewReplayProgress builds a progress reporter for a replay run over
// totalBars one-minute bars. totalBars may be 0 when the input length
// isn't known up front, in which case only a running bar count is
// shown.
func NewReplayProgress(symbol string, totalBars int) *ReplayProgress {
	return &ReplayProgress{
		symbol:       symbol,
		totalBars:    totalBars,
		startTime:    time.Now(),
		showProgress: true,
		showETA:      totalBars > 0,
	}
}

// Advance records that another bar has been processed and refreshes
// the printed line.
func (p *ReplayProgress) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.barsDone++
	p.print()
}

// Finish prints a final summary line and stops updating in place.
func (p *ReplayProgress) Finish(tradesClosed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	duration := time.Since(p.startTime)
	fmt.Printf("\rreplay %s complete: %d bars, %d trades closed (%v)\n",
		p.symbol, p.barsDone, tradesClosed, duration.Round(time.Millisecond))
}

// Fail prints a failure summary in place of the normal completion
// line.
func (p *ReplayProgress) Fail(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	duration := time.Since(p.startTime)
	fmt.Printf("\rreplay %s failed after %d bars: %s (%v)\n",
		p.symbol, p.barsDone, reason, duration.Round(time.Millisecond))
}

func (p *ReplayProgress) print() {
	var out strings.Builder
	out.WriteString("\r\033[K")
	out.WriteString("replay ")
	out.WriteString(p.symbol)

	if p.showProgress && p.totalBars > 0 {
		pct := float64(p.barsDone) / float64(p.totalBars) * 100
		barWidth := 20
		filled := int(float64(barWidth) * float64(p.barsDone) / float64(p.totalBars))

		out.WriteString(" [")
		for i := 0; i < barWidth; i++ {
			if i < filled {
				out.WriteString("#")
			} else {
				out.WriteString("-")
			}
		}
		out.WriteString(fmt.Sprintf("] %d/%d (%.1f%%)", p.barsDone, p.totalBars, pct))
	} else {
		out.WriteString(fmt.Sprintf(" (%d bars)", p.barsDone))
	}

	if p.showETA && p.barsDone > 0 {
		elapsed := time.Since(p.startTime)
		rate := float64(p.barsDone) / elapsed.Seconds()
		remaining := p.totalBars - p.barsDone
		if rate > 0 {
			eta := time.Duration(float64(remaining)/rate) * time.Second
			out.WriteString(fmt.Sprintf(" ETA: %v", eta.Round(time.Second)))
		}
	}

	fmt.Print(out.String())
}
