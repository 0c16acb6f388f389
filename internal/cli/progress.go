package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/joe/qfieldsync/internal/transfer"
)

const (
	progressBarWidth  = 40
	progressThrottle  = 100 * time.Millisecond
	progressSpinner   = 14
	durationPrecision = 10 * time.Millisecond
)

// progressReporter draws transfer events as a byte progress bar. Emit is
// called from the transfer workers.
type progressReporter struct {
	mu      sync.Mutex
	w       io.Writer
	visible bool
	name    string
	bar     *progressbar.ProgressBar

	done     int64
	inFlight map[string]int64
}

func newProgressReporter(w io.Writer, visible bool, name string) *progressReporter {
	return &progressReporter{w: w, visible: visible, name: name, inFlight: map[string]int64{}}
}

func (p *progressReporter) Emit(event transfer.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := event.(type) {
	case transfer.TransferStarted:
		p.start(e.Bytes)
	case transfer.FileStarted:
		p.inFlight[e.Name] = 0
		p.describe(e.Action.String() + " " + e.Name)
	case transfer.FileProgress:
		p.inFlight[e.Name] = e.Bytes
	case transfer.FileCompleted:
		delete(p.inFlight, e.Name)
		p.done += e.Size
	case transfer.FileFailed:
		delete(p.inFlight, e.Name)
	case transfer.TransferCompleted:
		p.finish()
		return
	}

	p.update()
}

func (p *progressReporter) start(total int64) {
	if !p.visible {
		return
	}

	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(p.name),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.w, "\n")
		}),
		progressbar.OptionSpinnerType(progressSpinner),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *progressReporter) describe(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

func (p *progressReporter) update() {
	if p.bar == nil {
		return
	}

	_ = p.bar.Set64(p.transferred())
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// transferred is the byte count of finished files plus those in flight.
func (p *progressReporter) transferred() int64 {
	total := p.done
	for _, n := range p.inFlight {
		total += n
	}

	return total
}
