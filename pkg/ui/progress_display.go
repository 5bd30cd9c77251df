package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// ProgressDisplay shows a single updating status line for a collection run.
// In verbose mode every record is printed on its own line instead.
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	collection string
	page       int
	written    int
	skipped    int
	lastURL    string
	startTime  time.Time
	verbose    bool
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(collection string, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:        Output,
		collection: collection,
		startTime:  time.Now(),
		verbose:    verbose,
	}
}

// PageStarted indicates scanning a new page
func (p *ProgressDisplay) PageStarted(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.page = page
	if IsQuietMode() {
		return
	}
	if p.verbose {
		fmt.Fprintf(p.out, "%s Scanning page %d...\n", Magenta("→"), page)
		return
	}
	p.printProgress()
}

// RecordProcessed counts one item
func (p *ProgressDisplay) RecordProcessed(url string, written bool, location string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if written {
		p.written++
	} else {
		p.skipped++
	}
	p.lastURL = url

	if IsQuietMode() {
		return
	}
	if p.verbose {
		mark, detail := Green("✓"), Dim(location)
		if !written {
			mark, detail = Dim("·"), Dim("already saved")
		}
		fmt.Fprintf(p.out, "%s %s • %s\n", mark, url, detail)
		return
	}
	p.printProgress()
}

// printProgress redraws the status line
func (p *ProgressDisplay) printProgress() {
	elapsed := time.Since(p.startTime)
	line := fmt.Sprintf("%s • page %d • %d new • %d skipped • %s",
		Cyan(p.collection),
		p.page,
		p.written,
		p.skipped,
		formatDuration(elapsed),
	)
	if p.lastURL != "" {
		line += " • " + Dim(runewidth.Truncate(p.lastURL, 48, "…"))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

// Complete prints the closing line for the run
func (p *ProgressDisplay) Complete(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if IsQuietMode() && err == nil {
		return
	}
	if !p.verbose {
		fmt.Fprintln(p.out)
	}

	elapsed := time.Since(p.startTime)
	if err != nil {
		fmt.Fprintf(p.out, "%s %s stopped after %d pages: %v\n", Red("✗"), p.collection, p.page, err)
		return
	}
	fmt.Fprintf(p.out, "%s %s: %d new, %d already saved, %d pages in %s\n",
		Green("✓"),
		p.collection,
		p.written,
		p.skipped,
		p.page,
		formatDuration(elapsed),
	)
}

// Counts returns the written and skipped totals so far
func (p *ProgressDisplay) Counts() (written, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written, p.skipped
}
