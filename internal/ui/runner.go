package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/modelfinder/internal/lookup"
)

// LookupFunc resolves one raw serial number. Both the local client and the
// remote client satisfy it.
type LookupFunc func(ctx context.Context, raw string) lookup.Result

// RunnerConfig holds configuration for a batch lookup
type RunnerConfig struct {
	Title   string    // e.g., "Model Lookup"
	Command string    // e.g., "modelfinder lookup"
	Params  []Param   // Shown in the header
	Serials []string  // Raw serial numbers, in order
	Output  io.Writer // Output writer (default: os.Stdout)
	Width   int       // Render width (default: terminal width)
}

// Runner orchestrates header, progress and result output for a batch of
// lookups. Lookups run concurrently; each status line is printed as its
// lookup finishes and the result boxes follow in input order.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

type indexedResult struct {
	index  int
	result lookup.Result
}

// NewRunner creates a runner for a batch of serials
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := config.Width
	if width == 0 {
		width = GetTerminalWidth()
	}

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress: NewProgress("", config.Serials).SetWidth(width),
		output:   config.Output,
		width:    width,
	}
}

// Run executes every lookup and renders the outcome. The returned results
// are in the same order as the configured serials.
func (r *Runner) Run(ctx context.Context, fn LookupFunc) []lookup.Result {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	results := make([]lookup.Result, len(r.config.Serials))
	done := make(chan indexedResult, len(r.config.Serials))
	for i, serial := range r.config.Serials {
		r.progress.UpdateStep(i+1, StepRunning, "")
		go func(i int, serial string) {
			done <- indexedResult{index: i, result: fn(ctx, serial)}
		}(i, serial)
	}

	for range r.config.Serials {
		ir := <-done
		results[ir.index] = ir.result

		status := StepComplete
		if !ir.result.OK() {
			status = StepFailed
		}
		r.progress.UpdateStep(ir.index+1, status, ir.result.Message())
		_, _ = fmt.Fprintln(r.output, r.progress.RenderStepLine(r.progress.Steps[ir.index]))
	}

	if len(results) > 1 {
		_, _ = fmt.Fprintln(r.output)
		_, _ = fmt.Fprintln(r.output, r.progress.RenderBar())
	}

	for _, res := range results {
		_, _ = fmt.Fprintln(r.output)
		_, _ = fmt.Fprintln(r.output, NewLookupResult(res).SetWidth(r.width).Render())
	}

	_, _ = fmt.Fprintln(r.output)
	_, _ = fmt.Fprintln(r.output, StepNoteStyle.Render(fmt.Sprintf("  %d resolved, %d failed in %s",
		r.progress.Done()-r.progress.Failed(), r.progress.Failed(), time.Since(start).Round(time.Millisecond))))

	return results
}

// Failed returns how many lookups failed in the last Run
func (r *Runner) Failed() int {
	return r.progress.Failed()
}
