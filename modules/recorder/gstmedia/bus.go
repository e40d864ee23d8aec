package gstmedia

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// PipelineError is a classified error posted on a pipeline bus.
type PipelineError struct {
	Pipeline string
	Category ErrorCategory
	Message  string
	Debug    string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("gstmedia: %s pipeline error [%s]: %s", e.Pipeline, e.Category, e.Message)
}

// busWatcher polls a pipeline bus until EOS, an error, or cancellation.
//
// Every sink, the probe and the merge each own one watcher. The terminal
// outcome (EOS or the first error) is recorded once and the goroutine exits;
// callers then read it through WaitEOS, WaitAsyncDone or Err.
type busWatcher struct {
	name     string
	pipeline *gst.Pipeline
	logger   *slog.Logger
	counters *ErrorCounters

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	eos    bool
	err    error
	asyncs chan struct{}
}

// watchBus starts polling pipeline's bus in a goroutine.
func watchBus(pipeline *gst.Pipeline, name string, logger *slog.Logger, counters *ErrorCounters) *busWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &busWatcher{
		name:     name,
		pipeline: pipeline,
		logger:   logger,
		counters: counters,
		cancel:   cancel,
		done:     make(chan struct{}),
		asyncs:   make(chan struct{}, 1),
	}
	go w.run(ctx)
	return w
}

// run is the polling loop.
//
// Message handling:
//   - EOS: records a clean end and exits
//   - Error: classifies it (see Classify), bumps the factory counters,
//     records a *PipelineError and exits
//   - AsyncDone: wakes one WaitAsyncDone caller (preroll finished)
//   - StateChanged: logged at debug level for the top-level pipeline only
//
// Everything else is ignored.
func (w *busWatcher) run(ctx context.Context) {
	defer close(w.done)

	bus := w.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Short timeout keeps cancellation responsive.
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			w.logger.Debug("gstmedia: end of stream", "pipeline", w.name)
			w.finish(nil)
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			perr := &PipelineError{
				Pipeline: w.name,
				Category: Classify(gerr.Error(), gerr.DebugString()),
				Message:  gerr.Error(),
				Debug:    gerr.DebugString(),
			}
			w.counters.add(perr.Category)
			w.logger.Error("gstmedia: pipeline error",
				"pipeline", w.name,
				"error", perr.Message,
				"debug", perr.Debug,
				"category", perr.Category.String(),
				"source", msg.Source(),
			)
			w.finish(perr)
			return

		case gst.MessageAsyncDone:
			select {
			case w.asyncs <- struct{}{}:
			default:
			}

		case gst.MessageStateChanged:
			if msg.Source() == w.pipeline.GetName() {
				old, new := msg.ParseStateChanged()
				w.logger.Debug("gstmedia: pipeline state changed",
					"pipeline", w.name,
					"from", old,
					"to", new,
				)
			}
		}
	}
}

// finish records the terminal outcome; nil means EOS.
func (w *busWatcher) finish(err error) {
	w.mu.Lock()
	w.eos = err == nil
	w.err = err
	w.mu.Unlock()
}

// Err returns the pipeline error once one was posted.
func (w *busWatcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// WaitEOS blocks until EOS reaches the bus, the pipeline fails, or ctx ends.
//
// Returns:
//   - nil after a clean EOS
//   - the *PipelineError if the pipeline failed first
//   - a wrapped ctx error on timeout (the pipeline is left as is; callers
//     tear it down)
//   - an error if Stop ended polling before either happened
func (w *busWatcher) WaitEOS(ctx context.Context) error {
	select {
	case <-w.done:
	case <-ctx.Done():
		return fmt.Errorf("gstmedia: %s waiting for end of stream: %w", w.name, ctx.Err())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if !w.eos {
		return fmt.Errorf("gstmedia: %s bus watcher stopped before end of stream", w.name)
	}
	return nil
}

// WaitAsyncDone blocks until the pipeline finished an asynchronous state
// change (preroll), failed, or ctx ends.
func (w *busWatcher) WaitAsyncDone(ctx context.Context) error {
	select {
	case <-w.asyncs:
		return nil
	case <-w.done:
		if err := w.Err(); err != nil {
			return err
		}
		return fmt.Errorf("gstmedia: %s reached end of stream before preroll", w.name)
	case <-ctx.Done():
		return fmt.Errorf("gstmedia: %s waiting for preroll: %w", w.name, ctx.Err())
	}
}

// Stop ends polling and waits for the goroutine.
func (w *busWatcher) Stop() {
	w.cancel()
	<-w.done
}
