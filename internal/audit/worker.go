package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains audit entries to a Recorder from a bounded buffer so request
// handlers never block on the audit trail.
type Worker struct {
	entryCh  chan Entry
	recorder Recorder
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWorker(recorder Recorder, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		entryCh:  make(chan Entry, bufferSize),
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining audit entries before shutdown", "remaining_entries", len(w.entryCh))
				for len(w.entryCh) > 0 {
					entry := <-w.entryCh
					if err := w.recorder.Save(context.Background(), entry); err != nil {
						slog.Error("failed to save audit entry during shutdown", "error", err, "entry_type", entry.Type)
					}
				}
				return
			case entry := <-w.entryCh:
				if err := w.recorder.Save(w.ctx, entry); err != nil {
					slog.Error("failed to save audit entry", "error", err, "entry_type", entry.Type)
				}
			}
		}
	})
}

// Record enqueues an entry. When the buffer is full the entry is dropped with
// a warning; the audit trail is best effort.
func (w *Worker) Record(entry Entry) {
	select {
	case w.entryCh <- entry:
	default:
		slog.Warn("audit channel full, dropping entry", "entry_type", entry.Type)
	}
}

// Shutdown stops the worker after draining buffered entries. The channel is
// never closed so a Record racing shutdown drops instead of panicking.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
