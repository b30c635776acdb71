package service

import (
	"context"
	"sync"

	"github.com/shelfmark/shelfmark-server/internal/logger"
)

// RescanPolicy controls whether a disk rescan runs after a refresh that
// changed anything.
type RescanPolicy string

const (
	RescanAlways      RescanPolicy = "always"
	RescanAfterManual RescanPolicy = "after-manual"
	RescanNever       RescanPolicy = "never"
)

// ShouldRescan reports whether the policy allows a rescan for the given
// trigger.
func (p RescanPolicy) ShouldRescan(isManual bool) bool {
	switch p {
	case RescanAlways:
		return true
	case RescanAfterManual:
		return isManual
	default:
		return false
	}
}

// RescanCommand asks the rescan worker to re-check files for the given
// authors. MatchedFilesOnly restricts the pass to files already matched to
// the library; a refresh-triggered rescan never imports new files.
type RescanCommand struct {
	AuthorIDs        []int64
	MatchedFilesOnly bool
}

// RescanHandler performs the actual disk work. The server wires a real
// implementation; tests use recording fakes.
type RescanHandler interface {
	Rescan(ctx context.Context, cmd RescanCommand) error
}

// RescanQueue decouples refresh completion from disk work: refreshes
// enqueue, a single worker drains. Enqueueing never blocks a refresh; when
// the buffer is full the command is dropped with a warning, because the next
// refresh will enqueue again.
type RescanQueue struct {
	commands chan RescanCommand
	handler  RescanHandler
	logger   *logger.Logger

	stopOnce sync.Once
	done     chan struct{}
	finished chan struct{}
}

// NewRescanQueue creates a queue draining into handler.
func NewRescanQueue(handler RescanHandler, log *logger.Logger) *RescanQueue {
	return &RescanQueue{
		commands: make(chan RescanCommand, 16),
		handler:  handler,
		logger:   log,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *RescanQueue) Start(ctx context.Context) {
	go func() {
		defer close(q.finished)
		for {
			select {
			case cmd := <-q.commands:
				if err := q.handler.Rescan(ctx, cmd); err != nil {
					q.logger.WithError(err).Error("rescan failed", "authors", len(cmd.AuthorIDs))
				}
			case <-q.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Enqueue submits a command without blocking.
func (q *RescanQueue) Enqueue(cmd RescanCommand) {
	select {
	case q.commands <- cmd:
	default:
		q.logger.Warn("rescan queue full, dropping command", "authors", len(cmd.AuthorIDs))
	}
}

// Stop shuts the worker down and waits for it to exit.
func (q *RescanQueue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
	<-q.finished
}

// NoopRescanHandler ignores rescan commands. Used when rescan-after-refresh
// is disabled and in tests.
type NoopRescanHandler struct{}

func (NoopRescanHandler) Rescan(context.Context, RescanCommand) error { return nil }
