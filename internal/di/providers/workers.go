package providers

import (
	"context"
	"sync"
	"time"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// RescanQueueHandle wraps the rescan queue with shutdown capability.
type RescanQueueHandle struct {
	*service.RescanQueue
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RescanQueueHandle) Shutdown() error {
	h.cancel()
	h.Stop()
	return nil
}

// ProvideRescanQueue provides the post-refresh disk rescan worker.
func ProvideRescanQueue(i do.Injector) (*RescanQueueHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	handler := service.NewFileRescanner(storeHandle.Store, log)
	queue := service.NewRescanQueue(handler, log)

	ctx, cancel := context.WithCancel(context.Background())
	queue.Start(ctx)

	log.Info("Rescan worker started")

	return &RescanQueueHandle{RescanQueue: queue, cancel: cancel}, nil
}

// RefreshSchedulerJob periodically refreshes the whole library, letting the
// refresh service decide which authors are stale enough to fetch.
type RefreshSchedulerJob struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	lastStart time.Time
}

// Shutdown implements do.Shutdownable.
func (j *RefreshSchedulerJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideRefreshScheduler provides the periodic library refresh job.
func ProvideRefreshScheduler(i do.Injector) (*RefreshSchedulerJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	refresh := do.MustInvoke[*service.RefreshAuthorService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &RefreshSchedulerJob{cancel: cancel}

	interval := cfg.Library.RefreshInterval
	if interval <= 0 {
		log.Info("Scheduled refresh disabled")
		return job, nil
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				job.mu.Lock()
				since := job.lastStart
				job.mu.Unlock()

				start := time.Now()
				result, err := refresh.RefreshAll(ctx, false, since)
				if err != nil {
					log.WithError(err).Error("scheduled refresh failed")
					continue
				}

				job.mu.Lock()
				job.lastStart = start
				job.mu.Unlock()

				log.Info("scheduled refresh completed",
					"succeeded", result.Succeeded,
					"failed", result.Failed,
					"skipped", result.Skipped,
				)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Refresh scheduler started", "interval", interval)

	return job, nil
}
