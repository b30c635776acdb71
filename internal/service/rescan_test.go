package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/logger"
)

type recordingRescanHandler struct {
	mu       sync.Mutex
	commands []RescanCommand
	block    chan struct{}
}

func (h *recordingRescanHandler) Rescan(_ context.Context, cmd RescanCommand) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
	return nil
}

func (h *recordingRescanHandler) recorded() []RescanCommand {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]RescanCommand(nil), h.commands...)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError, Format: "json"})
}

func TestRescanQueue_DrainsCommands(t *testing.T) {
	handler := &recordingRescanHandler{}
	queue := NewRescanQueue(handler, testLogger())
	queue.Start(context.Background())

	queue.Enqueue(RescanCommand{AuthorIDs: []int64{1, 2}, MatchedFilesOnly: true})
	queue.Enqueue(RescanCommand{AuthorIDs: []int64{3}})

	require.Eventually(t, func() bool {
		return len(handler.recorded()) == 2
	}, time.Second, 5*time.Millisecond)

	queue.Stop()

	commands := handler.recorded()
	assert.Equal(t, []int64{1, 2}, commands[0].AuthorIDs)
	assert.True(t, commands[0].MatchedFilesOnly)
	assert.Equal(t, []int64{3}, commands[1].AuthorIDs)
}

func TestRescanQueue_EnqueueNeverBlocks(t *testing.T) {
	handler := &recordingRescanHandler{block: make(chan struct{})}
	queue := NewRescanQueue(handler, testLogger())
	queue.Start(context.Background())
	defer queue.Stop()
	defer close(handler.block)

	// The worker is stuck on the first command; overfill the buffer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			queue.Enqueue(RescanCommand{AuthorIDs: []int64{int64(i)}})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestRescanQueue_StopIsIdempotent(t *testing.T) {
	queue := NewRescanQueue(&recordingRescanHandler{}, testLogger())
	queue.Start(context.Background())
	queue.Stop()
	queue.Stop()
}
