// Package store persists library entities in a Badger key-value database.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// EventEmitter is the interface for emitting SSE events.
// Store uses this to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer keeps the search index in sync with store changes.
// Index errors never fail the store write; they are logged and the index
// catches up on the next rebuild.
type SearchIndexer interface {
	IndexAuthor(ctx context.Context, author *domain.Author) error
	DeleteAuthor(ctx context.Context, authorID int64) error
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID int64) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexAuthor is a no-op.
func (NoopSearchIndexer) IndexAuthor(context.Context, *domain.Author) error { return nil }

// DeleteAuthor is a no-op.
func (NoopSearchIndexer) DeleteAuthor(context.Context, int64) error { return nil }

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, int64) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// Store wraps a Badger database instance with typed entity collections.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	eventEmitter EventEmitter

	// Set via SetSearchIndexer after store creation to avoid circular
	// dependencies (store must exist before the search service).
	searchIndexer SearchIndexer

	Authors        *Entity[domain.Author]
	AuthorMetadata *Entity[domain.AuthorMetadata]
	Books          *Entity[domain.Book]
	Editions       *Entity[domain.Edition]
	Series         *Entity[domain.Series]
	SeriesLinks    *Entity[domain.SeriesBookLink]
	BookFiles      *Entity[domain.BookFile]
	History        *Entity[domain.History]
	Exclusions     *Entity[domain.ImportListExclusion]
}

// New creates a new Store instance with the given database path and event emitter.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:            db,
		logger:        logger,
		eventEmitter:  emitter,
		searchIndexer: NoopSearchIndexer{},
	}

	if err := s.initEntities(); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Close releases sequences and closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	s.releaseSequences()
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// Emit broadcasts an event via the configured emitter.
func (s *Store) Emit(event any) {
	if s.eventEmitter != nil {
		s.eventEmitter.Emit(event)
	}
}

func (s *Store) initEntities() error {
	var err error

	init := func(build func() (err error)) {
		if err == nil {
			err = build()
		}
	}

	init(s.initAuthors)
	init(s.initAuthorMetadata)
	init(s.initBooks)
	init(s.initEditions)
	init(s.initSeries)
	init(s.initBookFiles)
	init(s.initHistory)
	init(s.initExclusions)

	return err
}

func (s *Store) releaseSequences() {
	for _, release := range []func() error{
		s.Authors.releaseSequence,
		s.AuthorMetadata.releaseSequence,
		s.Books.releaseSequence,
		s.Editions.releaseSequence,
		s.Series.releaseSequence,
		s.SeriesLinks.releaseSequence,
		s.BookFiles.releaseSequence,
		s.History.releaseSequence,
		s.Exclusions.releaseSequence,
	} {
		if err := release(); err != nil && s.logger != nil {
			s.logger.Warn("failed to release id sequence", "error", err)
		}
	}
}
