package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for a domain type keyed by an
// int64 id minted from a Badger sequence.
//
// Key layout:
//
//	<prefix><020d id>                     primary row (JSON)
//	<prefix>idx:<name>:<key>              unique index, value = id
//	<prefix>idx:<name>:<key>:<020d id>    multi index, value = id
//
// Fixed-width ids keep iteration order stable.
type Entity[T any] struct {
	store   *Store
	prefix  string
	seq     *badger.Sequence
	idOf    func(*T) int64
	setID   func(*T, int64)
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name   string
	unique bool
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
// idOf and setID give the generic layer access to the row id field.
func NewEntity[T any](s *Store, prefix string, idOf func(*T) int64, setID func(*T, int64)) (*Entity[T], error) {
	seq, err := s.db.GetSequence([]byte(prefix+"seq"), 128)
	if err != nil {
		return nil, fmt.Errorf("get sequence for %s: %w", prefix, err)
	}

	return &Entity[T]{
		store:  s,
		prefix: prefix,
		seq:    seq,
		idOf:   idOf,
		setID:  setID,
	}, nil
}

// WithIndex adds a one-to-many secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithUniqueIndex adds a secondary index where at most one row may hold a
// given key. Conflicts surface as ErrAlreadyExists.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, unique: true, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", e.prefix, id)
}

func (e *Entity[T]) indexKey(idx Index[T], value string, id int64) []byte {
	if idx.unique {
		return fmt.Appendf(nil, "%sidx:%s:%s", e.prefix, idx.name, value)
	}
	return fmt.Appendf(nil, "%sidx:%s:%s:%020d", e.prefix, idx.name, value, id)
}

// NextID mints a fresh row id. Sequence values start at zero; row ids start
// at one so the zero value stays "unpersisted".
func (e *Entity[T]) NextID() (int64, error) {
	n, err := e.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", e.prefix, err)
	}
	return int64(n) + 1, nil
}

func (e *Entity[T]) releaseSequence() error {
	return e.seq.Release()
}

// Insert persists a new row, minting an id if the entity has none.
// Returns ErrAlreadyExists on primary or unique-index conflicts.
func (e *Entity[T]) Insert(ctx context.Context, entity *T) error {
	return e.InsertMany(ctx, []*T{entity})
}

// InsertMany persists a batch of new rows in one transaction.
func (e *Entity[T]) InsertMany(ctx context.Context, entities []*T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	for _, entity := range entities {
		if e.idOf(entity) == 0 {
			id, err := e.NextID()
			if err != nil {
				return err
			}
			e.setID(entity, id)
		}
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		for _, entity := range entities {
			id := e.idOf(entity)

			if _, err := txn.Get(e.key(id)); err == nil {
				return ErrAlreadyExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check existing key: %w", err)
			}

			if err := e.checkUniqueConflicts(txn, entity, nil); err != nil {
				return err
			}

			if err := e.writeRow(txn, entity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id int64) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		})
	})
	if err != nil {
		return nil, err
	}

	return &entity, nil
}

// GetByIndex retrieves the single entity holding the given unique index key.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, ok := e.findIndex(indexName)
	if !ok || !idx.unique {
		return nil, fmt.Errorf("no unique index %q on %s", indexName, e.prefix)
	}

	var id int64
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(idx, value, 0))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err = strconv.ParseInt(string(val), 10, 64)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, id)
}

// ListByIndex returns all entities holding the given index key.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, ok := e.findIndex(indexName)
	if !ok {
		return nil, fmt.Errorf("no index %q on %s", indexName, e.prefix)
	}

	if idx.unique {
		entity, err := e.GetByIndex(ctx, indexName, value)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*T{entity}, nil
	}

	var ids []int64
	scanPrefix := fmt.Appendf(nil, "%sidx:%s:%s:", e.prefix, idx.name, value)

	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				id, err := strconv.ParseInt(string(val), 10, 64)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := e.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue // index lagging a delete; skip
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// Update persists changes to an existing row, maintaining indexes.
// Returns ErrNotFound if the row does not exist.
func (e *Entity[T]) Update(ctx context.Context, entity *T) error {
	return e.UpdateMany(ctx, []*T{entity})
}

// UpdateMany persists a batch of updates in one transaction.
func (e *Entity[T]) UpdateMany(ctx context.Context, entities []*T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		for _, entity := range entities {
			id := e.idOf(entity)

			var old T
			item, err := txn.Get(e.key(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get existing key: %w", err)
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			}); err != nil {
				return err
			}

			if err := e.deleteIndexKeys(txn, &old); err != nil {
				return err
			}
			if err := e.checkUniqueConflicts(txn, entity, &old); err != nil {
				return err
			}
			if err := e.writeRow(txn, entity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a row by ID.
// Idempotent: deleting a missing row is not an error.
func (e *Entity[T]) Delete(ctx context.Context, id int64) error {
	return e.DeleteMany(ctx, []int64{id})
}

// DeleteMany removes a batch of rows in one transaction.
func (e *Entity[T]) DeleteMany(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			var entity T
			item, err := txn.Get(e.key(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get key: %w", err)
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entity)
			}); err != nil {
				return err
			}

			if err := e.deleteIndexKeys(txn, &entity); err != nil {
				return err
			}
			if err := txn.Delete(e.key(id)); err != nil {
				return fmt.Errorf("failed to delete key: %w", err)
			}
		}
		return nil
	})
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index and sequence keys.
				key := string(it.Item().Key())
				remainder := key[len(e.prefix):]
				if strings.HasPrefix(remainder, "idx:") || remainder == "seq" {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// All collects every entity into a slice.
func (e *Entity[T]) All(ctx context.Context) ([]*T, error) {
	var out []*T
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (e *Entity[T]) writeRow(txn *badger.Txn, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	id := e.idOf(entity)
	if err := txn.Set(e.key(id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	idValue := []byte(strconv.FormatInt(id, 10))
	for _, idx := range e.indexes {
		for _, indexKey := range idx.keyGen(entity) {
			if indexKey == "" {
				continue
			}
			if err := txn.Set(e.indexKey(idx, indexKey, id), idValue); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexKeys(txn *badger.Txn, entity *T) error {
	id := e.idOf(entity)
	for _, idx := range e.indexes {
		for _, indexKey := range idx.keyGen(entity) {
			if indexKey == "" {
				continue
			}
			if err := txn.Delete(e.indexKey(idx, indexKey, id)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}

// checkUniqueConflicts verifies no other row holds this entity's unique
// index keys. Keys the old version of the row already held are allowed.
func (e *Entity[T]) checkUniqueConflicts(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.indexes {
		if !idx.unique {
			continue
		}

		oldKeys := make(map[string]bool)
		if old != nil {
			for _, k := range idx.keyGen(old) {
				oldKeys[k] = true
			}
		}

		for _, indexKey := range idx.keyGen(entity) {
			if indexKey == "" || oldKeys[indexKey] {
				continue
			}

			item, err := txn.Get(e.indexKey(idx, indexKey, 0))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to check index key: %w", err)
			}

			// A row may legitimately reclaim its own key (id pinned before insert).
			conflict := true
			if viewErr := item.Value(func(val []byte) error {
				existing, parseErr := strconv.ParseInt(string(val), 10, 64)
				if parseErr != nil {
					return parseErr
				}
				conflict = existing != e.idOf(entity)
				return nil
			}); viewErr != nil {
				return viewErr
			}
			if conflict {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, indexKey, ErrAlreadyExists)
			}
		}
	}
	return nil
}

func (e *Entity[T]) findIndex(name string) (Index[T], bool) {
	for _, idx := range e.indexes {
		if idx.name == name {
			return idx, true
		}
	}
	return Index[T]{}, false
}
