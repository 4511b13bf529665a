// Package badger provides an embedded key-value RelationshipStore backed by
// BadgerDB. Terms, progress and the audit log stay in the relational store.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	dgbadger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

// Key layout. Index keys carry no value; the relationship ID is the last
// segment after sep.
const (
	prefixRel    = "rel/"
	prefixPair   = "pair/"
	prefixSource = "src/"
	prefixTarget = "tgt/"
	prefixType   = "type/"
	sep          = "\x00"
)

// Config holds configuration for the Badger store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory (tests).
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *zap.Logger
}

// Store implements ports.RelationshipStore on BadgerDB.
type Store struct {
	db   *dgbadger.DB
	path string
}

// zapLogger adapts zap to Badger's logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l *zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Open opens (or creates) the Badger store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = dgbadger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapLogger{s: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, path: cfg.Path}, nil
}

// Close runs a value log GC pass and closes the database.
func (s *Store) Close() error {
	if s.path != "" {
		if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, dgbadger.ErrNoRewrite) &&
			!errors.Is(err, dgbadger.ErrGCInMemoryMode) {
			s.db.Close()
			return fmt.Errorf("badger value log GC: %w", err)
		}
	}
	return s.db.Close()
}

func relKey(id string) []byte { return []byte(prefixRel + id) }

func pairKey(src, tgt string, rt entities.RelationType) []byte {
	return []byte(prefixPair + src + sep + tgt + sep + string(rt))
}

func indexKey(prefix, value, id string) []byte {
	return []byte(prefix + value + sep + id)
}

func indexPrefix(prefix, value string) []byte {
	return []byte(prefix + value + sep)
}

// Insert stores a new relationship and its index entries in one transaction.
func (s *Store) Insert(ctx context.Context, rel *entities.Relationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rel)
	if err != nil {
		return fmt.Errorf("marshaling relationship: %w", err)
	}

	err = s.db.Update(func(txn *dgbadger.Txn) error {
		pk := pairKey(rel.SourceTermID, rel.TargetTermID, rel.Type)
		if exists, err := has(txn, pk); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("relationship %s --%s--> %s already exists: %w",
				rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
		}
		if exists, err := has(txn, relKey(rel.ID)); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("relationship id %s already exists: %w", rel.ID, apperrors.ErrConflict)
		}

		if err := txn.Set(relKey(rel.ID), data); err != nil {
			return err
		}
		if err := txn.Set(pk, []byte(rel.ID)); err != nil {
			return err
		}
		return setIndexes(txn, rel)
	})
	return mapTxnError("saving relationship", err)
}

// FindByID finds a relationship by ID.
func (s *Store) FindByID(ctx context.Context, id string) (*entities.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rel *entities.Relationship
	err := s.db.View(func(txn *dgbadger.Txn) error {
		var err error
		rel, err = load(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// FindByEndpoint finds relationships touching the term from the given side.
func (s *Store) FindByEndpoint(ctx context.Context, termID string, dir entities.Direction) ([]entities.Relationship, error) {
	var prefixes [][]byte
	switch dir {
	case entities.DirectionOutgoing:
		prefixes = [][]byte{indexPrefix(prefixSource, termID)}
	case entities.DirectionIncoming:
		prefixes = [][]byte{indexPrefix(prefixTarget, termID)}
	default:
		prefixes = [][]byte{indexPrefix(prefixSource, termID), indexPrefix(prefixTarget, termID)}
	}
	return s.findIndexed(ctx, prefixes, nil)
}

// FindByType finds all relationships of a given type.
func (s *Store) FindByType(ctx context.Context, relType entities.RelationType) ([]entities.Relationship, error) {
	return s.findIndexed(ctx, [][]byte{indexPrefix(prefixType, string(relType))}, nil)
}

// FindAmong finds relationships whose endpoints are both in termIDs.
func (s *Store) FindAmong(ctx context.Context, termIDs []string) ([]entities.Relationship, error) {
	if len(termIDs) == 0 {
		return []entities.Relationship{}, nil
	}

	inSet := make(map[string]bool, len(termIDs))
	prefixes := make([][]byte, 0, len(termIDs))
	for _, id := range termIDs {
		if inSet[id] {
			continue
		}
		inSet[id] = true
		prefixes = append(prefixes, indexPrefix(prefixSource, id))
	}

	return s.findIndexed(ctx, prefixes, func(rel *entities.Relationship) bool {
		return inSet[rel.TargetTermID]
	})
}

// Update persists the mutable fields of a relationship, moving its pair and
// type index entries when the type changes.
func (s *Store) Update(ctx context.Context, rel *entities.Relationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *dgbadger.Txn) error {
		stored, err := load(txn, rel.ID)
		if err != nil {
			return err
		}

		if stored.Type != rel.Type {
			newPair := pairKey(stored.SourceTermID, stored.TargetTermID, rel.Type)
			if exists, err := has(txn, newPair); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("relationship %s --%s--> %s already exists: %w",
					stored.SourceTermID, rel.Type, stored.TargetTermID, apperrors.ErrConflict)
			}
			if err := txn.Delete(pairKey(stored.SourceTermID, stored.TargetTermID, stored.Type)); err != nil {
				return err
			}
			if err := txn.Delete(indexKey(prefixType, string(stored.Type), stored.ID)); err != nil {
				return err
			}
			if err := txn.Set(newPair, []byte(stored.ID)); err != nil {
				return err
			}
			if err := txn.Set(indexKey(prefixType, string(rel.Type), stored.ID), nil); err != nil {
				return err
			}
		}

		stored.Type = rel.Type
		stored.Description = rel.Description
		stored.UpdatedAt = rel.UpdatedAt

		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshaling relationship: %w", err)
		}
		return txn.Set(relKey(stored.ID), data)
	})
	return mapTxnError("updating relationship", err)
}

// Delete deletes a relationship by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *dgbadger.Txn) error {
		rel, err := load(txn, id)
		if err != nil {
			return err
		}
		return remove(txn, rel)
	})
	return mapTxnError("deleting relationship", err)
}

// DeleteByEndpoint deletes every relationship touching the term.
func (s *Store) DeleteByEndpoint(ctx context.Context, termID string) (int, error) {
	return s.deleteWhere(ctx,
		[][]byte{indexPrefix(prefixSource, termID), indexPrefix(prefixTarget, termID)}, nil)
}

// DeleteByPair deletes every relationship from source to target.
func (s *Store) DeleteByPair(ctx context.Context, sourceTermID, targetTermID string) (int, error) {
	return s.deleteWhere(ctx, [][]byte{indexPrefix(prefixSource, sourceTermID)},
		func(rel *entities.Relationship) bool { return rel.TargetTermID == targetTermID })
}

// Count returns the total number of relationships.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixRel)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting relationships: %w", err)
	}
	return count, nil
}

// findIndexed loads the relationships referenced under the index prefixes,
// deduplicated and ordered by creation time, then ID.
func (s *Store) findIndexed(ctx context.Context, prefixes [][]byte, keep func(*entities.Relationship) bool) ([]entities.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rels := make([]entities.Relationship, 0, 16)
	err := s.db.View(func(txn *dgbadger.Txn) error {
		ids, err := scanIndexIDs(txn, prefixes)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rel, err := load(txn, id)
			if err != nil {
				return err
			}
			if keep == nil || keep(rel) {
				rels = append(rels, *rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}

	sort.Slice(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].ID < rels[j].ID
	})
	return rels, nil
}

func (s *Store) deleteWhere(ctx context.Context, prefixes [][]byte, keep func(*entities.Relationship) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	err := s.db.Update(func(txn *dgbadger.Txn) error {
		ids, err := scanIndexIDs(txn, prefixes)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rel, err := load(txn, id)
			if err != nil {
				return err
			}
			if keep != nil && !keep(rel) {
				continue
			}
			if err := remove(txn, rel); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err := mapTxnError("deleting relationships", err); err != nil {
		return 0, err
	}
	return deleted, nil
}

// scanIndexIDs collects the distinct relationship IDs under the prefixes.
func scanIndexIDs(txn *dgbadger.Txn, prefixes [][]byte) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string

	opts := dgbadger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for _, prefix := range prefixes {
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func load(txn *dgbadger.Txn, id string) (*entities.Relationship, error) {
	item, err := txn.Get(relKey(id))
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return nil, fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading relationship %s: %w", id, err)
	}

	var rel entities.Relationship
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rel)
	}); err != nil {
		return nil, fmt.Errorf("decoding relationship %s: %w", id, err)
	}
	return &rel, nil
}

func has(txn *dgbadger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func setIndexes(txn *dgbadger.Txn, rel *entities.Relationship) error {
	for _, key := range [][]byte{
		indexKey(prefixSource, rel.SourceTermID, rel.ID),
		indexKey(prefixTarget, rel.TargetTermID, rel.ID),
		indexKey(prefixType, string(rel.Type), rel.ID),
	} {
		if err := txn.Set(key, nil); err != nil {
			return err
		}
	}
	return nil
}

func remove(txn *dgbadger.Txn, rel *entities.Relationship) error {
	for _, key := range [][]byte{
		relKey(rel.ID),
		pairKey(rel.SourceTermID, rel.TargetTermID, rel.Type),
		indexKey(prefixSource, rel.SourceTermID, rel.ID),
		indexKey(prefixTarget, rel.TargetTermID, rel.ID),
		indexKey(prefixType, string(rel.Type), rel.ID),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// mapTxnError keeps domain errors intact and reports lost optimistic
// transactions as conflicts.
func mapTxnError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrNotFound):
		return err
	case errors.Is(err, dgbadger.ErrConflict):
		return fmt.Errorf("%s: concurrent write: %w", op, apperrors.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
