// Package factstore persists a fact base in BadgerDB.
//
// Each fact is stored under [FactPrefix | program.Key of its head], so the facts of one relation
// share a key prefix. The value is the S2-compressed text form of the fact, which keeps the
// symbolic sign and the types of symbolic constants.
package factstore

import (
	"context"
	"encoding/binary"
	"iter"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/s2"
	"go.uber.org/zap"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/program"
)

const (
	// FactPrefix starts every fact key.
	FactPrefix byte = 0x01
	// SystemPrefix starts store metadata keys.
	SystemPrefix byte = 0xFF
)

// keyFactCount stores the number of distinct facts.
var keyFactCount = []byte{SystemPrefix, 0x01}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("fact store is closed")

// Store is a persistent fact base. It is safe for concurrent use.
type Store struct {
	db  *badger.DB
	log *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates a store.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := badger.Open(buildBadgerOptions(cfg))
	if err != nil {
		return nil, errors.Wrapf(err, "open fact store at %s", cfg.DataDir)
	}
	s := &Store{db: db, log: logger.Named("factstore")}
	s.log.Debugw("fact store opened", "dir", cfg.DataDir, "in_memory", cfg.InMemory)
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func factKey(f program.Fact) []byte {
	k := f.Key()
	key := make([]byte, 0, 1+len(k))
	key = append(key, FactPrefix)
	return append(key, k...)
}

func relationPrefix(rel string) []byte {
	p := program.RelationPrefix(rel)
	key := make([]byte, 0, 1+len(p))
	key = append(key, FactPrefix)
	return append(key, p...)
}

func encodeFact(f program.Fact) []byte {
	return s2.Encode(nil, []byte(f.String()))
}

func decodeFact(val []byte) (program.Fact, error) {
	text, err := s2.Decode(nil, val)
	if err != nil {
		return program.Fact{}, errors.Wrap(err, "decompress fact")
	}
	f, err := datalog.ParseFact(string(text))
	if err != nil {
		return program.Fact{}, errors.Wrapf(err, "decode stored fact %q", text)
	}
	return f, nil
}

// Put stores facts, replacing stored facts with the same head. It returns the number of facts
// that were not stored before.
func (s *Store) Put(facts ...program.Fact) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	for _, f := range facts {
		if err := program.CheckFact(f); err != nil {
			return 0, err
		}
	}

	added := 0
	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	pending := 0
	for _, f := range facts {
		key := factKey(f)
		isNew, err := missing(txn, key)
		if err != nil {
			return 0, err
		}
		err = txn.Set(key, encodeFact(f))
		if errors.Is(err, badger.ErrTxnTooBig) {
			// Commit what we have and continue in a fresh transaction.
			if err := bumpCount(txn, pending); err != nil {
				return 0, err
			}
			if err := txn.Commit(); err != nil {
				return 0, errors.Wrap(err, "commit facts")
			}
			pending = 0
			txn = s.db.NewTransaction(true)
			if isNew, err = missing(txn, key); err != nil {
				return 0, err
			}
			err = txn.Set(key, encodeFact(f))
		}
		if err != nil {
			return 0, errors.Wrapf(err, "store fact %s", f)
		}
		if isNew {
			added++
			pending++
		}
	}
	if err := bumpCount(txn, pending); err != nil {
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit facts")
	}
	s.log.Debugw("facts stored", "facts", len(facts), "added", added)
	return added, nil
}

func missing(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return true, nil
	}
	return false, err
}

func bumpCount(txn *badger.Txn, delta int) error {
	if delta == 0 {
		return nil
	}
	n, err := readCount(txn)
	if err != nil {
		return err
	}
	buf := binary.BigEndian.AppendUint64(nil, uint64(int64(n)+int64(delta)))
	return txn.Set(keyFactCount, buf)
}

func readCount(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(keyFactCount)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return errors.Newf("corrupt fact count of %d bytes", len(val))
		}
		n = binary.BigEndian.Uint64(val)
		return nil
	})
	return n, err
}

// Delete removes facts by head. Absent facts are ignored.
func (s *Store) Delete(facts ...program.Fact) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, f := range facts {
			key := factKey(f)
			absent, err := missing(txn, key)
			if err != nil {
				return err
			}
			if absent {
				continue
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return bumpCount(txn, -removed)
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete facts")
	}
	return removed, nil
}

// Count returns the number of stored facts.
func (s *Store) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = readCount(txn)
		return err
	})
	return n, err
}

func (s *Store) scan(ctx context.Context, prefix []byte) iter.Seq2[program.Fact, error] {
	return func(yield func(program.Fact, error) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.closed {
			yield(program.Fact{}, ErrClosed)
			return
		}

		txn := s.db.NewTransaction(false)
		defer txn.Discard()

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				yield(program.Fact{}, ctx.Err())
				return
			default:
			}

			var f program.Fact
			err := it.Item().Value(func(val []byte) error {
				var err error
				f, err = decodeFact(val)
				return err
			})
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}

// Scan iterates over every fact of relation rel; an empty rel iterates over all facts.
func (s *Store) Scan(ctx context.Context, rel string) iter.Seq2[program.Fact, error] {
	if rel == "" {
		return s.scan(ctx, []byte{FactPrefix})
	}
	return s.scan(ctx, relationPrefix(rel))
}

// Facts returns the facts of relation rel in key order.
func (s *Store) Facts(rel string) ([]program.Fact, error) {
	return collect(s.Scan(context.Background(), rel))
}

// All returns every stored fact in key order.
func (s *Store) All() ([]program.Fact, error) {
	return collect(s.Scan(context.Background(), ""))
}

func collect(seq iter.Seq2[program.Fact, error]) ([]program.Fact, error) {
	var out []program.Fact
	for f, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Relations returns the sorted names of the relations with at least one fact.
func (s *Store) Relations() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	seen := make(map[string]bool)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // We only need keys
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{FactPrefix}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if rel := program.Key(it.Item().Key()[1:]).Relation(); rel != "" {
				seen[rel] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list relations")
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func newBadgerLogger() badgerLogger {
	return badgerLogger{logger.Named("badger")}
}

// Warningf adapts zap's Warnf to badger's Logger interface.
func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
