package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for opening a Badger database.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps all data in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a Badger database. The caller must Close it.
func OpenBadger(cfg BadgerConfig) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// Badger stores a table in a shared Badger database, one key per
// subject under a fixed prefix. Several tables can share one database
// by using distinct prefixes.
//
// Badger does not track insertion order, so Load returns subjects in
// key order.
type Badger struct {
	db     *badger.DB
	prefix []byte
}

// NewBadger returns a backend over db. The database is not closed by
// the backend.
func NewBadger(db *badger.DB, prefix string) *Badger {
	return &Badger{db: db, prefix: []byte(prefix + "/")}
}

func (b *Badger) key(subject string) []byte {
	k := make([]byte, 0, len(b.prefix)+len(subject))
	k = append(k, b.prefix...)
	return append(k, subject...)
}

func (b *Badger) Load() (*Table, error) {
	t := NewTable()
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			subject := string(item.Key()[len(b.prefix):])

			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("%w: subject %q: %v", ErrUnreadable, subject, err)
			}
			entries, err := DecodeEntries(value)
			if err != nil {
				return fmt.Errorf("subject %q: %w", subject, err)
			}
			t.Set(subject, entries)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCorrupt) || errors.Is(err, ErrUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return t, nil
}

// Save writes every subject of t in one batch.
func (b *Badger) Save(t *Table) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	var err error
	t.Iterate(func(subject string, entries []Entry) {
		if err != nil {
			return
		}
		var value []byte
		if value, err = encodeEntries(entries); err != nil {
			return
		}
		err = wb.Set(b.key(subject), value)
	})
	if err != nil {
		return fmt.Errorf("badger batch: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger flush: %w", err)
	}
	return nil
}

// Put writes the entries of one subject.
func (b *Badger) Put(subject string, entries []Entry) error {
	value, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(subject), value)
	}); err != nil {
		return fmt.Errorf("badger put %q: %w", subject, err)
	}
	return nil
}

// Close is a no-op; the owner of the database closes it.
func (b *Badger) Close() error {
	return nil
}
