// Package catalogstore implements the in-memory catalog with disk-backed
// durability described in §4.1: a snapshot is loaded into an in-process
// SQLite database at startup, reads/writes are scoped through handles, and
// successful writes schedule an asynchronous full-snapshot flush back to
// disk.
package catalogstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"tivoli/internal/apperrors"
)

// Store holds the in-memory catalog and the handle discipline guarding it.
type Store struct {
	mem      *sql.DB
	dbPath   string
	mu       sync.RWMutex
	poisoned bool
}

// SnapshotLoad opens the on-disk snapshot at dbPath and copies it byte-exact
// into a fresh in-memory SQLite database via the native backup API. It
// fails fatally (non-nil error) if the snapshot cannot be opened.
func SnapshotLoad(dbPath string) (*Store, error) {
	mem, err := sql.Open("sqlite3", memoryDSN())
	if err != nil {
		return nil, fmt.Errorf("open in-memory catalog: %w", err)
	}
	mem.SetMaxOpenConns(1)

	disk, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("open snapshot %s: %w", dbPath, err)
	}
	defer disk.Close()

	if err := backup(mem, disk); err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("load snapshot %s into memory: %w", dbPath, err)
	}

	return &Store{mem: mem, dbPath: dbPath}, nil
}

// memoryDSN returns a DSN for a private, uniquely-named in-memory SQLite
// database. The name must be unique per Store: sqlite3's cache=shared mode
// aliases every connection opened with the same name to one underlying
// database, so a shared literal name would let two Store instances in the
// same process silently share (and tear down) each other's tables.
func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// backup copies the full contents of src into dst using the sqlite3
// driver's native Backup API (the Go analogue of rusqlite::backup::Backup)
// rather than a row-by-row copy.
func backup(dst, src *sql.DB) error {
	dstConn, err := dst.Conn(context.Background())
	if err != nil {
		return err
	}
	defer dstConn.Close()

	srcConn, err := src.Conn(context.Background())
	if err != nil {
		return err
	}
	defer srcConn.Close()

	var backupErr error
	rawErr := dstConn.Raw(func(dstDriverConn interface{}) error {
		return srcConn.Raw(func(srcDriverConn interface{}) error {
			dstSQLite, ok := dstDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("destination connection is not a sqlite3 connection")
			}
			srcSQLite, ok := srcDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("source connection is not a sqlite3 connection")
			}

			b, err := dstSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return err
			}
			defer b.Close()

			for {
				done, err := b.Step(-1)
				if err != nil {
					backupErr = err
					return err
				}
				if done {
					return nil
				}
			}
		})
	})
	if rawErr != nil {
		return rawErr
	}
	return backupErr
}

// WithRead acquires a shared read handle for the duration of f. Readers may
// proceed in parallel; a read never observes a write that has not yet been
// acknowledged.
func (s *Store) WithRead(_ context.Context, f func(*sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.poisoned {
		return apperrors.Storage(fmt.Errorf("catalog store is poisoned"))
	}
	return translateErr(f(s.mem))
}

// WithWrite acquires an exclusive write handle for the duration of f.
// Writers are serialised against both readers and other writers. If f
// panics, the store is marked poisoned and subsequent handle acquisitions
// fail with StorageError instead of the panic propagating a second time.
func (s *Store) WithWrite(_ context.Context, f func(*sql.DB) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return apperrors.Storage(fmt.Errorf("catalog store is poisoned"))
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			err = apperrors.Storage(fmt.Errorf("write handle panicked: %v", r))
		}
	}()

	return translateErr(f(s.mem))
}

// translateErr wraps an unexpected error from a handle callback as a
// StorageError unless it is already a classified *apperrors.Error.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*apperrors.Error); ok {
		return err
	}
	return apperrors.Storage(err)
}

// Flush writes a byte-equivalent full snapshot of the in-memory catalog
// back to dbPath. Callers invoke this from a worker-pool goroutine (see
// internal/workerpool) so disk I/O never blocks a request handler; failures
// are logged by the caller and never invalidate the in-memory state.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	disk, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open snapshot target %s: %w", s.dbPath, err)
	}
	defer disk.Close()

	if err := backup(disk, s.mem); err != nil {
		return fmt.Errorf("flush snapshot to %s: %w", s.dbPath, err)
	}
	return nil
}

// Close releases the in-memory database handle.
func (s *Store) Close() error {
	return s.mem.Close()
}
