package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps the snapshot in a single binary file.
// A sibling .lock file serializes access across processes.
type FileStore struct {
	path   string
	logger logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file is not touched until Save or Load.
func NewFileStore(path string, log logger.Logger) *FileStore {
	if path == "" {
		path = types.DefaultStorePath
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{path: path, logger: log}
}

// Path returns the ledger file location
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the snapshot to a temp file, syncs it and renames it over the ledger.
// On failure the previous ledger is left as it was.
func (s *FileStore) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return storageError("encode", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError("create ledger directory", err)
	}

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storageError("create temp file", err)
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		os.Remove(tmpName)
		return storageError("write ledger", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return storageError("replace ledger", err)
	}

	logger.WithContext(ctx, s.logger).Debug("Ledger written",
		logger.WithField("path", s.path),
		logger.WithField("bytes", len(data)),
		logger.WithField("calls", len(snapshot.Calls)),
		logger.WithField("agents", len(snapshot.Agents)))

	return nil
}

// Load reads the ledger. A missing file reports found=false.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, bool, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, storageError("stat ledger", err)
	}

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, storageError("read ledger", err)
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, storageError("decode ledger", err)
	}

	logger.WithContext(ctx, s.logger).Debug("Ledger read",
		logger.WithField("path", s.path),
		logger.WithField("calls", len(snapshot.Calls)),
		logger.WithField("agents", len(snapshot.Agents)))

	return snapshot, true, nil
}

// Close is a no-op; locks are held only for the duration of a call.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) lock(ctx context.Context, exclusive bool) (func(), error) {
	fl := flock.New(s.path + ".lock")

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, storageError("lock ledger", err)
	}
	if !locked {
		return nil, storageError("lock ledger", fmt.Errorf("lock on %s not acquired", fl.Path()))
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("Failed to release ledger lock", logger.WithField("error", err))
		}
	}, nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
