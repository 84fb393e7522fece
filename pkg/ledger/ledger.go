// Package ledger persists dispatcher state: pending calls in queue order and agent records
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

// Snapshot is everything the ledger saves and restores
type Snapshot struct {
	// NextID is the id the dispatcher hands to the next submitted call.
	NextID int64
	// Calls are the pending calls in dispatch order.
	Calls  []types.Call
	Agents []types.AgentRecord
}

// MaxCallID returns the highest call id referenced by the snapshot, 0 when none.
func (s *Snapshot) MaxCallID() int64 {
	var max int64
	for _, c := range s.Calls {
		if c.ID > max {
			max = c.ID
		}
	}
	for _, a := range s.Agents {
		if a.CurrentCallID > max {
			max = a.CurrentCallID
		}
	}
	return max
}

//go:generate mockgen -destination=../mocks/store_mock.go -package=mocks github.com/poltergeist/callcenter/pkg/ledger Store

// Store saves and loads snapshots.
// Load reports found=false with a nil error when nothing was ever saved.
type Store interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context) (*Snapshot, bool, error)
	Close() error
}

// NewStore opens the store selected by cfg
func NewStore(cfg types.LedgerConfig, log logger.Logger) (Store, error) {
	log = logger.CreateComponentLogger(log, "ledger")

	switch types.LedgerBackend(strings.ToLower(string(cfg.Backend))) {
	case types.LedgerBackendFile, "":
		return NewFileStore(cfg.Path, log), nil
	case types.LedgerBackendSQLite:
		return OpenSQLiteStore(cfg.Path, log)
	default:
		return nil, fmt.Errorf("%w: unknown ledger backend %q", types.ErrInvalidConfig, cfg.Backend)
	}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStorageUnavailable, op, err)
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrCorruptLedger, fmt.Sprintf(format, args...))
}
