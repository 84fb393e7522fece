package engine

import (
	"context"
	"errors"
	"fmt"

	pcontext "github.com/poltergeist/callcenter/pkg/context"
	"github.com/poltergeist/callcenter/pkg/ledger"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

// SaveState writes the dispatcher's queue and agent records to store.
// Failures wrap types.ErrStorageUnavailable.
func SaveState(ctx context.Context, d *Dispatcher, store ledger.Store) error {
	ctx = pcontext.EnrichContext(ctx, "save")
	log := logger.WithContext(ctx, d.logger)

	snapshot := d.Snapshot()
	if err := store.Save(ctx, &snapshot); err != nil {
		log.Error("Failed to save state", logger.WithField("error", err))
		return asStorageError(err)
	}

	log.Success("State saved",
		logger.WithField("calls", len(snapshot.Calls)),
		logger.WithField("agents", len(snapshot.Agents)))
	return nil
}

// LoadState restores the dispatcher from store. found is false, with a nil
// error, when the store holds no prior state.
func LoadState(ctx context.Context, d *Dispatcher, store ledger.Store) (found bool, err error) {
	ctx = pcontext.EnrichContext(ctx, "load")
	log := logger.WithContext(ctx, d.logger)

	snapshot, found, err := store.Load(ctx)
	if err != nil {
		log.Error("Failed to load state", logger.WithField("error", err))
		return false, asStorageError(err)
	}
	if !found {
		log.Info("No previous data found")
		return false, nil
	}

	if err := d.Restore(*snapshot); err != nil {
		return false, err
	}

	log.Success("State loaded",
		logger.WithField("calls", len(snapshot.Calls)),
		logger.WithField("agents", len(snapshot.Agents)))
	return true, nil
}

func asStorageError(err error) error {
	if errors.Is(err, types.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", types.ErrStorageUnavailable, err)
}
