package types

import "errors"

// Sentinel errors for dispatcher and ledger operations.
// Check them with errors.Is; callers get wrapped variants with detail.
var (
	// ErrInvalidAgent indicates a release target outside 1..N
	ErrInvalidAgent = errors.New("invalid agent")

	// ErrInvalidInput indicates a priority, duration or caller field outside its domain
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable indicates the ledger store could not be read or written
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCorruptLedger indicates the store exists but its content cannot be decoded
	ErrCorruptLedger = errors.New("corrupt ledger")

	// ErrAgentsBusy indicates state cannot be replaced while agents are handling calls
	ErrAgentsBusy = errors.New("agents are busy")

	// ErrInvalidConfig indicates a configuration value outside its domain
	ErrInvalidConfig = errors.New("invalid configuration")
)
