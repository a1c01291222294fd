package shared

import (
	"fmt"

	internalShared "github.com/cropledger/cropledger/internal/shared"
)

var (
	ErrInvalidID     = fmt.Errorf("invalid ID: %w", internalShared.ErrValidation)
	ErrRequiredField = fmt.Errorf("field is required: %w", internalShared.ErrValidation)
	ErrInUse         = fmt.Errorf("resource is referenced by ledger or trading records: %w", internalShared.ErrConflict)
)
