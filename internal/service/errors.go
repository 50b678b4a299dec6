package service

import (
	"errors"

	"warehouse/internal/ledger"
)

var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = ledger.ErrInvalid
	ErrNotFound   = errors.New("not found")
	// ErrSheetBusy is returned when another save for the same sheet holds the lock.
	ErrSheetBusy = errors.New("another save for this sheet is in progress")
	ErrAuth      = errors.New("invalid credentials")
)
