package services

import "errors"

var (
	// ErrDataSourceUnavailable marks a failed roster, eligibility or history read.
	// Reads that can degrade log it and continue with empty data.
	ErrDataSourceUnavailable = errors.New("data source unavailable")

	// ErrInvalidSelection marks members rejected by a manual save
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrPersistenceFailure marks a failed role commit
	ErrPersistenceFailure = errors.New("failed to persist assignments")
)
