package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment / entitlement specific
	ErrUnknownOrder      = errors.New("no payment attempt for order")
	ErrInvalidPlan       = errors.New("plan not in catalog")
	ErrNotRoleGranting   = errors.New("plan does not grant a teacher role")
	ErrDuplicateDelivery = errors.New("webhook delivery already recorded")
)
