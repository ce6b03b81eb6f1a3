package repositories

import "errors"

var (
	// ErrRoutingConfigNotFound indicates no routing configuration exists for the
	// identifier and owning client.
	ErrRoutingConfigNotFound = errors.New("routing config repository: routing configuration not found")
	// ErrLockConflict indicates the caller's lock number no longer matches the
	// stored document and the mutation was rejected.
	ErrLockConflict = errors.New("routing config repository: lock number conflict")
	// ErrInvalidStatus indicates the configuration is not in a status that
	// permits the requested mutation.
	ErrInvalidStatus = errors.New("routing config repository: invalid status for operation")
)
