package network

import "errors"

var (
	// ErrCabinetNotFound means the cabinet does not exist for the caller's tenant.
	ErrCabinetNotFound = errors.New("cabinet not found")

	// ErrTenantMismatch means the cabinet exists but belongs to another tenant.
	// Always fatal to the request and logged as a security-relevant event.
	ErrTenantMismatch = errors.New("cabinet belongs to a different tenant")

	// ErrCapacityExceeded means a reservation was attempted on a full cabinet.
	// The association service recovers by moving to the next-nearest candidate.
	ErrCapacityExceeded = errors.New("cabinet has no free ports")

	// ErrInvalidPort means a release targeted a port that is not reserved.
	ErrInvalidPort = errors.New("port is not reserved")

	// ErrCapacityBelowUsage means a resize would shrink total ports under
	// the number currently in use.
	ErrCapacityBelowUsage = errors.New("new capacity is below current usage")

	// ErrNoEligibleCabinet is the legitimate "no capacity in range" outcome
	// of a nearest-available search, not a failure.
	ErrNoEligibleCabinet = errors.New("no cabinet with free ports")

	// ErrCabinetOccupied means a cabinet with reserved ports cannot be deleted.
	ErrCabinetOccupied = errors.New("cabinet has reserved ports")
)
