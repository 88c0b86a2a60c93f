package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product id cannot be resolved
	ErrProductNotFound = errors.New("product not found")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrSourceFailure is returned by a source adapter whose backend failed
	ErrSourceFailure = errors.New("source request failed")

	// ErrAllSourcesFailed is returned when no source adapter produced a result
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrVectorBackendFailure is returned when embedding or index lookup fails
	ErrVectorBackendFailure = errors.New("vector backend failure")

	// ErrStoreFailure is returned when the product store cannot be queried
	ErrStoreFailure = errors.New("product store failure")
)
