package domain

import "errors"

var (
	// ErrNavigationTimeout means a bounded wait was never satisfied.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrNotFound means a search exhausted its budget, or a required control was absent.
	ErrNotFound = errors.New("not found")

	// ErrTransport means a direct download returned a non-2xx status or failed in flight.
	ErrTransport = errors.New("transport error")

	// ErrMissingArtifact means no downloaded file matched the canonical name's stem.
	// Callers treat it as a warning.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrDataShortfall means neither the current nor the prior month could fill the weekly window.
	ErrDataShortfall = errors.New("data shortfall")
)
