package model

import "errors"

// Error kinds used across the store and detection layers. Callers compare
// with errors.Is against these sentinels; concrete errors wrap one of them with
// fmt.Errorf("...: %w", ...).
var (
	// ErrInputMissing means detection was asked to run with no carriers in
	// the store. Detection aborts with a user-facing message.
	ErrInputMissing = errors.New("no carriers present in store")

	// ErrFetchTransient marks a retryable fetch failure (network/HTTP 5xx).
	ErrFetchTransient = errors.New("transient fetch failure")

	// ErrFetchFatal marks a fetch failure after retries are exhausted. The
	// owning ingestion stage is marked failed; later stages may still run.
	ErrFetchFatal = errors.New("fetch failed after retries")

	// ErrParse marks a single malformed row. Never propagated past the row
	// that produced it; the row is dropped silently, without a log line.
	ErrParse = errors.New("row parse error")

	// ErrStore marks a transactional store failure. The owning operation's
	// transaction is rolled back and the error is fatal to that run.
	ErrStore = errors.New("store error")
)
