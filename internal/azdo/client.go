package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Fetcher executes the per-family fetches against the tracker and returns the
// raw decoded structures. Implementations own transport concerns (auth,
// throttling, retries); the engine only sees raw records or a TransportError.
type Fetcher interface {
	FetchWorkItems(ctx context.Context, spec QuerySpec) ([]json.RawMessage, error)
	FetchTestResults(ctx context.Context, spec QuerySpec) ([]json.RawMessage, error)
}

// TransportError reports a network/auth/HTTP failure reaching the tracker.
// Status is the HTTP status code, or 0 for connection-level failures.
type TransportError struct {
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return "transport error: " + e.Message
	}
	return fmt.Sprintf("transport error (status %d): %s", e.Status, e.Message)
}

// Config holds the connection settings for the tracker.
type Config struct {
	BaseURL    string // e.g. https://dev.azure.com
	Org        string
	Project    string
	PAT        string
	APIVersion string

	// PlanID optionally narrows the test-run listing to one test plan.
	PlanID string

	// RequestDelay throttles consecutive data requests to stay under the
	// tracker's rate limits.
	RequestDelay time.Duration
}

// NewClient creates a Fetcher for the configured tracker instance.
func NewClient(cfg Config) Fetcher {
	return newRESTClient(cfg)
}
