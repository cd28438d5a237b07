package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stacklok/fitness-sync-server/internal/fitbit"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

//go:generate mockgen -destination=mocks/mock_sources.go -package=mocks -source=types.go StatisticsSource,ActivitySource

// ErrAllResourcesFailed is returned when no statistics resource could be fetched
var ErrAllResourcesFailed = errors.New("all statistics resources failed")

// StatisticsSource produces merged daily statistics rows
type StatisticsSource interface {
	// Merge returns the rows of window dated on or after the cursor's day
	// (see StatisticsSince). A nil cursor keeps every row.
	Merge(ctx context.Context, client fitbit.Client, userID string, window Window, cursor *time.Time) ([]table.Row, error)
}

// ActivitySource produces flattened activity rows
type ActivitySource interface {
	// Fetch returns every activity logged after from, in upstream order
	Fetch(ctx context.Context, client fitbit.Client, from time.Time) ([]table.Row, error)
}

// ResourceFetchError reports a statistics resource that could not be fetched
type ResourceFetchError struct {
	Resource string
	Err      error
}

func (e *ResourceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Resource, e.Err)
}

func (e *ResourceFetchError) Unwrap() error {
	return e.Err
}

// ActivityParseError reports an activity entry that could not be parsed
type ActivityParseError struct {
	Payload string
	Err     error
}

func (e *ActivityParseError) Error() string {
	return fmt.Sprintf("failed to parse activity: %v", e.Err)
}

func (e *ActivityParseError) Unwrap() error {
	return e.Err
}
