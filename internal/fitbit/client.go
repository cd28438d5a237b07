// Package fitbit is a client for the parts of the Fitbit Web API the sync
// server reads: daily activity time series and the paginated activity log.
package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stacklok/fitness-sync-server/internal/httpclient"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

const (
	// DateLayout is the upstream calendar date format
	DateLayout = "2006-01-02"

	// PageLimit is the number of activities requested per page
	PageLimit = 100
)

// ErrInvalidPayload is returned when an upstream response is not the expected JSON document
var ErrInvalidPayload = errors.New("invalid upstream payload")

// SeriesPoint is one daily value of a time series
type SeriesPoint struct {
	Date  time.Time
	Value table.Value
}

// Series is the response to a time series request
type Series struct {
	Resource string
	Points   []SeriesPoint
}

// ActivityPage is one page of the activity log
type ActivityPage struct {
	// Activities holds the raw entries in upstream order
	Activities []json.RawMessage
	// Next is the upstream pagination.next value, empty on the last page
	Next string
}

// Client reads fitness data for the authenticated user
type Client interface {
	// TimeSeries fetches the daily series of resource starting at from over period (e.g. "3m")
	TimeSeries(ctx context.Context, resource string, from time.Time, period string) (*Series, error)
	// ActivitiesFirstPageURL returns the URL of the first activity page after afterDate
	ActivitiesFirstPageURL(afterDate time.Time) string
	// ActivitiesPage fetches one activity page
	ActivitiesPage(ctx context.Context, pageURL string) (*ActivityPage, error)
}

type apiClient struct {
	baseURL string
	http    httpclient.Client
}

// NewClient creates a Client rooted at baseURL. The httpclient is expected to
// authenticate requests, e.g. one built around an oauth2 token source.
func NewClient(baseURL string, client httpclient.Client) Client {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// SeriesKey returns the response member holding the series of resource
func SeriesKey(resource string) string {
	return strings.ReplaceAll(resource, "/", "-")
}

func (c *apiClient) TimeSeries(ctx context.Context, resource string, from time.Time, period string) (*Series, error) {
	endpoint := fmt.Sprintf("%s/1/user/-/%s/date/%s/%s.json",
		c.baseURL, resource, from.UTC().Format(DateLayout), period)

	body, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return ParseSeries(resource, body)
}

// ParseSeries decodes a time series response body
func ParseSeries(resource string, body []byte) (*Series, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s response is not JSON", ErrInvalidPayload, resource)
	}
	entries := gjson.GetBytes(body, SeriesKey(resource))
	if !entries.IsArray() {
		return nil, fmt.Errorf("%w: %s response has no %s list", ErrInvalidPayload, resource, SeriesKey(resource))
	}

	series := &Series{Resource: resource}
	for _, entry := range entries.Array() {
		raw := entry.Get("dateTime").String()
		date, err := time.ParseInLocation(DateLayout, raw, time.UTC)
		if err != nil {
			slog.Warn("Skipping series entry with invalid date",
				"resource", resource,
				"date_time", raw,
				"error", err)
			continue
		}
		series.Points = append(series.Points, SeriesPoint{
			Date:  date,
			Value: table.FromJSON(entry.Get("value")),
		})
	}
	return series, nil
}

func (c *apiClient) ActivitiesFirstPageURL(afterDate time.Time) string {
	q := url.Values{}
	q.Set("afterDate", afterDate.UTC().Format(DateLayout))
	q.Set("sort", "asc")
	q.Set("offset", "0")
	q.Set("limit", fmt.Sprint(PageLimit))
	return c.baseURL + "/1/user/-/activities/list.json?" + q.Encode()
}

func (c *apiClient) ActivitiesPage(ctx context.Context, pageURL string) (*ActivityPage, error) {
	body, err := c.http.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseActivityPage(body)
}

// ParseActivityPage decodes an activity log page
func ParseActivityPage(body []byte) (*ActivityPage, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: activity page is not JSON", ErrInvalidPayload)
	}
	doc := gjson.ParseBytes(body)
	activities := doc.Get("activities")
	if activities.Exists() && !activities.IsArray() {
		return nil, fmt.Errorf("%w: activities is not a list", ErrInvalidPayload)
	}

	page := &ActivityPage{Next: doc.Get("pagination.next").String()}
	for _, a := range activities.Array() {
		page.Activities = append(page.Activities, json.RawMessage(a.Raw))
	}
	return page, nil
}
