package fitbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/fitness-sync-server/internal/httpclient"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestClient_TimeSeries(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"activities-steps":[
			{"dateTime":"2024-01-01","value":"1234"},
			{"dateTime":"not-a-date","value":"1"},
			{"dateTime":"2024-01-02","value":"5678"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", httpclient.NewDefaultClient(0))
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series, err := client.TimeSeries(context.Background(), "activities/steps", from, "3m")

	require.NoError(t, err)
	assert.Equal(t, "/1/user/-/activities/steps/date/2024-01-01/3m.json", gotPath)
	assert.Equal(t, "activities/steps", series.Resource)
	require.Len(t, series.Points, 2)
	assert.Equal(t, from, series.Points[0].Date)
	assert.Equal(t, table.Scalar("1234"), series.Points[0].Value)
	assert.Equal(t, from.AddDate(0, 0, 1), series.Points[1].Date)
}

func TestParseSeries_HeartRate(t *testing.T) {
	t.Parallel()

	body := []byte(`{"activities-heart":[{"dateTime":"2024-01-01","value":{
		"restingHeartRate":60,
		"heartRateZones":[{"min":30,"max":94,"minutes":5,"name":"Out of Range"}]
	}}]}`)

	series, err := ParseSeries("activities/heart", body)

	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	v := series.Points[0].Value
	require.Equal(t, table.KindObject, v.Kind)
	zones, ok := v.Object.Get("heartRateZones")
	require.True(t, ok)
	assert.Equal(t, table.KindObjectList, zones.Kind)
}

func TestParseSeries_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>`},
		{name: "missing member", body: `{"errors":[]}`},
		{name: "member is not a list", body: `{"activities-steps":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSeries("activities/steps", []byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestClient_ActivitiesFirstPageURL(t *testing.T) {
	t.Parallel()

	client := NewClient("https://api.fitbit.com", nil)
	raw := client.ActivitiesFirstPageURL(time.Date(2024, 2, 3, 15, 0, 0, 0, time.UTC))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/1/user/-/activities/list.json", u.Path)
	assert.Equal(t, "2024-02-03", u.Query().Get("afterDate"))
	assert.Equal(t, "asc", u.Query().Get("sort"))
	assert.Equal(t, "0", u.Query().Get("offset"))
	assert.Equal(t, "100", u.Query().Get("limit"))
}

func TestClient_ActivitiesPage(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"activities":[{"logId":1,"startTime":"2024-01-01T08:00:00.000+01:00"},{"logId":2}],
			"pagination":{"next":"https://api.fitbit.com/next","previous":""}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, httpclient.NewDefaultClient(0))
	page, err := client.ActivitiesPage(context.Background(), server.URL+"/1/user/-/activities/list.json")

	require.NoError(t, err)
	require.Len(t, page.Activities, 2)
	assert.JSONEq(t, `{"logId":2}`, string(page.Activities[1]))
	assert.Equal(t, "https://api.fitbit.com/next", page.Next)
}

func TestParseActivityPage(t *testing.T) {
	t.Parallel()

	page, err := ParseActivityPage([]byte(`{"activities":[]}`))
	require.NoError(t, err)
	assert.Empty(t, page.Activities)
	assert.Empty(t, page.Next)

	_, err = ParseActivityPage([]byte(`{"activities":"nope"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseActivityPage([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestClient_PropagatesHTTPErrors(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, httpclient.NewDefaultClient(0))
	_, err := client.TimeSeries(context.Background(), "activities/floors", time.Now(), "3m")

	require.Error(t, err)
	assert.True(t, httpclient.IsRateLimited(err))
}
