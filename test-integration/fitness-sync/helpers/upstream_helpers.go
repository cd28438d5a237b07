// Package helpers provides fixtures for the fitness sync integration tests.
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Activity is one entry served by the fake activity log
type Activity struct {
	LogID        int64
	ActivityName string
	StartTime    string
	Steps        int
}

// FakeUpstream serves the subset of the fitness API read by the sync server
// and the OAuth2 token endpoint
type FakeUpstream struct {
	server *httptest.Server

	mu            sync.Mutex
	days          []time.Time
	activities    []Activity
	requests      []string
	refreshes     int
	failResources map[string]bool
	accessToken   string
}

// NewFakeUpstream starts a fake API serving the given days and activities
func NewFakeUpstream(days []time.Time, activities []Activity) *FakeUpstream {
	f := &FakeUpstream{
		days:          days,
		activities:    activities,
		failResources: map[string]bool{},
		accessToken:   "access-1",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", f.handleToken)
	mux.HandleFunc("/1/user/-/", f.handleUser)
	f.server = httptest.NewServer(mux)
	f.server.Config.SetKeepAlivesEnabled(false)
	return f
}

// URL returns the API root
func (f *FakeUpstream) URL() string {
	return f.server.URL
}

// TokenURL returns the OAuth2 token endpoint
func (f *FakeUpstream) TokenURL() string {
	return f.server.URL + "/oauth2/token"
}

// Close stops the server
func (f *FakeUpstream) Close() {
	f.server.Close()
}

// FailResource makes every request for resource return 500
func (f *FakeUpstream) FailResource(resource string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failResources[resource] = true
}

// Requests returns the paths and queries served so far
func (f *FakeUpstream) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Refreshes returns how many token refreshes were served
func (f *FakeUpstream) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// AccessToken returns the access token currently accepted
func (f *FakeUpstream) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessToken
}

func (f *FakeUpstream) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "refresh_token" {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.refreshes++
	f.accessToken = fmt.Sprintf("access-%d", f.refreshes+1)
	token := f.accessToken
	f.mu.Unlock()

	writeJSON(w, map[string]any{
		"access_token":  token,
		"refresh_token": fmt.Sprintf("refresh-%d", f.refreshes+1),
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
}

func (f *FakeUpstream) handleUser(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.RequestURI())
	accepted := "Bearer " + f.accessToken
	f.mu.Unlock()

	if r.Header.Get("Authorization") != accepted {
		http.Error(w, `{"errors":[{"errorType":"expired_token"}]}`, http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/1/user/-/")
	if path == "activities/list.json" {
		f.serveActivities(w)
		return
	}

	// <resource>/date/<from>/<period>.json
	resource, _, ok := strings.Cut(path, "/date/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	fail := f.failResources[resource]
	f.mu.Unlock()
	if fail {
		http.Error(w, `{"errors":[{"errorType":"system"}]}`, http.StatusInternalServerError)
		return
	}
	f.serveSeries(w, resource)
}

func (f *FakeUpstream) serveSeries(w http.ResponseWriter, resource string) {
	entries := make([]map[string]any, 0, len(f.days))
	for i, day := range f.days {
		var value any = fmt.Sprint(1000 * (i + 1))
		if resource == "activities/heart" {
			value = map[string]any{
				"restingHeartRate": 60 + i,
				"heartRateZones": []map[string]any{
					{"min": 30, "max": 100, "minutes": 600 + i},
					{"min": 100, "max": 140, "minutes": 30 + i},
				},
			}
		}
		entries = append(entries, map[string]any{
			"dateTime": day.Format("2006-01-02"),
			"value":    value,
		})
	}
	writeJSON(w, map[string]any{strings.ReplaceAll(resource, "/", "-"): entries})
}

func (f *FakeUpstream) serveActivities(w http.ResponseWriter) {
	entries := make([]map[string]any, 0, len(f.activities))
	for _, a := range f.activities {
		entries = append(entries, map[string]any{
			"logId":        a.LogID,
			"activityName": a.ActivityName,
			"startTime":    a.StartTime,
			"steps":        a.Steps,
			"source":       map[string]any{"name": "Watch"},
		})
	}
	writeJSON(w, map[string]any{
		"activities": entries,
		"pagination": map[string]any{"next": ""},
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
