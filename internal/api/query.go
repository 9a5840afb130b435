package api

import (
	"net/http"
	"strconv"
	"time"
)

// pageParams reads limit and offset from the query string.
func pageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = intParam(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badQuery(name, "must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badQuery(name, "must be true or false, got %q", raw)
	}
	return b, nil
}

// durationParam accepts Go durations ("36h") or a bare number of hours.
func durationParam(r *http.Request, name string) (time.Duration, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	if h, err := strconv.Atoi(raw); err == nil && h >= 0 {
		return time.Duration(h) * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, badQuery(name, "must be a duration like 24h, got %q", raw)
	}
	return d, nil
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
