package http

import (
	"net/url"
	apperrors "payrouter/pkg/errors"
	"strconv"
	"time"
)

// QueryInt reads an integer query parameter. Missing values yield fallback.
func QueryInt(query url.Values, key string, fallback int) (int, error) {
	s := query.Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return v, nil
}

// QueryTime reads a timestamp given either as unix seconds or RFC 3339. Missing values yield nil.
func QueryTime(query url.Values, key string) (*time.Time, error) {
	s := query.Get(key)
	if s == "" {
		return nil, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	t = t.UTC()
	return &t, nil
}
