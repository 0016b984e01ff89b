package http

import (
	"net/http"
	"time"

	apperrors "defensebook/pkg/errors"
)

const DateLayout = "2006-01-02"

// ExtractDate reads a YYYY-MM-DD query parameter and interprets it as a
// calendar date in loc.
func ExtractDate(r *http.Request, key string, loc *time.Location) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, apperrors.InvalidInput("missing '" + key + "' query parameter, expected YYYY-MM-DD")
	}

	date, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid '" + key + "' query parameter: " + raw + ", expected YYYY-MM-DD")
	}
	return date, nil
}
