package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"surfsup-server/internal/modules/climate/types"
)

const APIPrefix = "/api/v1.0"

// parseDateParam reads a YYYY-MM-DD path value. Anything else is a client error.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	s := strings.TrimSpace(r.PathValue(name))
	if s == "" {
		return time.Time{}, fmt.Errorf("missing '%s' date", name)
	}
	d, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' %q (expected YYYY-MM-DD)", name, s)
	}
	return d, nil
}

// parseDateRange reads {start} and, when present in the route, {end}.
// An end before start is allowed and simply matches nothing.
func parseDateRange(r *http.Request, withEnd bool) (types.DateRange, error) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		return types.DateRange{}, err
	}
	if !withEnd {
		return types.DateRange{Start: start}, nil
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		return types.DateRange{}, err
	}
	return types.DateRange{Start: start, End: &end}, nil
}
