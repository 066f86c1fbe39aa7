package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the operational routes; feature modules add their own.
func NewMux(db *sql.DB, m *Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", m.Handler())
	return mux
}
