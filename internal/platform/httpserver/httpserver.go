// Package httpserver configures the HTTP server for the load and query API.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server. Read timeouts are generous enough for a full
// parsed batch to upload; the write timeout must outlast a synchronous
// load, including its retried commit, or the client sees a truncated
// outcome.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}
}
