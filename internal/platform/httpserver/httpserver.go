// Package httpserver builds the process's HTTP server with its timeout policy
// in one place.
package httpserver

import (
	"net/http"
	"time"
)

// Treasury requests are small JSON bodies; anything holding a connection
// longer than these bounds is a stuck client, not a big payload.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds the server for the given address and root handler.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
