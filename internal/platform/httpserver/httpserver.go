package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts suited to vendor round trips. The
// write timeout bounds a whole verification, which the service itself does not.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
