package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Verifier callbacks and admin exports are the
// slowest handlers; the write timeout is sized for the CSV export path.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
