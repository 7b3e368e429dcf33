package httpserver

import (
	"net/http"
	"time"
)

// Timeouts bounds connection phases. Zero values fall back to defaults.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// New builds an HTTP server with sane defaults for this project.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	if t.Read <= 0 {
		t.Read = 10 * time.Second
	}
	if t.Write <= 0 {
		t.Write = 30 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       2 * time.Minute,
	}
}
