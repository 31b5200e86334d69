package service

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes. Once a run has completed it also
// reports whether the last run passed.
type HealthzServer struct {
	ctx    context.Context
	server *http.Server
	log    log.Logger

	lastRun atomic.Pointer[string]
}

func NewHealthzServer(l log.Logger) *HealthzServer {
	return &HealthzServer{log: l}
}

// SetLastRunStatus records the status of the most recent run.
func (h *HealthzServer) SetLastRunStatus(status string) {
	h.lastRun.Store(&status)
}

func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	h.ctx = ctx
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Header().Set("Content-Type", "text/plain")
	if s := h.lastRun.Load(); s != nil {
		w.Header().Set("X-Last-Run-Status", *s)
	}
	w.Write([]byte("OK")) //nolint:errcheck
}
