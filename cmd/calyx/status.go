package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calyx-lang/calyxgo/debugger"
)

// statusDocument is what GET /status returns: enough for an external
// dashboard to show a live debug session without driving the REPL itself.
type statusDocument struct {
	Component   string   `json:"component"`
	Where       []string `json:"where"`
	Breakpoints int      `json:"breakpoints"`
	Watchpoints int      `json:"watchpoints"`
}

// serveStatus starts a read-only HTTP status endpoint over sess on addr,
// blocking until the server errors or is shut down. It never mutates sess;
// the REPL on stdin/stdout remains the only way to drive it.
func serveStatus(logger *slog.Logger, sess *debugger.Session, addr string) error {
	r := mux.NewRouter()
	r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		doc := statusDocument{
			Component:   sess.Component.Name.Name(),
			Where:       sess.Where(),
			Breakpoints: len(sess.Breakpoints),
			Watchpoints: len(sess.Watchpoints),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}).Methods(http.MethodGet)

	logger.Info("calyx: serving debug status", slog.String("addr", addr))
	return http.ListenAndServe(addr, r)
}
