package api

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleIndex lists every registered route as an HTML paragraph.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("<html><body><h1>Available routes</h1>\n")

	err := chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		fmt.Fprintf(&b, "<p>%s %s</p>\n", method, html.EscapeString(route))
		return nil
	})
	if err != nil {
		s.logger.Error("walk routes", "error", err)
		http.Error(w, "failed to list routes", http.StatusInternalServerError)
		return
	}

	b.WriteString("</body></html>\n")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(b.String())); err != nil {
		s.logger.Error("write index", "error", err)
	}
}
