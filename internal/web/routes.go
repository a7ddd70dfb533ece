package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shadowvote/votegate/internal/roll"
	"github.com/shadowvote/votegate/internal/web/handlers"
	"github.com/shadowvote/votegate/internal/web/static"
)

func (s *Server) setupRoutes(verifier handlers.Verifier, store roll.Store) {
	verifyHandler := handlers.NewVerifyHandler(verifier)
	statsHandler := handlers.NewStatsHandler(store)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/verify-qr", verifyHandler.QR)
		r.Post("/verify-fingerprint", verifyHandler.Fingerprint)
		r.Post("/verify-face", verifyHandler.Face)
		r.Post("/send-sms", verifyHandler.SendSMS)

		r.Get("/stats", statsHandler.Get)
	})

	// Kiosk page
	s.router.Get("/*", serveKiosk)
}

// serveKiosk serves the embedded single-page kiosk UI. Any non-API path gets
// index.html so a browser refresh at the polling station never 404s.
func serveKiosk(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()

	f, err := fs.Open("/index.html")
	if err != nil {
		http.Error(w, "kiosk page not built", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
