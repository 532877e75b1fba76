package router

import (
	"net/http"

	"portfoliovault/internal/app"
	"portfoliovault/internal/auth"
	"portfoliovault/internal/feedback"
	vaultHandler "portfoliovault/internal/vault"
	"portfoliovault/internal/web"
	"portfoliovault/middleware"
	"portfoliovault/socket"
)

func Setup(a *app.App) http.Handler {
	mux := http.NewServeMux()
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	// WebSocket
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(a.Hub, w, r)
	})

	// Pages
	pages := web.NewHandler(a.Service, a.Config.ContactEmail)
	mux.HandleFunc("/", pages.Index)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Auth
	authHandler := auth.NewHandler(a.Gate)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/auth/status", authHandler.Status)

	// REST API
	vh := vaultHandler.NewVaultHandler(a.Service, a.Config.MaxUploadBytes)

	mux.HandleFunc("/api/documents", vh.GetDocuments)
	mux.HandleFunc("/api/documents/download", vh.DownloadDocument)
	mux.Handle("/api/documents/create", admin(vh.CreateDocument))
	mux.Handle("/api/documents/update", admin(vh.UpdateDocument))
	mux.Handle("/api/documents/delete", admin(vh.DeleteDocument))

	mux.HandleFunc("/api/writings", vh.GetWritings)
	mux.HandleFunc("/api/writings/get", vh.GetWriting)
	mux.Handle("/api/writings/create", admin(vh.CreateWriting))
	mux.Handle("/api/writings/update", admin(vh.UpdateWriting))
	mux.Handle("/api/writings/toggle", admin(vh.ToggleWriting))
	mux.Handle("/api/writings/delete", admin(vh.DeleteWriting))

	mux.HandleFunc("/api/feedback", feedback.NewHandler(a.Feedback).Submit)

	var h http.Handler = mux
	h = middleware.AuthMiddleware(a.Gate)(h)
	h = middleware.RequestLogger(h)
	return middleware.CORSMiddleware(a.Config.AllowedOrigin)(h)
}
