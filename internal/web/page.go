package web

import (
	"embed"
	"html/template"
	"net/http"

	"portfoliovault/internal/auth"
	"portfoliovault/internal/vault/model"
	"portfoliovault/internal/vault/service"
	"portfoliovault/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	PageHome      = "home"
	PageDocuments = "documents"
	PageWritings  = "writings"
)

type pageData struct {
	Owner        string
	Page         string
	IsAdmin      bool
	ContactEmail string
	Documents    []model.DocumentMetadata
	Writings     []model.Writing
}

// Handler renders the landing page and the two read-only sections.
type Handler struct {
	Service      *service.VaultService
	Owner        string
	ContactEmail string
}

func NewHandler(service *service.VaultService, contactEmail string) *Handler {
	return &Handler{Service: service, Owner: "Safalll", ContactEmail: contactEmail}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	admin := auth.IsAdmin(r.Context())
	data := pageData{
		Owner:        h.Owner,
		Page:         PageHome,
		IsAdmin:      admin,
		ContactEmail: h.ContactEmail,
	}
	switch r.URL.Query().Get("page") {
	case PageDocuments:
		data.Page = PageDocuments
		data.Documents = h.Service.ListDocuments()
	case PageWritings:
		data.Page = PageWritings
		data.Writings = h.Service.ListWritings(admin)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.Sugar.Errorf("Failed to render page %s: %v", data.Page, err)
	}
}
