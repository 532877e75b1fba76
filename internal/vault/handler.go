package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"portfoliovault/internal/auth"
	"portfoliovault/internal/vault/model"
	"portfoliovault/internal/vault/service"
	"portfoliovault/pkg/logger"
)

type VaultHandler struct {
	Service        *service.VaultService
	MaxUploadBytes int64
}

func NewVaultHandler(service *service.VaultService, maxUploadBytes int64) *VaultHandler {
	return &VaultHandler{Service: service, MaxUploadBytes: maxUploadBytes}
}

// writeServiceError maps service errors onto plain-text HTTP errors.
func writeServiceError(w http.ResponseWriter, action string, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Message, http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, service.ErrFileRead):
		http.Error(w, "Failed to read the file.", http.StatusBadRequest)
	default:
		logger.Sugar.Errorf("Handler: Failed to %s: %v", action, err)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// readDocumentForm parses the multipart form and returns the name field and
// the optional file.
func (h *VaultHandler) readDocumentForm(w http.ResponseWriter, r *http.Request) (string, *service.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		return "", nil, func() {}, err
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	name := r.FormValue("name")
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return name, nil, cleanup, nil
	}
	if err != nil {
		return "", nil, cleanup, err
	}
	prev := cleanup
	cleanup = func() { file.Close(); prev() }
	return name, uploadFrom(file, header), cleanup, nil
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}

func (h *VaultHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.Service.ListDocuments())
}

func (h *VaultHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	name, mediaType, content, err := h.Service.Download(docID)
	if err != nil {
		writeServiceError(w, "download document", err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", mediaType)
	header.Set("Content-Length", strconv.Itoa(len(content)))
	header.Set("Content-Disposition", contentDisposition(name))
	w.Write(content)
}

func (h *VaultHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, upload, cleanup, err := h.readDocumentForm(w, r)
	defer cleanup()
	if err != nil {
		http.Error(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.Service.CreateDocument(r.Context(), name, upload)
	if err != nil {
		writeServiceError(w, "create document", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, model.CreateResponse{ID: doc.ID})
}

func (h *VaultHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	name, upload, cleanup, err := h.readDocumentForm(w, r)
	defer cleanup()
	if err != nil {
		http.Error(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.Service.UpdateDocument(r.Context(), docID, name, upload); err != nil {
		writeServiceError(w, "update document", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document updated successfully"))
}

func (h *VaultHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	h.Service.DeleteDocument(r.Context(), docID)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document deleted successfully"))
}

func (h *VaultHandler) GetWritings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.Service.ListWritings(auth.IsAdmin(r.Context())))
}

func (h *VaultHandler) GetWriting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writingID := r.URL.Query().Get("writingId")
	if writingID == "" {
		http.Error(w, "Missing writingId parameter", http.StatusBadRequest)
		return
	}

	writing, err := h.Service.GetWriting(writingID, auth.IsAdmin(r.Context()))
	if err != nil {
		writeServiceError(w, "get writing", err)
		return
	}
	writeJSON(w, writing)
}

func (h *VaultHandler) CreateWriting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	var req model.WritingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writing, err := h.Service.CreateWriting(r.Context(), req)
	if err != nil {
		writeServiceError(w, "create writing", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, model.CreateResponse{ID: writing.ID})
}

func (h *VaultHandler) UpdateWriting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writingID := r.URL.Query().Get("writingId")
	if writingID == "" {
		http.Error(w, "Missing writingId parameter", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	var req model.WritingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writing, err := h.Service.UpdateWriting(r.Context(), writingID, req)
	if err != nil {
		writeServiceError(w, "update writing", err)
		return
	}
	writeJSON(w, writing)
}

func (h *VaultHandler) ToggleWriting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writingID := r.URL.Query().Get("writingId")
	if writingID == "" {
		http.Error(w, "Missing writingId parameter", http.StatusBadRequest)
		return
	}

	writing, err := h.Service.ToggleVisibility(r.Context(), writingID)
	if err != nil {
		writeServiceError(w, "toggle writing", err)
		return
	}
	writeJSON(w, writing)
}

func (h *VaultHandler) DeleteWriting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writingID := r.URL.Query().Get("writingId")
	if writingID == "" {
		http.Error(w, "Missing writingId parameter", http.StatusBadRequest)
		return
	}

	h.Service.DeleteWriting(r.Context(), writingID)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Writing deleted successfully"))
}

// contentDisposition marks the response as a download named after the
// document. Non-ASCII names are sent in the RFC 2231 filename* form.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": sanitizeFilename(name)}); v != "" {
		return v
	}
	return "attachment"
}

// sanitizeFilename keeps the document name usable as a download file name.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, r == '/', r == '\\', r == '"':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "download"
	}
	return name
}
