package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portfoliovault/internal/auth"
	"portfoliovault/internal/vault/model"
	"portfoliovault/internal/vault/service"
	"portfoliovault/internal/vault/state"
	"portfoliovault/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *VaultHandler {
	t.Helper()
	vault := state.Load(context.Background(), store.NewMemory(), nil)
	return NewVaultHandler(service.NewVaultService(vault), 1<<20)
}

func asAdmin(t *testing.T, r *http.Request) *http.Request {
	t.Helper()
	flag := auth.NewFlag(auth.NewGate("risk", "secret", time.Hour))
	require.NoError(t, flag.Unlock("risk"))
	return r.WithContext(auth.WithFlag(r.Context(), flag))
}

func multipartBody(t *testing.T, name, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func createDocument(t *testing.T, h *VaultHandler, name, filename, content string) string {
	t.Helper()
	body, contentType := multipartBody(t, name, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/create", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.CreateDocument(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.CreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestDocumentLifecycle(t *testing.T) {
	h := newHandler(t)

	id := createDocument(t, h, "Resume", "resume.txt", "hello world")

	rec := httptest.NewRecorder()
	h.GetDocuments(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.DocumentMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Resume", list[0].Name)
	assert.Equal(t, 11, list[0].Size)

	rec = httptest.NewRecorder()
	h.DownloadDocument(rec, httptest.NewRequest(http.MethodGet, "/api/documents/download?docId="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, "attachment; filename=Resume", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/octet-stream") ||
		strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	rec = httptest.NewRecorder()
	h.DeleteDocument(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/delete?docId="+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.Service.ListDocuments())

	rec = httptest.NewRecorder()
	h.DownloadDocument(rec, httptest.NewRequest(http.MethodGet, "/api/documents/download?docId="+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateDocumentValidation(t *testing.T) {
	h := newHandler(t)

	body, contentType := multipartBody(t, "Resume", "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/create", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.CreateDocument(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A file must be selected for new documents.")

	rec = httptest.NewRecorder()
	h.CreateDocument(rec, httptest.NewRequest(http.MethodPost, "/api/documents/create", strings.NewReader("not multipart")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateDocument(rec, httptest.NewRequest(http.MethodGet, "/api/documents/create", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCreateDocumentTooLarge(t *testing.T) {
	h := newHandler(t)
	h.MaxUploadBytes = 64

	body, contentType := multipartBody(t, "Big", "big.bin", strings.Repeat("x", 1024))
	req := httptest.NewRequest(http.MethodPost, "/api/documents/create", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.CreateDocument(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.Service.ListDocuments())
}

func TestUpdateDocumentRename(t *testing.T) {
	h := newHandler(t)
	id := createDocument(t, h, "Resume", "resume.txt", "v1")

	body, contentType := multipartBody(t, "CV", "", "")
	req := httptest.NewRequest(http.MethodPut, "/api/documents/update?docId="+id, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.UpdateDocument(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	name, _, content, err := h.Service.Download(id)
	require.NoError(t, err)
	assert.Equal(t, "CV", name)
	assert.Equal(t, "v1", string(content))

	body, contentType = multipartBody(t, "CV", "", "")
	req = httptest.NewRequest(http.MethodPut, "/api/documents/update?docId=missing", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	h.UpdateDocument(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingIDParameters(t *testing.T) {
	h := newHandler(t)

	cases := []struct {
		method string
		fn     http.HandlerFunc
	}{
		{http.MethodGet, h.DownloadDocument},
		{http.MethodPut, h.UpdateDocument},
		{http.MethodDelete, h.DeleteDocument},
		{http.MethodGet, h.GetWriting},
		{http.MethodPut, h.UpdateWriting},
		{http.MethodPut, h.ToggleWriting},
		{http.MethodDelete, h.DeleteWriting},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		c.fn(rec, httptest.NewRequest(c.method, "/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestWritingVisibility(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.CreateWriting(rec, httptest.NewRequest(http.MethodPost, "/api/writings/create",
		strings.NewReader(`{"title":"Draft","content":"hello","isPublic":false}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.CreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	h.GetWritings(rec, httptest.NewRequest(http.MethodGet, "/api/writings", nil))
	assert.JSONEq(t, `[]`, rec.Body.String(), "viewers do not see private writings")

	rec = httptest.NewRecorder()
	h.GetWriting(rec, httptest.NewRequest(http.MethodGet, "/api/writings/get?writingId="+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetWritings(rec, asAdmin(t, httptest.NewRequest(http.MethodGet, "/api/writings", nil)))
	var all []model.Writing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "Draft", all[0].Title)

	rec = httptest.NewRecorder()
	h.ToggleWriting(rec, httptest.NewRequest(http.MethodPut, "/api/writings/toggle?writingId="+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetWritings(rec, httptest.NewRequest(http.MethodGet, "/api/writings", nil))
	var public []model.Writing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	require.Len(t, public, 1)
	assert.True(t, public[0].IsPublic)
}

func TestWritingUpdateAndDelete(t *testing.T) {
	h := newHandler(t)
	w, err := h.Service.CreateWriting(context.Background(), model.WritingRequest{})
	require.Error(t, err)

	title, content := "Poem", "roses"
	w, err = h.Service.CreateWriting(context.Background(), model.WritingRequest{Title: &title, Content: &content})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.UpdateWriting(rec, httptest.NewRequest(http.MethodPut, "/api/writings/update?writingId="+w.ID,
		strings.NewReader(`{"content":"violets"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Writing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.Writing{ID: w.ID, Title: "Poem", Content: "violets", IsPublic: true}, updated)

	rec = httptest.NewRecorder()
	h.UpdateWriting(rec, httptest.NewRequest(http.MethodPut, "/api/writings/update?writingId="+w.ID,
		strings.NewReader(`{"title":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required.")

	rec = httptest.NewRecorder()
	h.DeleteWriting(rec, httptest.NewRequest(http.MethodDelete, "/api/writings/delete?writingId="+w.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.Service.ListWritings(true))

	rec = httptest.NewRecorder()
	h.DeleteWriting(rec, httptest.NewRequest(http.MethodDelete, "/api/writings/delete?writingId="+w.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code, "deleting an unknown id is a no-op")
}

func TestCreateWritingValidation(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.CreateWriting(rec, httptest.NewRequest(http.MethodPost, "/api/writings/create", strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Content is required.")

	rec = httptest.NewRecorder()
	h.CreateWriting(rec, httptest.NewRequest(http.MethodPost, "/api/writings/create", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadNonASCIIName(t *testing.T) {
	h := newHandler(t)
	id := createDocument(t, h, "Résumé 2024", "cv.pdf", "%PDF-1.4")

	rec := httptest.NewRecorder()
	h.DownloadDocument(rec, httptest.NewRequest(http.MethodGet, "/api/documents/download?docId="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	disposition := rec.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "filename*=utf-8''")
	for _, b := range []byte(disposition) {
		require.Less(t, b, byte(0x80), "header must be ASCII: %q", disposition)
	}
	kind, params, err := mime.ParseMediaType(disposition)
	require.NoError(t, err)
	assert.Equal(t, "attachment", kind)
	assert.Equal(t, "Résumé 2024", params["filename"])
}

func TestWritingBodyTooLarge(t *testing.T) {
	h := newHandler(t)
	h.MaxUploadBytes = 64
	body := `{"title":"Long","content":"` + strings.Repeat("x", 1024) + `"}`

	rec := httptest.NewRecorder()
	h.CreateWriting(rec, httptest.NewRequest(http.MethodPost, "/api/writings/create", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.Service.ListWritings(true))

	title, content := "Poem", "roses"
	w, err := h.Service.CreateWriting(context.Background(), model.WritingRequest{Title: &title, Content: &content})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.UpdateWriting(rec, httptest.NewRequest(http.MethodPut, "/api/writings/update?writingId="+w.ID, strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	got, err := h.Service.GetWriting(w.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "roses", got.Content)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFilename(`a/b"c`))
	assert.Equal(t, "download", sanitizeFilename("  "))
}
