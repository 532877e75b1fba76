package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"portfoliovault/internal/vault/model"
	"portfoliovault/internal/vault/state"
)

var (
	ErrNotFound = errors.New("not found")
	ErrFileRead = errors.New("failed to read the file")
)

// ValidationError is a form error meant to be shown inline to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// Upload is a file picked in the document form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type VaultService struct {
	Vault *state.Manager
}

func NewVaultService(vault *state.Manager) *VaultService {
	return &VaultService{Vault: vault}
}

// ListDocuments returns document metadata without the embedded payloads.
func (s *VaultService) ListDocuments() []model.DocumentMetadata {
	docs := s.Vault.Documents()
	out := make([]model.DocumentMetadata, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.DocumentMetadata{
			ID:       d.ID,
			Name:     d.Name,
			MimeType: MediaType(d.DataURL),
			Size:     DecodedSize(d.DataURL),
		})
	}
	return out
}

// CreateDocument validates the form, converts the upload and only then adds
// the document. An empty name defaults to the file name without extension.
func (s *VaultService) CreateDocument(ctx context.Context, name string, file *Upload) (model.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" && file != nil {
		name = baseName(file.Filename)
	}
	if name == "" {
		return model.Document{}, invalid("Document name is required.")
	}
	if file == nil {
		return model.Document{}, invalid("A file must be selected for new documents.")
	}

	dataURL, err := EncodeDataURL(file.Body, file.ContentType)
	if err != nil {
		return model.Document{}, errors.Join(ErrFileRead, err)
	}
	return s.Vault.AddDocument(ctx, model.DocumentInput{Name: name, DataURL: dataURL}), nil
}

// UpdateDocument renames a document and, when a file is given, replaces its
// content. Without a file the old content is kept.
func (s *VaultService) UpdateDocument(ctx context.Context, id, name string, file *Upload) (model.Document, error) {
	doc, ok := s.Vault.Document(id)
	if !ok {
		return model.Document{}, ErrNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Document{}, invalid("Document name is required.")
	}
	doc.Name = name

	if file != nil {
		dataURL, err := EncodeDataURL(file.Body, file.ContentType)
		if err != nil {
			return model.Document{}, errors.Join(ErrFileRead, err)
		}
		doc.DataURL = dataURL
	}
	if !s.Vault.UpdateDocument(ctx, doc) {
		return model.Document{}, ErrNotFound
	}
	return doc, nil
}

// DeleteDocument is idempotent; deleting an unknown id is not an error.
func (s *VaultService) DeleteDocument(ctx context.Context, id string) {
	s.Vault.DeleteDocument(ctx, id)
}

// Download returns the document name, media type and decoded content.
func (s *VaultService) Download(id string) (string, string, []byte, error) {
	doc, ok := s.Vault.Document(id)
	if !ok {
		return "", "", nil, ErrNotFound
	}
	mediaType, content, err := DecodeDataURL(doc.DataURL)
	if err != nil {
		return "", "", nil, err
	}
	return doc.Name, mediaType, content, nil
}

func (s *VaultService) ListWritings(admin bool) []model.Writing {
	return s.Vault.VisibleWritings(admin)
}

func (s *VaultService) GetWriting(id string, admin bool) (model.Writing, error) {
	w, ok := s.Vault.VisibleWriting(id, admin)
	if !ok {
		return model.Writing{}, ErrNotFound
	}
	return w, nil
}

// CreateWriting requires a title and content; visibility defaults to public.
func (s *VaultService) CreateWriting(ctx context.Context, req model.WritingRequest) (model.Writing, error) {
	in := model.WritingInput{IsPublic: true}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.IsPublic != nil {
		in.IsPublic = *req.IsPublic
	}
	if err := validateWriting(in.Title, in.Content); err != nil {
		return model.Writing{}, err
	}
	return s.Vault.AddWriting(ctx, in), nil
}

// UpdateWriting merges the submitted fields onto the stored writing.
func (s *VaultService) UpdateWriting(ctx context.Context, id string, req model.WritingRequest) (model.Writing, error) {
	w, ok := s.Vault.VisibleWriting(id, true)
	if !ok {
		return model.Writing{}, ErrNotFound
	}
	if req.Title != nil {
		w.Title = *req.Title
	}
	if req.Content != nil {
		w.Content = *req.Content
	}
	if req.IsPublic != nil {
		w.IsPublic = *req.IsPublic
	}
	if err := validateWriting(w.Title, w.Content); err != nil {
		return model.Writing{}, err
	}
	if !s.Vault.UpdateWriting(ctx, w) {
		return model.Writing{}, ErrNotFound
	}
	return w, nil
}

// ToggleVisibility flips a writing between public and private.
func (s *VaultService) ToggleVisibility(ctx context.Context, id string) (model.Writing, error) {
	w, ok := s.Vault.VisibleWriting(id, true)
	if !ok {
		return model.Writing{}, ErrNotFound
	}
	w.IsPublic = !w.IsPublic
	if !s.Vault.UpdateWriting(ctx, w) {
		return model.Writing{}, ErrNotFound
	}
	return w, nil
}

func (s *VaultService) DeleteWriting(ctx context.Context, id string) {
	s.Vault.DeleteWriting(ctx, id)
}

func validateWriting(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("Title is required.")
	}
	if strings.TrimSpace(content) == "" {
		return invalid("Content is required.")
	}
	return nil
}

func baseName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
