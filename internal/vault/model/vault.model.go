package model

// Document is an uploaded file embedded inline as a data URL.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

// DocumentInput is a Document before an id is assigned.
type DocumentInput struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

// Writing is a short text post. Private writings are only listed in admin
// mode.
type Writing struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

type WritingInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// DocumentMetadata is what list endpoints return; the payload is fetched
// through the download endpoint.
type DocumentMetadata struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

type CreateResponse struct {
	ID string `json:"id"`
}

// WritingRequest is the JSON body for create and update. Nil fields are left
// unchanged on update; a nil IsPublic on create means public.
type WritingRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsPublic *bool   `json:"isPublic"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	IsAdmin bool   `json:"isAdmin"`
}

type AuthStatus struct {
	IsAdmin bool `json:"isAdmin"`
}
