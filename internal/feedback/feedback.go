package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type Response struct {
	Status string `json:"status"`
}

var ErrInvalid = errors.New("invalid feedback")

// Sender delivers a feedback message somewhere.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only records the submission. Real email delivery is not wired.
type LogSender struct {
	Log *zap.SugaredLogger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Infow("Feedback submitted", "name", msg.Name, "email", msg.Email, "length", len(msg.Message))
	return nil
}

type Service struct {
	Sender Sender
}

func (s *Service) Submit(ctx context.Context, msg Message) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	if msg.Name == "" || msg.Email == "" || strings.TrimSpace(msg.Message) == "" {
		return errors.Join(ErrInvalid, errors.New("name, email and message are required"))
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		return errors.Join(ErrInvalid, errors.New("email address is not valid"))
	}
	return s.Sender.Send(ctx, msg)
}

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.Submit(r.Context(), msg); err != nil {
		if errors.Is(err, ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Status: "sent"})
}
