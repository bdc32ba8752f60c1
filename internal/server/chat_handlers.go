package server

import (
	"net/http"
	"strconv"

	"github.com/C4rlos-asx/IA-con-recuerdos/internal/app"
	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

type chatRequest struct {
	Messages []domain.Message `json:"messages"`
	UserID   string           `json:"userId"`
	Model    domain.ModelSpec `json:"model"`
	ChatID   string           `json:"chatId"`
	File     *fileInput       `json:"file"`
}

// fileInput is the client's attachment shape: type is the MIME type, data the
// base64 payload.
type fileInput struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Name string `json:"name"`
}

type chatResponse struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
	ChatID  string      `json:"chatId,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	input := app.SendMessageInput{
		Messages: req.Messages,
		UserID:   req.UserID,
		Model:    req.Model,
		ChatID:   req.ChatID,
	}
	if req.File != nil {
		input.File = &domain.Attachment{
			Name:     req.File.Name,
			MimeType: req.File.Type,
			Data:     req.File.Data,
		}
	}

	res, err := s.app.SendMessage(r.Context(), input)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	writeJSON(w, http.StatusOK, chatResponse{Role: res.Role, Content: res.Content, ChatID: res.ChatID})
}

// handleGetChat serves both the single-chat transcript (userId + chatId) and
// the per-user sidebar listing (userId alone).
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	chatID := r.URL.Query().Get("chatId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "userId es obligatorio")
		return
	}

	if chatID != "" {
		chat, err := s.app.GetChat(userID, chatID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, chat)
		return
	}

	chats, err := s.app.ListChats(userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
		Title  string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.app.RenameChat(req.ChatID, req.Title); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat renombrado"})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")
	if err := s.app.DeleteChat(chatID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat eliminado"})
}
