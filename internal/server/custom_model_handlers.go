package server

import (
	"net/http"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

type customModelRequest struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Instructions  string          `json:"instructions"`
	BaseModelID   string          `json:"baseModelId"`
	BaseModelName string          `json:"baseModelName"`
	Provider      domain.Provider `json:"provider"`
}

func (req customModelRequest) toDomain() domain.CustomModel {
	return domain.CustomModel{
		UserID:        req.UserID,
		Name:          req.Name,
		Description:   req.Description,
		Instructions:  req.Instructions,
		BaseModelID:   req.BaseModelID,
		BaseModelName: req.BaseModelName,
		Provider:      req.Provider,
	}
}

func (s *Server) handleListCustomModels(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "userId es obligatorio")
		return
	}
	models, err := s.app.ListCustomModels(userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customModels": models})
}

func (s *Server) handleCreateCustomModel(w http.ResponseWriter, r *http.Request) {
	var req customModelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	created, err := s.app.CreateCustomModel(req.toDomain())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCustomModel(w http.ResponseWriter, r *http.Request) {
	var req customModelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	updated, err := s.app.UpdateCustomModel(req.UserID, req.ID, req.toDomain())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCustomModel(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	id := r.URL.Query().Get("id")
	if err := s.app.DeleteCustomModel(userID, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Modelo personalizado eliminado"})
}
