package server

import "net/http"

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId"`
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	mem, err := s.app.CreateMemory(req.UserID, req.Content)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mem)
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		// Usage help instead of a hard failure, for people poking the API
		// from a browser.
		writeJSON(w, http.StatusOK, map[string]string{
			"message":     "Falta el parámetro userId",
			"description": "Este endpoint lista los recuerdos a largo plazo de un usuario, del más reciente al más antiguo.",
			"example":     "/memory?userId=<id>",
			"error":       "missing_user_id",
		})
		return
	}
	memories, err := s.app.ListMemories(userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}
