// ABOUTME: JSON handlers for the admin surface: config read, shared-secret login, and save-data persistence.
// ABOUTME: Every failure is turned into a JSON response here; nothing propagates past the request.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
)

type configResponse struct {
	SessionTimeout int `json:"sessionTimeout"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Timeout int    `json:"timeout,omitempty"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	allowAnyOrigin(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web response encode error: %v", err)
	}
}

// readBody reads the whole request body, capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// handleConfig returns the session timeout. It never touches the filesystem.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{SessionTimeout: s.cfg.SessionTimeout})
}

// handleLogin compares the submitted password to the admin secret. Match and
// mismatch are both 200; only a malformed body is an error. An unset secret
// never matches.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("invalid login payload: %v", err)})
		return
	}

	if s.cfg.LoginEnabled() &&
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.AdminPassword)) == 1 {
		writeJSON(w, http.StatusOK, loginResponse{
			Success: true,
			Message: "Authenticated",
			Timeout: s.cfg.SessionTimeout,
		})
		return
	}

	log.Printf("login rejected remote=%s", r.RemoteAddr)
	writeJSON(w, http.StatusOK, loginResponse{Success: false, Message: "Invalid password"})
}

// handleSaveData validates the submitted document and overwrites the data
// file. A rejected request never touches the file.
func (s *Server) handleSaveData(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.saveFailed(w, err)
		return
	}

	doc, err := s.format.Extract(body)
	if err != nil {
		s.saveFailed(w, err)
		return
	}

	content, err := s.format.Encode(doc)
	if err != nil {
		s.saveFailed(w, err)
		return
	}

	target := filepath.Join(s.root, s.dataFile)
	if err := writeFileAtomic(target, content); err != nil {
		s.saveFailed(w, err)
		return
	}

	log.Printf("save-data path=%s bytes=%d format=%s", target, len(content), s.format)
	writeJSON(w, http.StatusOK, saveResponse{Success: true, Message: "File saved successfully!"})
}

func (s *Server) saveFailed(w http.ResponseWriter, err error) {
	log.Printf("save-data error: %v", err)
	writeJSON(w, http.StatusInternalServerError, saveResponse{Success: false, Error: err.Error()})
}
