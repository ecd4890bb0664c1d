package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Hour

// issueToken mints a short-lived session token for the named user.
func (s *Server) issueToken(name string) (string, error) {
	claims := jwt.MapClaims{
		"name": name,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// verifyToken checks the signature and expiry of a session token.
func (s *Server) verifyToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Invalid request body."})
		return
	}

	if !strings.EqualFold(strings.TrimSpace(req.Name), s.secretName) {
		respondJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Nama salah. Coba lagi ya."})
		return
	}

	token, err := s.issueToken(req.Name)
	if err != nil {
		fmt.Printf("[API] Error issuing token: %v\n", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "Internal Server Error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "token": token})
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondJSON(w, http.StatusBadRequest, map[string]bool{"valid": false})
		return
	}

	if err := s.verifyToken(req.Token); err != nil {
		respondJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// requireAuth guards the chat endpoints with a bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing authorization token"})
			return
		}

		if err := s.verifyToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
