package handlers

import (
	"net/http"

	"rbfvault/internal/services/vault"
)

// GET /v1/ciphers lists the ciphers available for sealing schedules and
// which one this server uses.
func ListCiphers(active string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := vault.Ciphers()
		respondJSON(w, map[string]any{"data": rows, "count": len(rows), "active": active})
	}
}
