package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/models"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var u models.User
		if err := db.Preload("Roles").First(&u, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if !u.IsActive || auth.CheckPassword(u.PasswordHash, req.Password) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		var roleNames []string
		for _, r := range u.Roles {
			roleNames = append(roleNames, r.Name)
		}
		tok, err := auth.Sign(u.ID, roleNames)
		if err != nil {
			lg.Errorw("sign token", "error", err)
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}
		sess := models.Session{JTI: tok.JTI, UserID: u.ID, ExpiresAt: tok.ExpiresAt, CreatedAt: time.Now()}
		if err := db.Create(&sess).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		_ = db.Create(&models.AuditLog{UserID: &u.ID, Action: "LOGIN"}).Error
		respondJSON(w, map[string]any{"token": tok.Raw, "expires_at": tok.ExpiresAt})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.Subject(r.Context())
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", sub).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, map[string]any{
			"id": u.ID, "email": u.Email, "roles": u.Roles, "is_active": u.IsActive,
		})
	}
}

func Logout(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := auth.FromContext(r.Context())
		now := time.Now()
		if err := db.Model(&models.Session{}).Where("jti = ?", c.JWTID).Update("revoked_at", &now).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = db.Create(&models.AuditLog{UserID: &c.Subject, Action: "LOGOUT"}).Error
		respondJSON(w, map[string]any{"logged_out": true})
	}
}

func ChangePassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := auth.ValidatePassword(req.New); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		uid := auth.Subject(r.Context())
		var u models.User
		if err := db.First(&u, "id = ?", uid).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if auth.CheckPassword(u.PasswordHash, req.Current) != nil {
			http.Error(w, "current password is wrong", http.StatusForbidden)
			return
		}
		hash, err := auth.HashPassword(req.New)
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		if err := db.Model(&u).Updates(map[string]any{"password_hash": hash, "updated_at": time.Now()}).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		_ = db.Create(&models.AuditLog{UserID: &uid, Action: "PASSWORD_CHANGE"}).Error
		respondJSON(w, map[string]any{"updated": true})
	}
}
