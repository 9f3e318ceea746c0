package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/models"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		if err := db.Preload("Roles").Order("created_at desc").Find(&users).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, users)
	}
}

func CreateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string   `json:"email"`
			Password string   `json:"password"`
			Roles    []string `json:"roles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" {
			http.Error(w, "email required", http.StatusBadRequest)
			return
		}
		if err := auth.ValidatePassword(req.Password); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Roles) == 0 {
			req.Roles = []string{"User"}
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		u := models.User{Email: req.Email, PasswordHash: hash, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		var roles []models.Role
		_ = db.Where("name IN ?", req.Roles).Find(&roles).Error
		u.Roles = roles
		if err := db.Create(&u).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		admin := auth.Subject(r.Context())
		_ = db.Create(&models.AuditLog{UserID: &admin, Action: "USER_CREATE", Metadata: models.MustJSONB(map[string]any{"user_id": u.ID})}).Error
		respondJSON(w, map[string]any{"id": u.ID})
	}
}

func UpdateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := uuid.Validate(id); err != nil {
			http.Error(w, "id must be a valid UUID", http.StatusBadRequest)
			return
		}
		var req struct {
			Email    *string  `json:"email"`
			IsActive *bool    `json:"is_active"`
			Password *string  `json:"password"`
			Roles    []string `json:"roles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", id).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if req.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if req.Password != nil && *req.Password != "" {
			if err := auth.ValidatePassword(*req.Password); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			hash, _ := auth.HashPassword(*req.Password)
			u.PasswordHash = hash
		}
		if req.Roles != nil {
			var roles []models.Role
			_ = db.Where("name IN ?", req.Roles).Find(&roles).Error
			_ = db.Model(&u).Association("Roles").Replace(roles)
		}
		u.UpdatedAt = time.Now()
		if err := db.Omit("Roles").Save(&u).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		admin := auth.Subject(r.Context())
		_ = db.Create(&models.AuditLog{UserID: &admin, Action: "USER_UPDATE", Metadata: models.MustJSONB(map[string]any{"user_id": u.ID})}).Error
		respondJSON(w, map[string]any{"updated": true})
	}
}

func DeleteUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == auth.Subject(r.Context()) {
			http.Error(w, "cannot delete yourself", http.StatusBadRequest)
			return
		}
		if err := db.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		admin := auth.Subject(r.Context())
		_ = db.Create(&models.AuditLog{UserID: &admin, Action: "USER_DELETE", Metadata: models.MustJSONB(map[string]any{"user_id": id})}).Error
		respondJSON(w, map[string]any{"deleted": true})
	}
}
