package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/models"
)

// GET /v1/jobs?schedule_id=...
func ListJobs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var jobs []models.Job
		q := db.Order("created_at desc").Limit(200)
		if !auth.IsAdmin(r.Context()) {
			q = q.Where("user_id = ?", auth.Subject(r.Context()))
		}
		if sid := r.URL.Query().Get("schedule_id"); sid != "" {
			q = q.Where("schedule_id = ?", sid)
		}
		if err := q.Find(&jobs).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, jobs)
	}
}
