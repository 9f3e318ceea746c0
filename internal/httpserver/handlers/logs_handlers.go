package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/models"
)

// MyLogs returns recent audit logs. Regular users see their own logs.
// Administrators can pass ?all=1 to see recent logs for everyone.
func MyLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := r.URL.Query().Get("all") == "1"
		var logs []models.AuditLog
		q := db.Order("created_at desc").Limit(200)
		if !(all && auth.IsAdmin(r.Context())) {
			q = q.Where("user_id = ?", auth.Subject(r.Context()))
		}
		if sid := r.URL.Query().Get("schedule_id"); sid != "" {
			q = q.Where("schedule_id = ?", sid)
		}
		if err := q.Find(&logs).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, logs)
	}
}
