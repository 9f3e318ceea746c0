package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/models"
)

// GET /v1/schedules
func ListSchedules(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []models.KeySchedule
		q := db.Order("created_at desc").Limit(200)
		if !(r.URL.Query().Get("all") == "1" && auth.IsAdmin(r.Context())) {
			q = q.Where("user_id = ?", auth.Subject(r.Context()))
		}
		if err := q.Find(&rows).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"data": rows, "count": len(rows)})
	}
}

// GET /v1/schedules/{id} returns the opened schedule record, the same
// JSON the command line tool reads and writes.
func GetSchedule(db *gorm.DB, lg *zap.SugaredLogger, deps ImageDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var row models.KeySchedule
		if err := db.First(&row, "id = ?", id).Error; err != nil || !canRead(r, row.UserID) {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		sched, err := openStored(deps, row)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		uid := auth.Subject(r.Context())
		_ = db.Create(&models.AuditLog{UserID: &uid, ScheduleID: &row.ID, Action: "SCHEDULE_EXPORT"}).Error
		respondJSON(w, map[string]any{"id": row.ID, "schedule": sched})
	}
}

// DELETE /v1/schedules/{id}. Images encoded with it become unrecoverable.
func DeleteSchedule(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var row models.KeySchedule
		if err := db.First(&row, "id = ?", id).Error; err != nil || !canRead(r, row.UserID) {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		if err := db.Delete(&models.KeySchedule{}, "id = ?", row.ID).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		uid := auth.Subject(r.Context())
		_ = db.Create(&models.AuditLog{UserID: &uid, ScheduleID: &row.ID, Action: "SCHEDULE_DELETE"}).Error
		lg.Infow("schedule deleted", "schedule_id", row.ID, "by", uid)
		respondJSON(w, map[string]any{"deleted": true})
	}
}
