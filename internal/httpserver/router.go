package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/httpserver/handlers"
)

func NewRouter(db *gorm.DB, lg *zap.SugaredLogger, deps handlers.ImageDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(db, lg))
	r.Get("/v1/ciphers", handlers.ListCiphers(deps.Sealer.Cipher()))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(db))
		protected.Post("/v1/auth/password", handlers.ChangePassword(db, lg))
		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(auth.RoleAdministrator))
			admin.Get("/v1/admin/users", handlers.ListUsers(db, lg))
			admin.Post("/v1/admin/users", handlers.CreateUser(db, lg))
			admin.Patch("/v1/admin/users/{id}", handlers.UpdateUser(db, lg))
			admin.Delete("/v1/admin/users/{id}", handlers.DeleteUser(db, lg))
		})
		protected.Post("/v1/images/encode", handlers.EncodeImage(db, lg, deps))
		protected.Post("/v1/images/decode", handlers.DecodeImage(db, lg, deps))
		protected.Post("/v1/images/analyze", handlers.AnalyzeImages(lg, deps.MaxUploadBytes, deps.MaxImagePixels))
		protected.Get("/v1/schedules", handlers.ListSchedules(db, lg))
		protected.Get("/v1/schedules/{id}", handlers.GetSchedule(db, lg, deps))
		protected.Delete("/v1/schedules/{id}", handlers.DeleteSchedule(db, lg))
		protected.Get("/v1/jobs", handlers.ListJobs(db, lg))
		protected.Get("/v1/logs", handlers.MyLogs(db, lg))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
