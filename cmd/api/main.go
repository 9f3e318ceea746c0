package main

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/config"
	"rbfvault/internal/httpserver"
	"rbfvault/internal/httpserver/handlers"
	"rbfvault/internal/logger"
	"rbfvault/internal/models"
	"rbfvault/internal/services/vault"
)

const defaultAdminEmail = "admin@rbfvault.local"

func main() {
	cfg, err := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()
	if err != nil {
		lg.Fatalw("config", "error", err)
	}
	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		lg.Fatalw("JWT_SECRET is empty")
	}
	auth.Init(cfg.JWTSecret, cfg.JWTExpiresIn)

	sealer, err := vault.NewFromHex(cfg.SealCipher, cfg.SealKeyHex)
	if err != nil {
		lg.Fatalw("schedule sealer", "cipher", cfg.SealCipher, "error", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedDefaultAdmin(db, lg, cfg.AdminInitialPassword)

	router := httpserver.NewRouter(db, lg, handlers.ImageDeps{
		EngineOptions:  cfg.EngineOptions(),
		DefaultRounds:  cfg.Rounds,
		Sealer:         sealer,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxImagePixels: cfg.MaxImagePixels,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lg.Infow("listening", "port", cfg.HTTPPort, "rounds", cfg.Rounds, "key_bits", cfg.KeyBits,
		"workers", cfg.Workers, "seal_cipher", sealer.Cipher())
	if err := srv.ListenAndServe(); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

func seedDefaultAdmin(db *gorm.DB, lg *zap.SugaredLogger, password string) {
	db.Exec("INSERT INTO roles(name) VALUES ('Administrator') ON CONFLICT DO NOTHING")
	db.Exec("INSERT INTO roles(name) VALUES ('User') ON CONFLICT DO NOTHING")
	var count int64
	db.Model(&models.User{}).Where("LOWER(email)=?", defaultAdminEmail).Count(&count)
	if count > 0 {
		return
	}
	if password == "" {
		lg.Warnw("ADMIN_INITIAL_PASSWORD is empty, default admin not seeded", "email", defaultAdminEmail)
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		lg.Fatalw("hash admin password", "error", err)
	}
	u := models.User{Email: strings.ToLower(defaultAdminEmail), PasswordHash: hash, IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.Create(&u).Error; err == nil {
		var adminRole models.Role
		if err := db.First(&adminRole, "name = 'Administrator'").Error; err == nil {
			_ = db.Model(&u).Association("Roles").Append(&adminRole)
		}
	}
	lg.Infow("seeded default admin", "email", defaultAdminEmail)
}
