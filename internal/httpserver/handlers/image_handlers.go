package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbfvault/internal/auth"
	"rbfvault/internal/models"
	"rbfvault/internal/services/analysis"
	"rbfvault/internal/services/scramble"
	"rbfvault/internal/services/vault"
	"rbfvault/internal/util"
)

// ImageDeps carries what the image endpoints need besides the database.
type ImageDeps struct {
	EngineOptions  []scramble.Option
	DefaultRounds  int
	Sealer         *vault.Sealer
	MaxUploadBytes int64
	MaxImagePixels int64
}

func (d ImageDeps) engine(lg *zap.SugaredLogger, extra ...scramble.Option) *scramble.Engine {
	opts := append(append([]scramble.Option{}, d.EngineOptions...), scramble.WithLogger(lg))
	return scramble.New(append(opts, extra...)...)
}

// POST /v1/images/encode
func EncodeImage(db *gorm.DB, lg *zap.SugaredLogger, deps ImageDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		if err := parseUpload(w, r, deps.MaxUploadBytes); err != nil {
			respondUploadError(w, lg, err)
			return
		}
		rounds, err := roundsParam(r, deps.DefaultRounds)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		img, err := formImage(r, "file", deps.MaxImagePixels)
		if err != nil {
			respondUploadError(w, lg, err)
			return
		}

		start := time.Now()
		enc, sched, err := deps.engine(lg, scramble.WithRounds(rounds)).Encode(img)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		sealed, err := deps.Sealer.SealSchedule(sched)
		if err != nil {
			respondError(w, lg, err)
			return
		}

		row := models.KeySchedule{
			UserID:     uid,
			RoundCount: sched.RoundCount(),
			KeyBits:    len(sched.Final.K1),
			Width:      img.W,
			Height:     img.H,
			SealCipher: deps.Sealer.Cipher(),
			Sealed:     sealed,
			CreatedAt:  time.Now(),
		}
		job := models.Job{
			UserID:       uid,
			Direction:    models.DirectionEncode,
			Width:        img.W,
			Height:       img.H,
			Params:       models.MustJSONB(map[string]any{"rounds": rounds}),
			InputSHA256:  util.StrPtr(util.SHA256Hex(img.Pix)),
			OutputSHA256: util.StrPtr(util.SHA256Hex(enc.Pix)),
			Status:       "done",
			DurationMS:   time.Since(start).Milliseconds(),
			CreatedAt:    time.Now(),
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			job.ScheduleID = row.ID
			if err := tx.Create(&job).Error; err != nil {
				return err
			}
			return tx.Create(&models.AuditLog{
				UserID:     &uid,
				ScheduleID: &row.ID,
				Action:     "IMAGE_ENCODE",
				Metadata:   models.MustJSONB(map[string]any{"job_id": job.ID, "rounds": rounds, "width": img.W, "height": img.H}),
			}).Error
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		lg.Infow("image encoded", "schedule_id", row.ID, "job_id", job.ID, "rounds", rounds, "duration_ms", job.DurationMS)

		w.Header().Set("X-Schedule-ID", row.ID)
		w.Header().Set("X-Job-ID", job.ID)
		if err := writePNG(w, enc); err != nil {
			lg.Errorw("write png", "error", err)
		}
	}
}

// POST /v1/images/decode
//
// The schedule comes either from schedule_id (a stored, sealed schedule)
// or from an uploaded plaintext "schedule" JSON file.
func DecodeImage(db *gorm.DB, lg *zap.SugaredLogger, deps ImageDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		if err := parseUpload(w, r, deps.MaxUploadBytes); err != nil {
			respondUploadError(w, lg, err)
			return
		}
		img, err := formImage(r, "file", deps.MaxImagePixels)
		if err != nil {
			respondUploadError(w, lg, err)
			return
		}

		var sched *scramble.KeySchedule
		var row models.KeySchedule
		raw, uploaded, err := formBytes(r, "schedule")
		if err != nil {
			respondUploadError(w, lg, err)
			return
		}
		if uploaded {
			if sched, err = scramble.ParseSchedule(raw); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			id := r.FormValue("schedule_id")
			if err := uuid.Validate(id); err != nil {
				http.Error(w, "schedule_id must be a valid UUID", http.StatusBadRequest)
				return
			}
			if err := db.First(&row, "id = ?", id).Error; err != nil || !canRead(r, row.UserID) {
				http.Error(w, "schedule not found", http.StatusNotFound)
				return
			}
			if sched, err = openStored(deps, row); err != nil {
				respondError(w, lg, err)
				return
			}
			if row.Width != img.W || row.Height != img.H {
				lg.Warnw("decode size differs from encode size", "schedule_id", row.ID,
					"encoded", []int{row.Width, row.Height}, "decoding", []int{img.W, img.H})
			}
		}

		start := time.Now()
		dec, err := deps.engine(lg).Decode(img, sched)
		if err != nil {
			respondError(w, lg, err)
			return
		}

		if row.ID != "" {
			job := models.Job{
				UserID:       uid,
				ScheduleID:   row.ID,
				Direction:    models.DirectionDecode,
				Width:        img.W,
				Height:       img.H,
				Params:       models.MustJSONB(map[string]any{"rounds": sched.RoundCount()}),
				InputSHA256:  util.StrPtr(util.SHA256Hex(img.Pix)),
				OutputSHA256: util.StrPtr(util.SHA256Hex(dec.Pix)),
				Status:       "done",
				DurationMS:   time.Since(start).Milliseconds(),
				CreatedAt:    time.Now(),
			}
			if err := db.Create(&job).Error; err != nil {
				respondError(w, lg, err)
				return
			}
			w.Header().Set("X-Job-ID", job.ID)
			_ = db.Create(&models.AuditLog{UserID: &uid, ScheduleID: &row.ID, Action: "IMAGE_DECODE",
				Metadata: models.MustJSONB(map[string]any{"job_id": job.ID})}).Error
		} else {
			_ = db.Create(&models.AuditLog{UserID: &uid, Action: "IMAGE_DECODE",
				Metadata: models.MustJSONB(map[string]any{"schedule": "uploaded", "rounds": sched.RoundCount()})}).Error
		}
		if err := writePNG(w, dec); err != nil {
			lg.Errorw("write png", "error", err)
		}
	}
}

// POST /v1/images/analyze
func AnalyzeImages(lg *zap.SugaredLogger, maxUploadBytes, maxImagePixels int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseUpload(w, r, maxUploadBytes); err != nil {
			respondUploadError(w, lg, err)
			return
		}
		orig, err := formImage(r, "original", maxImagePixels)
		if err != nil {
			respondUploadError(w, lg, err)
			return
		}
		enc, err := formImage(r, "encrypted", maxImagePixels)
		if err != nil {
			respondUploadError(w, lg, err)
			return
		}
		var dec *scramble.Image
		if len(r.MultipartForm.File["decrypted"]) > 0 {
			if dec, err = formImage(r, "decrypted", maxImagePixels); err != nil {
				respondUploadError(w, lg, err)
				return
			}
		}
		rep, err := analysis.Analyze(orig, enc, dec)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, rep)
	}
}

func openStored(deps ImageDeps, row models.KeySchedule) (*scramble.KeySchedule, error) {
	sealer := deps.Sealer
	if row.SealCipher != sealer.Cipher() {
		return nil, errors.New("schedule sealed with " + row.SealCipher + ", server is configured for " + sealer.Cipher())
	}
	return sealer.OpenSchedule(row.Sealed)
}

func canRead(r *http.Request, owner string) bool {
	return owner == auth.Subject(r.Context()) || auth.IsAdmin(r.Context())
}

func respondUploadError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	if errors.Is(err, errMissingField) || errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondError(w, lg, err)
}
