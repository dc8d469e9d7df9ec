package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/eduquest/internal/api/http"
	"github.com/mind-engage/eduquest/internal/audit"
	"github.com/mind-engage/eduquest/internal/auth"
	"github.com/mind-engage/eduquest/internal/authoring"
	"github.com/mind-engage/eduquest/internal/config"
	"github.com/mind-engage/eduquest/internal/db"
	"github.com/mind-engage/eduquest/internal/jobs"
	"github.com/mind-engage/eduquest/internal/logging"
	"github.com/mind-engage/eduquest/internal/metrics"
	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/session"
	"github.com/mind-engage/eduquest/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Blobs ---
	bs, err := openBlobs(ctx, cfg.BlobDriver, cfg)
	if err != nil {
		logger.Fatal("blob store", zap.Error(err))
	}

	// --- Snapshot store ---
	var (
		snap   portal.SnapshotStore
		events api.EventLister
		rec    audit.Recorder = audit.LogRecorder{Log: logger}
		dbh    *sql.DB
	)
	switch cfg.StoreDriver {
	case "memory":
		snap = portal.NewInMemoryStore()
	case "sqlite", "postgres":
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		dbh, err = db.Open(openCtx, db.Driver(cfg.StoreDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			logger.Fatal("db open failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		}
		defer dbh.Close()
		snap = portal.NewSQLStore(dbh, cfg.StoreDriver)
		er := audit.NewEventRepo(dbh)
		events, rec = er, er
	case "fs", "minio":
		sbs := bs
		if cfg.StoreDriver != cfg.BlobDriver {
			if sbs, err = openBlobs(ctx, cfg.StoreDriver, cfg); err != nil {
				logger.Fatal("snapshot blob store", zap.Error(err))
			}
		}
		snap = portal.NewBlobStore(sbs)
	default:
		logger.Fatal("unsupported STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}
	repo := portal.NewRepository(snap)

	// --- Exam sessions ---
	var m *metrics.Metrics
	sessions := session.NewManager(ctx, repo, session.Options{
		TickEvery: cfg.ExamTick,
		Log:       logger.Named("session"),
		OnSubmit: func(a portal.ExamAttempt, t session.Trigger) {
			m.ExamsSubmitted.WithLabelValues(string(t)).Inc()
			payload := map[string]any{"trigger": t, "score": a.Score, "totalMarks": a.TotalMarks, "status": a.Status}
			if err := rec.Record(context.Background(), audit.AttemptSubmitted, a.Key().String(), payload); err != nil {
				logger.Warn("audit record failed", zap.String("type", audit.AttemptSubmitted), zap.Error(err))
			}
		},
	})
	defer sessions.Close()
	m = metrics.New(sessions.Len)

	// --- Backups ---
	backups, err := jobs.Schedule(ctx, cfg.BackupSchedule, &jobs.Backup{Data: repo, Blobs: bs, Log: logger.Named("jobs")})
	if err != nil {
		logger.Fatal("backup schedule", zap.Error(err))
	}

	// --- Router ---
	h := api.NewRouter(api.Deps{
		Repo: repo,
		Auth: auth.NewAuthService(cfg.AuthSecret, cfg.SessionTTL),
		Authn: &auth.Authenticator{
			AdminUser:     cfg.AdminUser,
			AdminPassword: cfg.AdminPassword,
			AdminPassHash: cfg.AdminPassHash,
			Students:      repo,
		},
		Drafts:      authoring.NewDrafts(repo),
		Sessions:    sessions,
		Blobs:       bs,
		Audit:       rec,
		Events:      events,
		Metrics:     m,
		Log:         logger,
		CORSOrigins: cfg.CORSOrigins(),
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("store", cfg.StoreDriver),
			zap.String("blobs", cfg.BlobDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if backups != nil {
		<-backups.Stop().Done()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}

func openBlobs(ctx context.Context, driver string, cfg config.Config) (storage.BlobStore, error) {
	switch driver {
	case "fs":
		return storage.NewFSStore(cfg.BlobBasePath)
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver: %s", driver)
	}
}
