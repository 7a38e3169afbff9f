package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleming-ai/platform/pkg/common/config"
	"github.com/fleming-ai/platform/pkg/common/database"
	"github.com/fleming-ai/platform/pkg/common/kafka"
	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/dataset"
	"github.com/fleming-ai/platform/pkg/observability/metrics"
	"github.com/fleming-ai/platform/pkg/severity"
	"github.com/fleming-ai/platform/pkg/storage"
	"github.com/fleming-ai/platform/pkg/terminology"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	redisClient := database.GetRedis()
	defer database.CloseRedis()

	catalog, err := terminology.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load concept catalog")
	}

	runRepo := storage.NewRunRepository(db)
	if err := runRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate run tables")
	}

	featureStore := storage.NewFeatureStore(redisClient, cfg.FeatureCacheTTL)

	producer := kafka.NewProducer(cfg.RunEventsTopic)
	defer producer.Close()

	runner := dataset.NewRunner(
		dataset.NewOMOPRepository(db),
		catalog,
		dataset.Options{
			BatchSize:          cfg.BatchSize,
			RollingAvgVariable: cfg.RollingAvgVariable,
			RollingWindowHours: cfg.RollingWindowHours,
			AgeRoundDecimals:   cfg.AgeRoundDecimals,
			FillHorizon:        cfg.FillHorizon,
		},
		runRepo,
		featureStore,
		producer,
		cfg.MaxBuildWorkers,
	)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumer := kafka.NewConsumer(cfg.BuildRequestsTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		err := consumer.Consume(consumerCtx, func(ctx context.Context, event models.Event) error {
			req, err := buildRequestFromEvent(event)
			if err != nil {
				logger.Log.WithError(err).WithField("event_id", event.ID).Error("Invalid build request event")
				return nil
			}
			_, err = runner.Enqueue(ctx, req)
			return err
		})
		if err != nil && err != context.Canceled {
			logger.Log.WithError(err).Error("Build request consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	dataset.NewHandler(runner).Register(api)
	severity.NewHandler(featureStore).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Dataset Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Dataset Service...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Dataset Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func buildRequestFromEvent(event models.Event) (models.BuildRequest, error) {
	var req models.BuildRequest
	ids, ok := event.Data["patient_ids"].([]interface{})
	if !ok || len(ids) == 0 {
		return req, fmt.Errorf("event %s has no patient_ids", event.ID)
	}
	for _, raw := range ids {
		switch v := raw.(type) {
		case float64:
			req.PatientIDs = append(req.PatientIDs, int64(v))
		case int64:
			req.PatientIDs = append(req.PatientIDs, v)
		default:
			return req, fmt.Errorf("event %s has non-numeric patient id", event.ID)
		}
	}
	if size, ok := event.Data["batch_size"].(float64); ok {
		req.BatchSize = int(size)
	}
	return req, nil
}
