// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"prospect-onboarding/internal/common/aws"
	"prospect-onboarding/internal/common/camunda"
	"prospect-onboarding/internal/common/config"
	"prospect-onboarding/internal/common/database"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/observability"
	"prospect-onboarding/internal/common/zoho"
	"prospect-onboarding/internal/experts"
	"prospect-onboarding/internal/notify"
	"prospect-onboarding/internal/onboarding/workflow"
	"prospect-onboarding/internal/repository"
	"prospect-onboarding/internal/simulation"
	"prospect-onboarding/pkg/registry"

	ea "prospect-onboarding/internal/workers/dossier/execute-action"
	sm "prospect-onboarding/internal/workers/meeting/schedule-meetings"
	fe "prospect-onboarding/internal/workers/prospect/find-experts"
	rs "prospect-onboarding/internal/workers/prospect/run-simulation"
	sp "prospect-onboarding/internal/workers/prospect/save-prospect"
	sc "prospect-onboarding/internal/workers/prospect/send-credentials"
)

// Keys of the workers section in configs/config.yaml. Task types contain
// dots, which viper treats as nesting.
const (
	keyExecuteAction   = "dossier-execute-action"
	keyScheduleMeeting = "meeting-schedule"
	keySaveProspect    = "prospect-save"
	keySendCredentials = "prospect-send-credentials"
	keyFindExperts     = "prospect-find-experts"
	keyRunSimulation   = "prospect-run-simulation"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Elasticsearch + Redis back the expert directory ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	redis := database.NewRedis(cfg.Database.Redis)
	if err := retryWithBackoff(func() error { return redis.Ping(ctx) }, 10, 2*time.Second, log, "Redis connection"); err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()

	// --- Collaborators ---
	prospectStore := repository.NewProspectStore(pg.DB, log)
	var prospects sp.ProspectWriter = prospectStore
	if cfg.Integrations.Zoho.Enabled {
		crm := zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken,
			config.GetDuration(cfg.Integrations.Zoho.Timeout))
		prospects = repository.NewCRMSyncStore(prospectStore, crm, log)
	}
	dossiers := repository.NewDossierStore(pg.DB, log)

	directory := experts.NewDirectory(esClient.Client, cfg.Onboarding.ExpertIndex,
		experts.NewCache(redis.Client, time.Duration(cfg.Onboarding.ExpertCacheTTL)*time.Second), log)
	simulator := simulation.NewClient(cfg.APIs.Simulation.BaseURL, cfg.APIs.Simulation.APIKey,
		config.GetDuration(cfg.APIs.Simulation.Timeout), log)

	awsCfg, err := aws.LoadConfig(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config failed", zap.Error(err))
	}
	mailer := notify.NewCredentialMailer(aws.NewSESClient(awsCfg), prospectStore,
		cfg.Onboarding.CredentialEmail.FromEmail, cfg.Onboarding.CredentialEmail.PortalURL, log)
	var sms sm.Notifier
	if cfg.Integrations.AWS.SNS.Enabled {
		sms = notify.NewMeetingNotifier(aws.NewSNSClient(awsCfg), cfg.Integrations.AWS.SNS.DefaultSMSSenderID, log)
	}

	executor := workflow.NewExecutor(dossiers, log,
		workflow.WithListener(workflow.NewStepPublisher(zeebe)),
		workflow.WithRecorder(obs),
	)

	// --- Workers ---
	zc := zeebe.GetClient()
	workerCfg := func(key string) config.WorkerConfig { return config.GetWorkerConfig(cfg, key) }

	start := func(taskType, key string, h camunda.JobHandler) worker.JobWorker {
		return camunda.StartWorker(zc, taskType, workerCfg(key), camunda.Instrument(taskType, h, obs), log)
	}

	if reg, err := registry.LoadRegistry(cfg.App.RegistryPath); err != nil {
		log.Warn("worker registry unavailable", map[string]interface{}{"path": cfg.App.RegistryPath, "error": err.Error()})
	} else if missing := reg.Missing(ea.TaskType, sm.TaskType, sp.TaskType, sc.TaskType, fe.TaskType, rs.TaskType); len(missing) > 0 {
		log.Warn("workers missing from registry", map[string]interface{}{"taskTypes": missing})
	}

	jobWorkers := []worker.JobWorker{
		start(ea.TaskType, keyExecuteAction,
			ea.NewHandler(ea.ConfigFrom(workerCfg(keyExecuteAction)), executor, dossiers, log)),
		start(sm.TaskType, keyScheduleMeeting,
			sm.NewHandler(sm.ConfigFrom(workerCfg(keyScheduleMeeting), cfg.Onboarding), prospectStore, sms, log)),
		start(sp.TaskType, keySaveProspect, sp.NewHandler(workerCfg(keySaveProspect), prospects, log)),
		start(sc.TaskType, keySendCredentials,
			sc.NewHandler(sc.ConfigFrom(workerCfg(keySendCredentials)), mailer, log)),
		start(fe.TaskType, keyFindExperts, fe.NewHandler(workerCfg(keyFindExperts), directory, log)),
		start(rs.TaskType, keyRunSimulation, rs.NewHandler(workerCfg(keyRunSimulation), simulator, log)),
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":         zeebe.HealthCheck,
			"postgres":      pg.Ping,
			"redis":         redis.Ping,
			"elasticsearch": esClient.Ping,
		} {
			if err := check(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("health/metrics server failed", nil)
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	for _, jw := range jobWorkers {
		if jw != nil {
			jw.Close()
			jw.AwaitClose()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("health/metrics server shutdown failed", nil)
	}

	log.Info("worker manager stopped", nil)
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
