package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Sergey0107/verification-products/internal/analyses"
	"github.com/Sergey0107/verification-products/internal/callback"
	"github.com/Sergey0107/verification-products/internal/comparison"
	"github.com/Sergey0107/verification-products/internal/extraction"
	"github.com/Sergey0107/verification-products/internal/extractor"
	"github.com/Sergey0107/verification-products/internal/jobs"
	"github.com/Sergey0107/verification-products/internal/llm"
	openai "github.com/Sergey0107/verification-products/internal/llm/openai"
	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/queue"
	"github.com/Sergey0107/verification-products/internal/services/health"
	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/server"
	"github.com/Sergey0107/verification-products/internal/shared/storage/db"
	"github.com/Sergey0107/verification-products/internal/shared/storage/object"
	s3store "github.com/Sergey0107/verification-products/internal/shared/storage/object/s3"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
	"github.com/Sergey0107/verification-products/internal/workerproc"
)

// App holds shared dependencies of the API and the workers.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Queue      queue.Client
	Jobs       *jobs.Manager
	Analyses   analyses.Repo
	Results    extraction.ResultsRepo
	Prompts    prompts.Registry
	Files      object.URLResolver
	Extraction *extraction.Service
	Comparison *comparison.Service
	Dispatcher *workerproc.Dispatcher
	Health     *health.Service

	inline *inlineQueue
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB, Health: health.NewService(sqlDB)}

	var jobsRepo jobs.Repo
	if sqlDB != nil {
		jobsRepo = &jobs.PGRepo{DB: sqlDB}
		app.Analyses = &analyses.PGRepo{DB: sqlDB}
		app.Results = &extraction.PGResultsRepo{DB: sqlDB}
	} else {
		jobsRepo = jobs.NewMemoryRepo()
		app.Analyses = analyses.NewMemoryRepo()
		app.Results = extraction.NewMemoryResultsRepo()
	}
	app.Jobs = jobs.NewManager(jobsRepo, cfg.JobMaxRetries)
	app.Jobs.RunningLease = cfg.JobRunningLease

	if app.Prompts, err = buildPrompts(cfg); err != nil {
		return nil, err
	}
	if app.Files, err = buildFiles(ctx, cfg); err != nil {
		return nil, err
	}
	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	var notifier comparison.Notifier = callback.LocalNotifier{Analyses: app.Analyses}
	if strings.TrimSpace(cfg.CallbackURL) != "" {
		notifier = callback.NewSender(cfg.CallbackURL, cfg.CallbackAttempts, cfg.RequestTimeout)
	}

	app.Comparison = &comparison.Service{
		Jobs:    app.Jobs,
		Results: app.Results,
		Comparer: comparison.NewComparer(
			&comparison.Executor{Prompts: app.Prompts, LLM: llmClient},
			cfg.CompareChunkSize,
			cfg.CompareDelay,
		),
		Notifier: notifier,
	}
	app.Extraction = &extraction.Service{
		Jobs:      app.Jobs,
		Results:   app.Results,
		Prompts:   app.Prompts,
		Extractor: extractor.New(cfg.ExtractionServiceURL, cfg.ExtractionTimeout),
		Files:     app.Files,
		Queue:     app.Queue,
		Analyses:  app.Analyses,
	}
	app.Dispatcher = &workerproc.Dispatcher{Extraction: app.Extraction, Comparison: app.Comparison}
	if app.inline != nil {
		app.inline.setDispatcher(app.Dispatcher)
	}

	app.Router = server.NewRouter(
		app.Health,
		analyses.NewHandler(app.Analyses),
		extraction.NewHandler(app.Extraction),
		callback.NewHandler(app.Analyses),
	)

	return app, nil
}

// Wait blocks until in-process jobs finish or ctx is done.
func (a *App) Wait(ctx context.Context) error {
	if a == nil || a.inline == nil {
		return nil
	}
	return a.inline.Wait(ctx)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil || db.IsLambdaRuntime() {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if !cfg.IsProduction() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	profile := db.RuntimeProfile()
	opts, err := db.OptionsFromEnv(profile)
	if err != nil {
		return nil, err
	}
	if profile == db.ProfileLambda {
		return db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	}
	return db.Connect(ctx, cfg.DatabaseURL, opts)
}

func buildPrompts(cfg config.Config) (prompts.Registry, error) {
	if !cfg.IsProduction() && dirExists(cfg.PromptsDir) {
		store, err := prompts.LoadDir(cfg.PromptsDir)
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		telemetry.Info("bootstrap.prompts.local", map[string]any{"dir": cfg.PromptsDir, "types": store.Types()})
		return store, nil
	}
	return prompts.NewHTTPRegistry(cfg.PromptRegistryURL, cfg.RequestTimeout), nil
}

func buildFiles(ctx context.Context, cfg config.Config) (object.URLResolver, error) {
	if cfg.S3Bucket == "" && cfg.S3EndpointURL == "" {
		return s3store.NewPublic("", "", cfg.S3PresignTTL), nil
	}
	return s3store.New(ctx, s3store.Options{
		Region:     cfg.S3Region,
		Endpoint:   cfg.S3EndpointURL,
		Bucket:     cfg.S3Bucket,
		PresignTTL: cfg.S3PresignTTL,
	})
}

func buildQueue(ctx context.Context, app *App) error {
	cfg := app.Config
	if strings.TrimSpace(cfg.SQSQueueURL) != "" {
		client, err := queue.NewSQSClient(ctx, queue.SQSOptions{
			QueueURL: cfg.SQSQueueURL,
			Region:   cfg.SQSRegion,
			Endpoint: cfg.SQSEndpointURL,
		})
		if err != nil {
			return err
		}
		app.Queue = client
		return nil
	}
	if cfg.IsProduction() {
		return errors.New("SQS_QUEUE_URL is required")
	}
	telemetry.Warn("bootstrap.queue.inline", map[string]any{"reason": "SQS_QUEUE_URL empty"})
	app.inline = newInlineQueue()
	app.Queue = app.inline
	return nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.OpenRouterAPIKey) == "" {
		if cfg.IsProduction() {
			return nil, errors.New("OPENROUTER_API_KEY is required")
		}
		telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"reason": "OPENROUTER_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(openai.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.OpenRouterModel,
		BaseURL: cfg.OpenRouterBaseURL,
		Timeout: cfg.RequestTimeout,
	})
}

func dirExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
