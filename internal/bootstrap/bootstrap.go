package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/footwear-qc/internal/config"
	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/ports"
	"github.com/kirillkom/footwear-qc/internal/core/usecase"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/queue/nats"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/report/pdf"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/resilience"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/storage/localfs"
)

// Options carries process-specific hooks. The API leaves them zero.
type Options struct {
	AnalysisObserver usecase.AnalysisObserver
	OnDelivery       func(lag time.Duration)
}

type App struct {
	Config config.Config

	Queue ports.MessageQueue

	InspectionUC ports.InspectionService
	ProcessUC    ports.InspectionProcessor
	ReviewUC     ports.ReviewService
	ReportUC     ports.ReportService
	QCUC         ports.QCService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	qc, err := NewQC(cfg)
	if err != nil {
		return nil, err
	}
	plan := qc.Plan()
	reconciler := newReconciler(cfg)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewInspectionRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultPolicy()),
		HandlerTimeout:     time.Duration(cfg.WorkerAnalyzeTimeoutSeconds) * time.Second,
		OnDelivery:         opts.OnDelivery,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, cfg.OllamaTextModel, resilience.NewExecutor(llmPolicy(cfg)))
	inspector := ollama.NewVisionInspector(ollamaClient)
	translator := ollama.NewTranslator(ollamaClient)

	renderer := pdf.New(pdf.Options{FontPath: cfg.ReportFontPath})
	exporter := xlsx.New()

	return &App{
		Config: cfg,
		Queue:  queue,

		InspectionUC: usecase.NewInspectionUseCase(repo, storage, queue, cfg.MaxImagesPerInspection),
		ProcessUC:    usecase.NewAnalysisUseCase(repo, storage, inspector, reconciler, opts.AnalysisObserver),
		ReviewUC:     usecase.NewReviewUseCase(repo, plan),
		ReportUC: usecase.NewReportUseCase(
			repo, storage, translator, renderer, exporter, plan,
			cfg.ReportCompanyName, cfg.ReportDefaultLanguages,
		),
		QCUC: qc,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// NewQC builds the stateless engine alone; the MCP server needs nothing else.
func NewQC(cfg config.Config) (*usecase.QCUseCase, error) {
	plan, err := aql.LoadPlanFile(cfg.AQLPlanPath)
	if err != nil {
		return nil, fmt.Errorf("load aql plan: %w", err)
	}
	return usecase.NewQCUseCase(plan, newReconciler(cfg)), nil
}

func newReconciler(cfg config.Config) *defects.Reconciler {
	opts := defects.DefaultOptions()
	opts.MinSharedTokens = cfg.DefectMinSharedTokens
	return defects.NewReconciler(opts)
}

func llmPolicy(cfg config.Config) resilience.Policy {
	policy := resilience.DefaultPolicy()
	if cfg.LLMRetryMaxAttempts > 0 {
		policy.Retry.MaxAttempts = cfg.LLMRetryMaxAttempts
	}
	if cfg.LLMRetryInitialBackoffMS > 0 {
		policy.Retry.InitialBackoff = time.Duration(cfg.LLMRetryInitialBackoffMS) * time.Millisecond
	}
	if cfg.LLMRetryMaxBackoffMS > 0 {
		policy.Retry.MaxBackoff = time.Duration(cfg.LLMRetryMaxBackoffMS) * time.Millisecond
	}
	policy.Breaker.Enabled = cfg.LLMBreakerEnabled
	return policy
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
