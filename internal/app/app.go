package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/visual-commerce/internal/cfg"
	v1Grpc "github.com/DRSN-tech/visual-commerce/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/visual-commerce/internal/delivery/v1/http"
	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/internal/infrastructure/imaging"
	"github.com/DRSN-tech/visual-commerce/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/visual-commerce/internal/infrastructure/minio"
	"github.com/DRSN-tech/visual-commerce/internal/infrastructure/mlservice"
	stripeInfra "github.com/DRSN-tech/visual-commerce/internal/infrastructure/stripe"
	"github.com/DRSN-tech/visual-commerce/internal/metrics"
	s3Repo "github.com/DRSN-tech/visual-commerce/internal/repository/minio"
	"github.com/DRSN-tech/visual-commerce/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/visual-commerce/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/visual-commerce/internal/repository/qdrant"
	"github.com/DRSN-tech/visual-commerce/internal/repository/redis"
	redisConv "github.com/DRSN-tech/visual-commerce/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/clients"
	"github.com/DRSN-tech/visual-commerce/pkg/closer"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/DRSN-tech/visual-commerce/pkg/postgres"
	"github.com/DRSN-tech/visual-commerce/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App держит собранные зависимости и управляет жизненным циклом серверов.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
	worker  *kafka.OutboxWorker
}

// NewApp подключается к инфраструктуре и собирает usecase-слой.
// При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (app *App, err error) {
	cl := closer.NewCloser(0)
	defer func() {
		if err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if closeErr := cl.Close(ctx); closeErr != nil {
				log.Warnf("cleanup after failed start: %v", closeErr)
			}
		}
	}()

	// Postgres
	db, err := initPGDB(log, cfg)
	if err != nil {
		return nil, err
	}
	cl.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	txManager := tr.NewManager(db.Pool)
	productRepo := pgdb.NewProductRepo(db.Pool)
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConverter{})
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})

	// MinIO
	minioClient, err := clients.NewMinIOClient(cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	minioCtx, minioCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	uploader := minioInfra.NewBlobUploader(s3Repo.NewImageRepo(minioClient), cfg.Minio, log)

	// Qdrant
	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })
	qdrantCtx, qdrantCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer qdrantCancel()
	if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	embeddingRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant)

	// Redis
	redisClient := clients.NewRedisClient(cfg.Redis)
	cl.Add("redis", func(context.Context) error { return redisClient.Close() })
	redisCtx, redisCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductInfoConverter{}, cfg.Redis, log)
	webhookEvents := redis.NewWebhookEventRepo(redisClient, cfg.Redis)

	// Kafka
	producer, err := kafka.NewProducer(log, cfg.Kafka)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("kafka producer", func(context.Context) error { return producer.Close() })
	kafkaCtx, kafkaCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer kafkaCancel()
	if err := producer.EnsureTopic(kafkaCtx); err != nil {
		log.Warnf("kafka topic check failed, events stay in outbox until the broker is reachable: %v", err)
	}
	worker := kafka.NewOutboxWorker(outboxRepo, log, producer, cfg.Kafka.OutboxBatchSize, db.Dsn)

	// Usecases
	mtr := metrics.New()
	space := domain.EmbeddingSpace{Provider: cfg.Search.EmbeddingProvider, Model: cfg.Search.EmbeddingModel}

	similarityUC := usecase.NewSimilaritySearchUC(
		embeddingRepo,
		productRepo,
		cacheRepo,
		space,
		int(cfg.Qdrant.VectorSize),
		cfg.Search.MaxTopK,
		log,
	)

	mlHTTP := &http.Client{}
	var searcher usecase.SimilaritySearcher = similarityUC
	if cfg.Ml.SearchURL != "" {
		searcher = mlservice.NewSearcher(mlHTTP, cfg.Ml, space)
	}

	visualSearchUC := usecase.NewVisualSearchUC(
		imaging.NewJPEGCompressor(cfg.Imaging),
		uploader,
		mlservice.NewClassifier(mlHTTP, cfg.Ml),
		mlservice.NewEmbedder(mlHTTP, cfg.Ml),
		searcher,
		usecase.NewFallbackSearch(productRepo, cfg.Search.FallbackPageSize, log),
		mtr,
		log,
		cfg.Search.DefaultTopK,
		cfg.Search.MaxTopK,
	)

	var provider usecase.PaymentProvider
	if cfg.Stripe.SecretKey != "" {
		provider = stripeInfra.NewPaymentProvider(cfg.Stripe.SecretKey, nil)
	}

	paymentUC := usecase.NewPaymentUC(
		orderRepo,
		outboxRepo,
		webhookEvents,
		txManager,
		provider,
		usecase.PaymentConfig{
			WebhookSecret:    cfg.Stripe.WebhookSecret,
			WebhookTolerance: cfg.Stripe.WebhookTolerance,
			DefaultCurrency:  cfg.Stripe.DefaultCurrency,
		},
		mtr,
		log,
	)

	// Delivery
	r := chi.NewRouter()
	v1Http.NewRouter(r, cfg.Http, mtr, log).Init(v1Http.UseCases{
		VisualSearch: visualSearchUC,
		Similarity:   similarityUC,
		Payment:      paymentUC,
		MaxFileSize:  cfg.Imaging.MaxFileSize,
		DefaultTopK:  cfg.Search.DefaultTopK,
	})

	grpcSrv := v1Grpc.NewGRPCServer(cfg.Grpc, log)
	grpcSrv.SetServing("", true)
	grpcSrv.SetServing(v1Grpc.ServiceVisualSearch, true)
	grpcSrv.SetServing(v1Grpc.ServicePayments, provider != nil && cfg.Stripe.WebhookSecret != "")

	return &App{
		cfg:     cfg,
		logger:  log,
		closer:  cl,
		httpSrv: v1Http.NewServer(r, cfg.Http),
		grpcSrv: grpcSrv,
		worker:  worker,
	}, nil
}

// Run запускает серверы и outbox-воркер и блокируется до сигнала остановки или фатальной ошибки.
func (a *App) Run() error {
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	a.worker.Start(workerCtx)

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.grpcSrv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Errorf(err, "gRPC server shutdown error")
	}

	workerCancel()
	a.worker.Stop()
	a.logger.Infof("Outbox worker stopped")

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "resources closed with errors")
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
