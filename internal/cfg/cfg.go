package cfg

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Minio   *MinIOCfg
	Http    *HTTPConfig
	Grpc    *GRPCConfig
	Db      *PGDBCfg
	Qdrant  *QdrantCfg
	Redis   *RedisCfg
	Ml      *MLServiceCfg
	Kafka   *KafkaCfg
	Imaging *ImagingCfg
	Search  *SearchCfg
	Stripe  *StripeCfg
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	OutboxBatchSize   int
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Название конкретного бакета в Minio
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
	PublicBaseURL     string // Базовый URL, по которому объекты доступны извне (без имени бакета)
}

type HTTPConfig struct {
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	VisualSearchRPS   float64 // лимит запросов визуального поиска на клиента в секунду
	VisualSearchBurst int
	SwaggerURL        string
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Addr            string
	Password        string
	User            string
	DB              int
	MaxRetries      int
	DialTimeout     time.Duration
	Timeout         time.Duration
	ProductTTL      time.Duration
	WebhookEventTTL time.Duration
}

// MLServiceCfg описывает удалённые эндпоинты классификации, эмбеддингов и поиска.
type MLServiceCfg struct {
	ClassifyURL string
	EmbedURL    string
	SearchURL   string // если пусто, поиск выполняется внутри сервиса через Qdrant
	APIKey      string
	Timeout     time.Duration
	RateLimit   float64
}

type ImagingCfg struct {
	MaxEdge     int
	JPEGQuality int
	MaxFileSize int64
	MaxPixels   int
}

// SearchCfg описывает пространство эмбеддингов каталога и параметры выдачи.
type SearchCfg struct {
	EmbeddingProvider string
	EmbeddingModel    string
	DefaultTopK       int
	MaxTopK           int
	FallbackPageSize  int
}

type StripeCfg struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	DefaultCurrency  string
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	imaging, err := loadImagingCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	stripe, err := loadStripeCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:   minio,
		Http:    http,
		Grpc:    loadGRPCConfig(),
		Db:      db,
		Qdrant:  qdrant,
		Redis:   redis,
		Ml:      ml,
		Kafka:   kafka,
		Imaging: imaging,
		Search:  search,
		Stripe:  stripe,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultOutboxBatchSize   = 10
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := strings.Split(brokerStr, ",")

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultOutboxBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             topic,
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		OutboxBatchSize:   batchSize,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
		defaultBucket   = "visual-search"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	endpoint := getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint)

	publicBaseURL := getEnv("MINIO_PUBLIC_BASE_URL")
	if publicBaseURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicBaseURL = scheme + "://" + endpoint
	}
	if _, err := url.ParseRequestURI(publicBaseURL); err != nil {
		log.Errorf(err, "invalid MINIO_PUBLIC_BASE_URL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		PublicBaseURL:     strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort              = "8080"
		defaultReadTimeout       = 15 * time.Second
		defaultWriteTimeout      = 60 * time.Second
		defaultIdleTimeout       = 60 * time.Second
		defaultVisualSearchRPS   = 1.0
		defaultVisualSearchBurst = 3
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	rps, err := parseFloatEnv("VISUAL_SEARCH_RPS", defaultVisualSearchRPS)
	if err != nil {
		log.Errorf(err, "invalid VISUAL_SEARCH_RPS")
		return nil, err
	}

	burst, err := parseIntEnv("VISUAL_SEARCH_BURST", defaultVisualSearchBurst)
	if err != nil {
		log.Errorf(err, "invalid VISUAL_SEARCH_BURST")
		return nil, err
	}

	return &HTTPConfig{
		Port:              port,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		VisualSearchRPS:   rps,
		VisualSearchBurst: burst,
		SwaggerURL:        getEnvOrDefault("SWAGGER_URL", "http://localhost:"+port+"/swagger/doc.json"),
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost           = "localhost"
		defaultPort           = "5432"
		defaultSSLMode        = "disable"
		defaultMaxConns       = 10
		defaultMigrationsPath = "file://db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	return &PGDBCfg{
		Host:           getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:           getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:           user,
		Password:       password,
		DBName:         dbName,
		SSLMode:        getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:       int32(maxConns),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}, nil
}

func loadQdrantCfg(logger logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultVectorSize     = "768"
		defaultCollection     = "product_images"
	)

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	strVectorSize := getEnvOrDefault("VECTOR_SIZE", defaultVectorSize)
	vectorSize, err := strconv.ParseUint(strVectorSize, 10, 64)
	if err != nil {
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           vectorSize,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr            = "localhost:6379"
		defaultDB              = 0
		defaultMaxRetries      = 3
		defaultDialTimeout     = 5 * time.Second
		defaultReadTimeout     = 3 * time.Second
		defaultWriteTimeout    = 3 * time.Second
		defaultProductTTL      = 3 * time.Minute
		defaultWebhookEventTTL = 72 * time.Hour
	)

	addr := getEnvOrDefault("REDIS_ADDR", defaultAddr)
	password := getEnv("REDIS_PASSWORD")
	user := getEnv("REDIS_USER")

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	webhookEventTTL, err := parseDurationEnv("WEBHOOK_EVENT_TTL", defaultWebhookEventTTL)
	if err != nil {
		log.Errorf(err, "invalid WEBHOOK_EVENT_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:            addr,
		Password:        password,
		User:            user,
		DB:              db,
		MaxRetries:      maxRetries,
		DialTimeout:     dialTimeout,
		Timeout:         timeout,
		ProductTTL:      productTTL,
		WebhookEventTTL: webhookEventTTL,
	}, nil
}

func loadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	const (
		defaultBaseURL   = "http://ml-service:8000"
		defaultTimeout   = 8 * time.Second
		defaultRateLimit = 20.0
	)

	baseURL := strings.TrimRight(getEnvOrDefault("ML_BASE_URL", defaultBaseURL), "/")

	timeout, err := parseDurationEnv("ML_HTTP_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid ML_HTTP_TIMEOUT")
		return nil, err
	}

	rateLimit, err := parseFloatEnv("ML_RATE_LIMIT", defaultRateLimit)
	if err != nil {
		log.Errorf(err, "invalid ML_RATE_LIMIT")
		return nil, err
	}

	return &MLServiceCfg{
		ClassifyURL: getEnvOrDefault("ML_CLASSIFY_URL", baseURL+"/image_classify"),
		EmbedURL:    getEnvOrDefault("ML_EMBED_URL", baseURL+"/image_embed"),
		SearchURL:   getEnv("ML_SEARCH_URL"),
		APIKey:      getEnv("ML_API_KEY"),
		Timeout:     timeout,
		RateLimit:   rateLimit,
	}, nil
}

func loadImagingCfg() (*ImagingCfg, error) {
	const (
		defaultMaxEdge     = 1080
		defaultJPEGQuality = 70
		defaultMaxFileSize = 15 << 20
		defaultMaxPixels   = 40_000_000
	)

	maxEdge, err := parseIntEnv("IMAGE_MAX_EDGE", defaultMaxEdge)
	if err != nil {
		return nil, e.Wrap("IMAGE_MAX_EDGE", err)
	}

	quality, err := parseIntEnv("IMAGE_JPEG_QUALITY", defaultJPEGQuality)
	if err != nil {
		return nil, e.Wrap("IMAGE_JPEG_QUALITY", err)
	}
	if quality < 1 || quality > 100 {
		return nil, e.Wrap("IMAGE_JPEG_QUALITY", e.ErrIncorrectEnvVariable)
	}

	maxFileSize, err := parseIntEnv("IMAGE_MAX_FILE_SIZE", defaultMaxFileSize)
	if err != nil {
		return nil, e.Wrap("IMAGE_MAX_FILE_SIZE", err)
	}

	maxPixels, err := parseIntEnv("IMAGE_MAX_PIXELS", defaultMaxPixels)
	if err != nil {
		return nil, e.Wrap("IMAGE_MAX_PIXELS", err)
	}
	if maxPixels <= 0 {
		return nil, e.Wrap("IMAGE_MAX_PIXELS", e.ErrIncorrectEnvVariable)
	}

	return &ImagingCfg{
		MaxEdge:     maxEdge,
		JPEGQuality: quality,
		MaxFileSize: int64(maxFileSize),
		MaxPixels:   maxPixels,
	}, nil
}

func loadSearchCfg() (*SearchCfg, error) {
	const (
		defaultProvider         = "openai"
		defaultModel            = "clip-vit-l-14"
		defaultTopK             = 12
		defaultMaxTopK          = 50
		defaultFallbackPageSize = 12
	)

	topK, err := parseIntEnv("SEARCH_DEFAULT_TOP_K", defaultTopK)
	if err != nil {
		return nil, e.Wrap("SEARCH_DEFAULT_TOP_K", err)
	}

	maxTopK, err := parseIntEnv("SEARCH_MAX_TOP_K", defaultMaxTopK)
	if err != nil {
		return nil, e.Wrap("SEARCH_MAX_TOP_K", err)
	}
	if topK <= 0 || maxTopK < topK {
		return nil, e.Wrap("SEARCH_DEFAULT_TOP_K", e.ErrIncorrectEnvVariable)
	}

	return &SearchCfg{
		EmbeddingProvider: getEnvOrDefault("SEARCH_EMBEDDING_PROVIDER", defaultProvider),
		EmbeddingModel:    getEnvOrDefault("SEARCH_EMBEDDING_MODEL", defaultModel),
		DefaultTopK:       topK,
		MaxTopK:           maxTopK,
		FallbackPageSize:  defaultFallbackPageSize,
	}, nil
}

func loadStripeCfg(log logger.Logger) (*StripeCfg, error) {
	const (
		defaultTolerance = 5 * time.Minute
		defaultCurrency  = "usd"
	)

	tolerance, err := parseDurationEnv("STRIPE_WEBHOOK_TOLERANCE", defaultTolerance)
	if err != nil {
		log.Errorf(err, "invalid STRIPE_WEBHOOK_TOLERANCE")
		return nil, err
	}

	// Отсутствие секретов не мешает старту: соответствующие эндпоинты отвечают 500.
	secretKey := getEnv("STRIPE_SECRET_KEY")
	if secretKey == "" {
		log.Warnf("STRIPE_SECRET_KEY is not set, payment intent creation is disabled")
	}

	webhookSecret := getEnv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Warnf("STRIPE_WEBHOOK_SECRET is not set, webhook endpoint is disabled")
	}

	return &StripeCfg{
		SecretKey:        secretKey,
		WebhookSecret:    webhookSecret,
		WebhookTolerance: tolerance,
		DefaultCurrency:  strings.ToLower(getEnvOrDefault("STRIPE_DEFAULT_CURRENCY", defaultCurrency)),
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	floatValue, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return floatValue, nil
}
