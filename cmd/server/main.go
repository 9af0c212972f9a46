// Command server starts the ReelCast API HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"reelcast/internal/api"
	"reelcast/internal/objectstore"
	"reelcast/internal/observability/logging"
	"reelcast/internal/observability/metrics"
	"reelcast/internal/reels"
	"reelcast/internal/server"
	"reelcast/internal/storage"
	"reelcast/internal/transcode"
)

func main() {
	// A .env file is optional; explicit environment always wins.
	_ = godotenv.Load()

	addr := flag.String("addr", "", "HTTP listen address")
	storeDriver := flag.String("store-driver", "", "record store driver (memory, dynamodb, or postgres)")
	dataPath := flag.String("data", "", "path to JSON datastore for the memory driver")
	dynamoTable := flag.String("dynamo-table", "", "DynamoDB table holding reel records")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	mediaBucket := flag.String("media-bucket", "", "S3 bucket for uploaded reel media")
	mediaBaseURL := flag.String("media-base-url", "", "public base URL serving reel media")
	transcodeRole := flag.String("transcode-role", "", "IAM role ARN assumed by MediaConvert; empty disables transcoding")
	transcodeOutputBucket := flag.String("transcode-output-bucket", "", "S3 bucket receiving HLS output")
	transcodeQueue := flag.String("transcode-queue", "", "MediaConvert queue ARN")
	allowedOrigins := flag.String("allowed-origins", "", "comma separated origins allowed by CORS")
	maxUploadBytes := flag.Int64("max-upload-bytes", 0, "cap on multipart publish bodies")
	callTimeout := flag.Duration("call-timeout", 0, "bound on each remote dependency call")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.Init(logging.Config{Level: resolveLogLevel(*logLevel)})
	recorder := metrics.Default()

	listenAddr := firstNonEmpty(*addr, os.Getenv("REELCAST_ADDR"), ":8080")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, storeCloser, err := openRecordStore(ctx, recordStoreSettings{
		Driver:                 firstNonEmpty(*storeDriver, os.Getenv("REELCAST_STORE_DRIVER"), "memory"),
		DataPath:               firstNonEmpty(*dataPath, os.Getenv("REELCAST_DATA"), "data/reels.json"),
		DynamoTable:            firstNonEmpty(*dynamoTable, os.Getenv("REELCAST_DYNAMO_TABLE")),
		PostgresDSN:            firstNonEmpty(*postgresDSN, os.Getenv("REELCAST_POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		PostgresMaxConns:       resolveInt(*postgresMaxConns, "REELCAST_POSTGRES_MAX_CONNS"),
		PostgresMinConns:       resolveInt(*postgresMinConns, "REELCAST_POSTGRES_MIN_CONNS"),
		PostgresAcquireTimeout: resolveDuration(*postgresAcquireTimeout, "REELCAST_POSTGRES_ACQUIRE_TIMEOUT", 0),
		PostgresAppName:        firstNonEmpty(*postgresAppName, os.Getenv("REELCAST_POSTGRES_APP_NAME")),
	}, logger)
	if err != nil {
		logger.Error("failed to open record store", "error", err)
		os.Exit(1)
	}

	baseURL := firstNonEmpty(*mediaBaseURL, os.Getenv("REELCAST_MEDIA_BASE_URL"))
	bucket := firstNonEmpty(*mediaBucket, os.Getenv("REELCAST_MEDIA_BUCKET"))

	serviceOptions := []reels.Option{
		reels.WithLogger(logging.WithComponent(logger, "reels")),
		reels.WithRecorder(recorder),
	}

	var media reels.MediaStore
	if bucket == "" {
		if baseURL == "" {
			baseURL = "http://localhost" + listenAddr
		}
		logger.Warn("no media bucket configured, storing uploads in memory")
		media = objectstore.NewMemoryStore(baseURL)
	} else {
		if baseURL == "" {
			logger.Error("media base URL is required when a media bucket is configured")
			os.Exit(1)
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("failed to load AWS configuration", "error", err)
			os.Exit(1)
		}
		s3Store, err := objectstore.New(s3.NewFromConfig(awsCfg), objectstore.Config{
			Bucket:        bucket,
			PublicBaseURL: baseURL,
		})
		if err != nil {
			logger.Error("failed to configure object store", "error", err)
			os.Exit(1)
		}
		media = s3Store

		if role := firstNonEmpty(*transcodeRole, os.Getenv("REELCAST_TRANSCODE_ROLE")); role != "" {
			submitter, err := transcode.NewMediaConvertSubmitter(mediaconvert.NewFromConfig(awsCfg), transcode.Config{
				RoleARN:      role,
				SourceBucket: bucket,
				OutputBucket: firstNonEmpty(*transcodeOutputBucket, os.Getenv("REELCAST_TRANSCODE_OUTPUT_BUCKET"), bucket),
				Queue:        firstNonEmpty(*transcodeQueue, os.Getenv("REELCAST_TRANSCODE_QUEUE")),
			})
			if err != nil {
				logger.Error("failed to configure transcode submitter", "error", err)
				os.Exit(1)
			}
			serviceOptions = append(serviceOptions, reels.WithSubmitter(submitter))
		}
	}

	service, err := reels.NewService(media, store, reels.Config{
		CallTimeout: resolveDuration(*callTimeout, "REELCAST_CALL_TIMEOUT", 30*time.Second),
	}, serviceOptions...)
	if err != nil {
		logger.Error("failed to initialise reel service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(service, store, logging.WithComponent(logger, "api"))
	if uploadCap := resolveInt64(*maxUploadBytes, "REELCAST_MAX_UPLOAD_BYTES"); uploadCap > 0 {
		handler.MaxUploadBytes = uploadCap
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("REELCAST_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("REELCAST_TLS_KEY")),
		},
		Logger:  logger,
		Metrics: recorder,
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*allowedOrigins, os.Getenv("REELCAST_ALLOWED_ORIGINS"))),
		},
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	logger.Info("ReelCast API listening", "addr", listenAddr)
	logger.Info("metrics endpoint available", "path", "/metrics")
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if storeCloser != nil {
		if err := storeCloser(closeCtx); err != nil {
			logger.Warn("failed to close record store", "error", err)
		}
	}
	logger.Info("server stopped")
}

type recordStoreSettings struct {
	Driver                 string
	DataPath               string
	DynamoTable            string
	PostgresDSN            string
	PostgresMaxConns       int
	PostgresMinConns       int
	PostgresAcquireTimeout time.Duration
	PostgresAppName        string
}

func openRecordStore(ctx context.Context, settings recordStoreSettings, logger *slog.Logger) (storage.Repository, func(context.Context) error, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Driver)) {
	case "", "memory":
		store, err := storage.NewStorage(settings.DataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open JSON datastore: %w", err)
		}
		logger.Info("record store ready", "driver", "memory", "data", settings.DataPath)
		return store, nil, nil
	case "dynamodb":
		if settings.DynamoTable == "" {
			return nil, nil, fmt.Errorf("dynamodb store selected without a table name")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS configuration: %w", err)
		}
		repo, err := storage.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), settings.DynamoTable)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("record store ready", "driver", "dynamodb", "table", settings.DynamoTable)
		return repo, nil, nil
	case "postgres":
		if settings.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("postgres store selected without DSN")
		}
		var opts []storage.PostgresOption
		if settings.PostgresMaxConns > 0 || settings.PostgresMinConns > 0 {
			opts = append(opts, storage.WithPostgresPoolLimits(int32(settings.PostgresMaxConns), int32(settings.PostgresMinConns)))
		}
		if settings.PostgresAcquireTimeout > 0 {
			opts = append(opts, storage.WithPostgresAcquireTimeout(settings.PostgresAcquireTimeout))
		}
		if settings.PostgresAppName != "" {
			opts = append(opts, storage.WithPostgresApplicationName(settings.PostgresAppName))
		}
		repo, err := storage.NewPostgresRepository(ctx, settings.PostgresDSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("record store ready", "driver", "postgres")
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported record store driver %q", settings.Driver)
	}
}

func resolveLogLevel(flagValue string) string {
	return firstNonEmpty(flagValue, os.Getenv("REELCAST_LOG_LEVEL"), "info")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt64(flagValue int64, envKey string) int64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseInt(strings.TrimSpace(env), 10, 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}
