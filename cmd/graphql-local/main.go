// Package main runs the activity GraphQL API as a local HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/collarlog/activity-service/internal/activity"
	"github.com/collarlog/activity-service/internal/activityevents"
	"github.com/collarlog/activity-service/internal/config"
	"github.com/collarlog/activity-service/internal/graphql"
)

const (
	tableWaitTimeout = 2 * time.Minute
	shutdownTimeout  = 10 * time.Second
)

// Offline settings accepted by DynamoDB Local.
const (
	offlineRegion    = "localhost"
	offlineAccessKey = "DEFAULT_ACCESS_KEY"
	offlineSecretKey = "DEFAULT_SECRET"
)

var logger = logging.New()

// loadAWSConfig loads the AWS configuration with OpenTelemetry middleware
// attached. In offline mode it uses a fixed region and static credentials.
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Offline {
		opts = append(opts,
			awsconfig.WithRegion(offlineRegion),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(offlineAccessKey, offlineSecretKey, ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return awsCfg, nil
}

// newDynamoDBClient creates a DynamoDB client. A non-empty endpoint replaces
// the regional endpoint.
func newDynamoDBClient(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// newMux routes the GraphQL endpoint at both / and /graphql.
func newMux(h http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", h)
	mux.Handle("/graphql", h)
	return otelhttp.NewHandler(mux, "activity-graphql-local")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Error("FATAL: GraphQL server failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// run wires the service and serves until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	tracing.InitPropagator()

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return err
	}
	dynamoClient := newDynamoDBClient(awsCfg, cfg.DynamoDBEndpoint)

	if cfg.CreateTable {
		created, err := activity.EnsureTable(ctx, dynamoClient, cfg.TableName, tableWaitTimeout)
		if err != nil {
			return err
		}
		logger.Info("Activity table ready", slog.String("table", cfg.TableName), slog.Bool("created", created))
	}

	opts := []activity.Option{activity.WithLogger(logger)}
	if cfg.EventsQueueURL != "" {
		opts = append(opts, activity.WithPublisher(activityevents.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL)))
	}
	svc := activity.NewService(dynamoClient, cfg, opts...)

	server, err := graphql.NewServer(svc, cfg.MaskStoreErrors, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           newMux(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("GraphQL server listening",
			slog.String("address", cfg.HTTPAddress),
			slog.Bool("offline", cfg.Offline),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("GraphQL server stopped")
	return nil
}
