// Package main implements the GraphQL API Lambda handler for activity items.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/jarrod-lowe/jmap-service-libs/awsinit"
	"github.com/jarrod-lowe/jmap-service-libs/dbclient"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"

	"github.com/collarlog/activity-service/internal/activity"
	"github.com/collarlog/activity-service/internal/activityevents"
	"github.com/collarlog/activity-service/internal/config"
	"github.com/collarlog/activity-service/internal/graphql"
)

const functionName = "activity-graphql"

var logger = logging.New()

// Executor runs decoded GraphQL requests.
type Executor interface {
	Execute(ctx context.Context, req *graphql.Request) *graphqlgo.Response
}

// handler adapts API Gateway proxy events to the GraphQL executor.
type handler struct {
	executor Executor
	logger   *slog.Logger
}

// newHandler creates a new handler.
func newHandler(executor Executor, logger *slog.Logger) *handler {
	return &handler{
		executor: executor,
		logger:   logger,
	}
}

// handle processes one API Gateway request.
func (h *handler) handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, span := tracing.Tracer(functionName).Start(ctx, "GraphQLHandler")
	defer span.End()
	span.SetAttributes(
		tracing.Function(functionName),
		tracing.RequestID(request.RequestContext.RequestID),
		attribute.String("http.request.method", request.HTTPMethod),
	)

	switch request.HTTPMethod {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNoContent,
			Headers:    graphql.Headers(),
		}, nil
	case http.MethodPost:
	default:
		resp := respond(http.StatusMethodNotAllowed, graphql.ErrorResponse(errors.New("method not allowed")))
		resp.Headers["Allow"] = "POST, OPTIONS"
		return resp, nil
	}

	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return respond(http.StatusBadRequest, graphql.ErrorResponse(err)), nil
		}
		body = decoded
	}

	req, err := graphql.DecodeRequest(body)
	if err != nil {
		h.logger.InfoContext(ctx, "Rejected GraphQL request",
			slog.String("error", err.Error()),
		)
		return respond(http.StatusBadRequest, graphql.ErrorResponse(err)), nil
	}

	resp := h.executor.Execute(ctx, req)
	if len(resp.Errors) > 0 {
		tracing.RecordError(span, resp.Errors[0])
	}
	return respond(graphql.StatusCode(resp), resp), nil
}

// respond encodes resp as an API Gateway response.
func respond(status int, resp *graphqlgo.Response) events.APIGatewayProxyResponse {
	body, err := json.Marshal(resp)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"errors":[{"message":"Internal server error"}]}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    graphql.Headers(),
		Body:       string(body),
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("FATAL: Failed to load config", slog.String("error", err.Error()))
		panic(err)
	}
	slog.SetDefault(logger)

	result, err := awsinit.Init(ctx, awsinit.WithHTTPHandler(functionName))
	if err != nil {
		logger.Error("FATAL: Failed to initialize", slog.String("error", err.Error()))
		panic(err)
	}
	ctx = result.Ctx

	dynamoClient := dbclient.NewClient(result.Config)

	// Warm DynamoDB connection
	warmCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_, _ = dynamoClient.GetItem(warmCtx, &dynamodb.GetItemInput{
		TableName: aws.String(cfg.TableName),
		Key: map[string]types.AttributeValue{
			activity.AttrPartitionKey: &types.AttributeValueMemberS{Value: "WARMUP"},
			activity.AttrSortKey:      &types.AttributeValueMemberS{Value: "WARMUP"},
		},
	})
	cancel()

	opts := []activity.Option{activity.WithLogger(logger)}
	if cfg.EventsQueueURL != "" {
		sqsClient := sqs.NewFromConfig(result.Config)
		opts = append(opts, activity.WithPublisher(activityevents.NewSQSPublisher(sqsClient, cfg.EventsQueueURL)))
	}
	svc := activity.NewService(dynamoClient, cfg, opts...)

	server, err := graphql.NewServer(svc, cfg.MaskStoreErrors, logger)
	if err != nil {
		logger.Error("FATAL: Failed to build GraphQL schema", slog.String("error", err.Error()))
		result.Cleanup()
		panic(err)
	}
	result.Cleanup()

	h := newHandler(server, logger)
	result.Start(h.handle)
}
