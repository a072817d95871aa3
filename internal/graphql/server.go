package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	gqlotel "github.com/graph-gophers/graphql-go/trace/otel"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"

	"github.com/collarlog/activity-service/internal/activity"
)

// Error codes set in the extensions of resolver errors.
const (
	CodeBadUserInput = "BAD_USER_INPUT"
	CodeStoreError   = "STORE_ERROR"
)

// MaskedStoreMessage replaces store error messages when masking is enabled.
const MaskedStoreMessage = "Internal server error"

// ErrMissingQuery is returned by DecodeRequest when the body has no query.
var ErrMissingQuery = errors.New("missing query")

// Request is a GraphQL request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// DecodeRequest parses a JSON request body.
func DecodeRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Query == "" {
		return nil, ErrMissingQuery
	}
	return &req, nil
}

// Server executes GraphQL requests against the activity schema.
type Server struct {
	schema          *graphql.Schema
	maskStoreErrors bool
	logger          *slog.Logger
}

// NewServer parses the schema with a resolver backed by svc.
func NewServer(svc ActivityService, maskStoreErrors bool, logger *slog.Logger) (*Server, error) {
	schema, err := graphql.ParseSchema(Schema, NewResolver(svc),
		graphql.UseFieldResolvers(),
		graphql.Tracer(&gqlotel.Tracer{Tracer: tracing.Tracer("activity-graphql")}),
		graphql.Logger(panicLogger{logger: logger}),
	)
	if err != nil {
		return nil, err
	}
	return &Server{
		schema:          schema,
		maskStoreErrors: maskStoreErrors,
		logger:          logger,
	}, nil
}

// Execute runs req and tags resolver errors with an error code.
func (s *Server) Execute(ctx context.Context, req *Request) *graphql.Response {
	resp := s.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)

	for _, qerr := range resp.Errors {
		if qerr.ResolverError == nil {
			continue
		}
		switch {
		case activity.IsValidationError(qerr.ResolverError):
			setCode(qerr, CodeBadUserInput)
		case activity.IsStoreError(qerr.ResolverError):
			s.logger.ErrorContext(ctx, "Activity store request failed",
				slog.String("operation", req.OperationName),
				slog.Any("path", qerr.Path),
				slog.String("error", qerr.ResolverError.Error()),
			)
			setCode(qerr, CodeStoreError)
			if s.maskStoreErrors {
				qerr.Message = MaskedStoreMessage
			}
		}
	}

	if len(resp.Errors) > 0 {
		s.logger.InfoContext(ctx, "GraphQL request completed with errors",
			slog.String("operation", req.OperationName),
			slog.Int("error_count", len(resp.Errors)),
		)
	}
	return resp
}

// ErrorResponse wraps a single request-level error.
func ErrorResponse(err error) *graphql.Response {
	return &graphql.Response{Errors: []*gqlerrors.QueryError{{Message: err.Error()}}}
}

// StatusCode returns 400 when the response has errors and no data, else 200.
func StatusCode(resp *graphql.Response) int {
	if len(resp.Errors) > 0 && (len(resp.Data) == 0 || string(resp.Data) == "null") {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

// Headers returns the response headers shared by every transport.
func Headers() map[string]string {
	return map[string]string{
		"Content-Type":                     "application/json",
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Credentials": "true",
	}
}

func setCode(qerr *gqlerrors.QueryError, code string) {
	if qerr.Extensions == nil {
		qerr.Extensions = map[string]any{}
	}
	qerr.Extensions["code"] = code
}

type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value any) {
	l.logger.ErrorContext(ctx, "Resolver panic",
		slog.String("panic", fmt.Sprint(value)),
	)
}
