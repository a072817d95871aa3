package activity

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jarrod-lowe/jmap-service-libs/dbclient"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/trace"

	"github.com/collarlog/activity-service/internal/activityevents"
	"github.com/collarlog/activity-service/internal/config"
)

const tracerName = "activity-service"

var timestampPattern = regexp.MustCompile(`^[0-9]{13}$`)

// Service implements the activity query and mutation rules.
type Service struct {
	client         dbclient.DynamoDBClient
	tableName      string
	activityTypes  map[string]bool
	readAfterWrite bool
	publisher      activityevents.Publisher
	now            func() time.Time
	logger         *slog.Logger
}

// NewService creates a Service for the table and activity types in cfg.
func NewService(client dbclient.DynamoDBClient, cfg *config.Config, opts ...Option) *Service {
	activityTypes := make(map[string]bool, len(cfg.ActivityTypes))
	for _, t := range cfg.ActivityTypes {
		activityTypes[t] = true
	}

	s := &Service{
		client:         client,
		tableName:      cfg.TableName,
		activityTypes:  activityTypes,
		readAfterWrite: cfg.ReadAfterWrite,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetActivityItems returns one page of a partition's items from the start
// time (today's UTC midnight by default) up to the optional end time.
func (s *Service) GetActivityItems(ctx context.Context, params QueryParams) (*Result, error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ActivityService.GetActivityItems",
		trace.WithAttributes(
			partitionKeyAttr(params.PartitionKey),
			activityTypeAttr(params.ActivityType),
		))
	defer span.End()

	input, err := s.buildQuery(params)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	output, err := s.client.Query(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query activity items",
			slog.String("partition_key", params.PartitionKey),
			slog.String("error", err.Error()),
		)
		tracing.RecordError(span, err)
		return nil, newStoreError("query", err)
	}

	result, err := newResult(output)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, newStoreError("query", err)
	}

	span.SetAttributes(itemCountAttr(len(result.Items)))
	return result, nil
}

// buildQuery validates params and assembles the store query.
func (s *Service) buildQuery(params QueryParams) (*dynamodb.QueryInput, error) {
	if params.PartitionKey == "" {
		return nil, validationErrorf("Missing partitionKey in the query")
	}
	if params.EndTime != "" && !timestampPattern.MatchString(params.EndTime) {
		return nil, validationErrorf("endTime is not in right format")
	}
	if params.StartTime != "" && !timestampPattern.MatchString(params.StartTime) {
		return nil, validationErrorf("startTime is not in right format")
	}
	if params.PageSize < 0 {
		return nil, validationErrorf("pageSize must be a positive number")
	}
	if params.PageSize > math.MaxInt32 {
		return nil, validationErrorf("pageSize must not exceed %d", math.MaxInt32)
	}

	startTime := params.StartTime
	if startTime == "" {
		startTime = DayStart(s.now())
	}
	pageSize := params.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("partitionKey = :deviceId AND sortKey >= :startTime"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":deviceId":  &types.AttributeValueMemberS{Value: params.PartitionKey},
			":startTime": &types.AttributeValueMemberS{Value: startTime},
		},
		Limit: aws.Int32(int32(pageSize)),
	}

	if params.EndTime != "" {
		input.ExpressionAttributeValues[":endTime"] = &types.AttributeValueMemberS{Value: params.EndTime}
		input.KeyConditionExpression = aws.String("partitionKey = :deviceId AND sortKey BETWEEN :startTime AND :endTime")
	}

	// The type filter runs after the key range is read, so a page may hold
	// fewer than pageSize matches while Next is still set.
	if params.ActivityType != "" {
		if !s.activityTypes[params.ActivityType] {
			return nil, unknownActivityType(params.ActivityType)
		}
		input.FilterExpression = aws.String("#activityType = :activityType")
		input.ExpressionAttributeNames = map[string]string{"#activityType": AttrActivityType}
		input.ExpressionAttributeValues[":activityType"] = &types.AttributeValueMemberS{Value: params.ActivityType}
	}

	if params.SortKey != "" {
		input.ExclusiveStartKey = marshalKey(Key{PartitionKey: params.PartitionKey, SortKey: params.SortKey})
	}

	return input, nil
}

// CreateActivityItem stores a new item keyed by the current time and returns
// it as read back from the table.
func (s *Service) CreateActivityItem(ctx context.Context, in NewActivity) (*Result, error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ActivityService.CreateActivityItem",
		trace.WithAttributes(
			partitionKeyAttr(in.PartitionKey),
			activityTypeAttr(in.ActivityType),
		))
	defer span.End()

	actionData, err := s.validateNewActivity(in)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	item := Item{
		PartitionKey: in.PartitionKey,
		SortKey:      SortKeyFor(now, in.ActivityType),
		ActivityType: in.ActivityType,
		CreatedAt:    FormatCreatedAt(now),
		ActionData:   actionData,
	}
	span.SetAttributes(sortKeyAttr(item.SortKey))

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      marshalItem(&item),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to put activity item",
			slog.String("partition_key", item.PartitionKey),
			slog.String("sort_key", item.SortKey),
			slog.String("error", err.Error()),
		)
		tracing.RecordError(span, err)
		return nil, newStoreError("put", err)
	}

	s.publish(ctx, activityevents.TypeCreated, item.Key(), item.ActivityType, now)

	if !s.readAfterWrite {
		return &Result{Items: []Item{item}}, nil
	}

	// A failure here leaves the item stored without a response.
	output, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("partitionKey = :partitionKey AND sortKey = :sortKey"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":partitionKey": &types.AttributeValueMemberS{Value: item.PartitionKey},
			":sortKey":      &types.AttributeValueMemberS{Value: item.SortKey},
		},
		Limit:          aws.Int32(1),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read back activity item",
			slog.String("partition_key", item.PartitionKey),
			slog.String("sort_key", item.SortKey),
			slog.String("error", err.Error()),
		)
		tracing.RecordError(span, err)
		return nil, newStoreError("query", err)
	}

	result, err := newResult(output)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, newStoreError("query", err)
	}
	return result, nil
}

// validateNewActivity checks the create input and returns the action data
// to store.
func (s *Service) validateNewActivity(in NewActivity) (*ActionData, error) {
	if in.PartitionKey == "" {
		return nil, validationErrorf("Missing partitionKey in the mutation")
	}
	if in.ActivityType == "" {
		return nil, validationErrorf("Missing activityType in the mutation")
	}
	if !s.activityTypes[in.ActivityType] {
		return nil, unknownActivityType(in.ActivityType)
	}

	actionData := &ActionData{}
	if in.ActionData == nil {
		return actionData, nil
	}

	if d := in.ActionData.Duration; d != nil && *d != 0 {
		duration := *d
		actionData.Duration = &duration
	}

	if in.ActivityType == ActivityTypeLocation && in.ActionData.Location != nil {
		loc := in.ActionData.Location
		if loc.Lat == "" {
			return nil, missingLocationField(AttrLat)
		}
		if loc.Long == "" {
			return nil, missingLocationField(AttrLong)
		}
		actionData.Location = &Location{Lat: loc.Lat, Long: loc.Long}
	}

	return actionData, nil
}

// DeleteActivityItem deletes the item with the given key. Deleting a missing
// key succeeds.
func (s *Service) DeleteActivityItem(ctx context.Context, key Key) (*Key, error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ActivityService.DeleteActivityItem",
		trace.WithAttributes(
			partitionKeyAttr(key.PartitionKey),
			sortKeyAttr(key.SortKey),
		))
	defer span.End()

	if key.PartitionKey == "" {
		err := validationErrorf("Missing partitionKey in the mutation")
		tracing.RecordError(span, err)
		return nil, err
	}
	if key.SortKey == "" {
		err := validationErrorf("Missing sortKey in the mutation")
		tracing.RecordError(span, err)
		return nil, err
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       marshalKey(key),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete activity item",
			slog.String("partition_key", key.PartitionKey),
			slog.String("sort_key", key.SortKey),
			slog.String("error", err.Error()),
		)
		tracing.RecordError(span, err)
		return nil, newStoreError("delete", err)
	}

	s.publish(ctx, activityevents.TypeDeleted, key, "", s.now())

	return &Key{PartitionKey: key.PartitionKey, SortKey: key.SortKey}, nil
}

// publish sends a lifecycle event. Failures are logged only; the write has
// already happened.
func (s *Service) publish(ctx context.Context, eventType activityevents.Type, key Key, activityType string, at time.Time) {
	if s.publisher == nil {
		return
	}

	event := activityevents.NewEvent(eventType, key.PartitionKey, key.SortKey, activityType, at)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish activity event",
			slog.String("event_type", string(eventType)),
			slog.String("partition_key", key.PartitionKey),
			slog.String("sort_key", key.SortKey),
			slog.String("error", err.Error()),
		)
	}
}
