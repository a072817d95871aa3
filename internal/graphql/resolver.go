package graphql

import (
	"context"
	"fmt"
	"math"

	"github.com/collarlog/activity-service/internal/activity"
)

// ActivityService defines the activity operations the resolvers call.
type ActivityService interface {
	GetActivityItems(ctx context.Context, params activity.QueryParams) (*activity.Result, error)
	CreateActivityItem(ctx context.Context, in activity.NewActivity) (*activity.Result, error)
	DeleteActivityItem(ctx context.Context, key activity.Key) (*activity.Key, error)
}

// Resolver is the root resolver for Query and Mutation.
type Resolver struct {
	svc ActivityService
}

// NewResolver creates a Resolver backed by svc.
func NewResolver(svc ActivityService) *Resolver {
	return &Resolver{svc: svc}
}

type collar struct {
	PartitionKey string
	SortKey      string
	ActivityType string
	CreatedAt    *string
	ActionData   *actionData
}

type actionData struct {
	duration *float64
	Location *location
}

// Duration resolves ActionData.duration. A stored value that is not a whole
// number within the Int range is reported as a field error.
func (a *actionData) Duration() (*int32, error) {
	if a.duration == nil {
		return nil, nil
	}
	d := *a.duration
	if d != math.Trunc(d) || d < math.MinInt32 || d > math.MaxInt32 {
		return nil, fmt.Errorf("stored duration %v is not a valid Int", d)
	}
	v := int32(d)
	return &v, nil
}

type location struct {
	Lat  *string
	Long *string
}

type page struct {
	PartitionKey *string
	SortKey      *string
}

type collarResult struct {
	Items *[]*collar
	Next  *page
}

type getActivityItemsArgs struct {
	PartitionKey string
	StartTime    *string
	EndTime      *string
	SortKey      *string
	PageSize     *int32
	ActivityType *string
}

type collarInput struct {
	PartitionKey string
	ActivityType string
	ActionData   actionDataInput
}

type actionDataInput struct {
	Duration *int32
	Location *locationInput
}

type locationInput struct {
	Lat  *string
	Long *string
}

type collarDelete struct {
	PartitionKey string
	SortKey      string
}

// GetActivityItems resolves Query.getActivityItems.
func (r *Resolver) GetActivityItems(ctx context.Context, args getActivityItemsArgs) (*collarResult, error) {
	params := activity.QueryParams{
		PartitionKey: args.PartitionKey,
		StartTime:    deref(args.StartTime),
		EndTime:      deref(args.EndTime),
		SortKey:      deref(args.SortKey),
		ActivityType: deref(args.ActivityType),
	}
	if args.PageSize != nil {
		params.PageSize = int(*args.PageSize)
	}

	result, err := r.svc.GetActivityItems(ctx, params)
	if err != nil {
		return nil, err
	}
	return toCollarResult(result), nil
}

// CreateActivityItem resolves Mutation.createActivityItem.
func (r *Resolver) CreateActivityItem(ctx context.Context, args struct{ Data collarInput }) (*collarResult, error) {
	in := activity.NewActivity{
		PartitionKey: args.Data.PartitionKey,
		ActivityType: args.Data.ActivityType,
		ActionData:   &activity.ActionData{},
	}
	if d := args.Data.ActionData.Duration; d != nil {
		duration := float64(*d)
		in.ActionData.Duration = &duration
	}
	if loc := args.Data.ActionData.Location; loc != nil {
		in.ActionData.Location = &activity.Location{
			Lat:  deref(loc.Lat),
			Long: deref(loc.Long),
		}
	}

	result, err := r.svc.CreateActivityItem(ctx, in)
	if err != nil {
		return nil, err
	}
	return toCollarResult(result), nil
}

// DeleteActivityItem resolves Mutation.deleteActivityItem. Only the key
// fields of the returned Collar are populated.
func (r *Resolver) DeleteActivityItem(ctx context.Context, args struct{ Data collarDelete }) (*collar, error) {
	key, err := r.svc.DeleteActivityItem(ctx, activity.Key{
		PartitionKey: args.Data.PartitionKey,
		SortKey:      args.Data.SortKey,
	})
	if err != nil {
		return nil, err
	}
	return &collar{PartitionKey: key.PartitionKey, SortKey: key.SortKey}, nil
}

func toCollarResult(result *activity.Result) *collarResult {
	items := make([]*collar, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, toCollar(&result.Items[i]))
	}

	out := &collarResult{Items: &items}
	if result.Next != nil {
		out.Next = &page{
			PartitionKey: strPtr(result.Next.PartitionKey),
			SortKey:      strPtr(result.Next.SortKey),
		}
	}
	return out
}

func toCollar(item *activity.Item) *collar {
	c := &collar{
		PartitionKey: item.PartitionKey,
		SortKey:      item.SortKey,
		ActivityType: item.ActivityType,
	}
	if item.CreatedAt != "" {
		c.CreatedAt = strPtr(item.CreatedAt)
	}
	if item.ActionData != nil {
		c.ActionData = &actionData{duration: item.ActionData.Duration}
		if loc := item.ActionData.Location; loc != nil {
			c.ActionData.Location = &location{
				Lat:  strPtr(loc.Lat),
				Long: strPtr(loc.Long),
			}
		}
	}
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
