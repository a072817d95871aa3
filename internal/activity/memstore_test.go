package activity

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// memTable is an in-memory table that evaluates the key conditions and
// filter the service issues. Limit applies before the filter, as in DynamoDB.
type memTable struct {
	items map[string]map[string]map[string]types.AttributeValue
}

func newMemTable() *memTable {
	return &memTable{items: map[string]map[string]map[string]types.AttributeValue{}}
}

func sAttr(m map[string]types.AttributeValue, name string) string {
	if v, ok := m[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *memTable) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	values := input.ExpressionAttributeValues
	pk := sAttr(values, ":deviceId")
	exact := ""
	if pk == "" {
		pk = sAttr(values, ":partitionKey")
		exact = sAttr(values, ":sortKey")
	}
	start := sAttr(values, ":startTime")
	end := sAttr(values, ":endTime")
	after := sAttr(input.ExclusiveStartKey, AttrSortKey)
	filterType := sAttr(values, ":activityType")

	partition := m.items[pk]
	sortKeys := make([]string, 0, len(partition))
	for sk := range partition {
		sortKeys = append(sortKeys, sk)
	}
	sort.Strings(sortKeys)

	limit := int(aws.ToInt32(input.Limit))
	out := &dynamodb.QueryOutput{}
	evaluated := 0
	for i, sk := range sortKeys {
		if exact != "" && sk != exact {
			continue
		}
		if sk < start || (end != "" && sk > end) {
			continue
		}
		if after != "" && sk <= after {
			continue
		}
		evaluated++
		item := partition[sk]
		if filterType == "" || sAttr(item, AttrActivityType) == filterType {
			out.Items = append(out.Items, item)
		}
		if limit > 0 && evaluated == limit {
			if i < len(sortKeys)-1 {
				out.LastEvaluatedKey = map[string]types.AttributeValue{
					AttrPartitionKey: &types.AttributeValueMemberS{Value: pk},
					AttrSortKey:      &types.AttributeValueMemberS{Value: sk},
				}
			}
			break
		}
	}
	return out, nil
}

func (m *memTable) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk := sAttr(input.Item, AttrPartitionKey)
	if m.items[pk] == nil {
		m.items[pk] = map[string]map[string]types.AttributeValue{}
	}
	m.items[pk][sAttr(input.Item, AttrSortKey)] = input.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *memTable) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(m.items[sAttr(input.Key, AttrPartitionKey)], sAttr(input.Key, AttrSortKey))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *memTable) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	item := m.items[sAttr(input.Key, AttrPartitionKey)][sAttr(input.Key, AttrSortKey)]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (m *memTable) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return nil, errors.New("memTable: UpdateItem not supported")
}

func (m *memTable) TransactWriteItems(ctx context.Context, input *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	return nil, errors.New("memTable: TransactWriteItems not supported")
}

func TestService_CreateQueryDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	clock := fixedNow
	svc := NewService(table, testConfig(), WithClock(func() time.Time { return clock }))

	created, err := svc.CreateActivityItem(ctx, NewActivity{
		PartitionKey: "dev1",
		ActivityType: "LOCATION",
		ActionData:   &ActionData{Location: &Location{Lat: "51.5", Long: "-0.12"}},
	})
	if err != nil {
		t.Fatalf("CreateActivityItem() error = %v", err)
	}
	if len(created.Items) != 1 {
		t.Fatalf("len(created.Items) = %d, want 1", len(created.Items))
	}
	item := created.Items[0]
	if item.SortKey != "1705314600000_LOCATION" {
		t.Errorf("SortKey = %q", item.SortKey)
	}
	if item.ActionData == nil || item.ActionData.Location == nil || item.ActionData.Location.Lat != "51.5" {
		t.Errorf("ActionData = %+v", item.ActionData)
	}

	got, err := svc.GetActivityItems(ctx, QueryParams{PartitionKey: "dev1"})
	if err != nil {
		t.Fatalf("GetActivityItems() error = %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].SortKey != item.SortKey {
		t.Fatalf("Items = %+v", got.Items)
	}

	if _, err := svc.DeleteActivityItem(ctx, item.Key()); err != nil {
		t.Fatalf("DeleteActivityItem() error = %v", err)
	}
	// Deleting again is not an error.
	if _, err := svc.DeleteActivityItem(ctx, item.Key()); err != nil {
		t.Fatalf("second DeleteActivityItem() error = %v", err)
	}

	got, err = svc.GetActivityItems(ctx, QueryParams{PartitionKey: "dev1"})
	if err != nil {
		t.Fatalf("GetActivityItems() error = %v", err)
	}
	if len(got.Items) != 0 {
		t.Errorf("len(Items) = %d after delete, want 0", len(got.Items))
	}
}

func TestService_DurationRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	svc := NewService(table, testConfig(), WithClock(func() time.Time { return fixedNow }))

	duration := 42.5
	created, err := svc.CreateActivityItem(ctx, NewActivity{
		PartitionKey: "dev1",
		ActivityType: "WALK",
		ActionData:   &ActionData{Duration: &duration},
	})
	if err != nil {
		t.Fatalf("CreateActivityItem() error = %v", err)
	}
	if d := created.Items[0].ActionData.Duration; d == nil || *d != duration {
		t.Fatalf("created Duration = %v, want %v", d, duration)
	}

	got, err := svc.GetActivityItems(ctx, QueryParams{PartitionKey: "dev1", StartTime: EpochMillis(fixedNow)})
	if err != nil {
		t.Fatalf("GetActivityItems() error = %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(got.Items))
	}
	ad := got.Items[0].ActionData
	if ad == nil || ad.Duration == nil {
		t.Fatalf("ActionData = %+v, want duration", ad)
	}
	if *ad.Duration != duration {
		t.Errorf("Duration = %v, want %v", *ad.Duration, duration)
	}
	if ad.Location != nil {
		t.Errorf("Location = %+v, want nil", ad.Location)
	}
}

func TestService_Pagination(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	clock := fixedNow
	svc := NewService(table, testConfig(), WithClock(func() time.Time { return clock }))

	for i := 0; i < 5; i++ {
		clock = fixedNow.Add(time.Duration(i) * time.Second)
		activityType := "BARK"
		if i%2 == 1 {
			activityType = "WALK"
		}
		if _, err := svc.CreateActivityItem(ctx, NewActivity{PartitionKey: "dev1", ActivityType: activityType}); err != nil {
			t.Fatalf("CreateActivityItem(%d) error = %v", i, err)
		}
	}

	var seen []string
	params := QueryParams{PartitionKey: "dev1", StartTime: EpochMillis(fixedNow), PageSize: 2}
	for page := 0; page < 10; page++ {
		result, err := svc.GetActivityItems(ctx, params)
		if err != nil {
			t.Fatalf("GetActivityItems() error = %v", err)
		}
		for _, item := range result.Items {
			seen = append(seen, item.SortKey)
		}
		if result.Next == nil {
			break
		}
		params.SortKey = result.Next.SortKey
	}

	if len(seen) != 5 {
		t.Fatalf("saw %d items, want 5: %v", len(seen), seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("items out of order: %v", seen)
		}
	}
}

func TestService_FilterPageMayBeShort(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	clock := fixedNow
	svc := NewService(table, testConfig(), WithClock(func() time.Time { return clock }))

	for i, activityType := range []string{"WALK", "WALK", "BARK"} {
		clock = fixedNow.Add(time.Duration(i) * time.Second)
		if _, err := svc.CreateActivityItem(ctx, NewActivity{PartitionKey: "dev1", ActivityType: activityType}); err != nil {
			t.Fatalf("CreateActivityItem() error = %v", err)
		}
	}

	result, err := svc.GetActivityItems(ctx, QueryParams{PartitionKey: "dev1", ActivityType: "BARK", PageSize: 2})
	if err != nil {
		t.Fatalf("GetActivityItems() error = %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(result.Items))
	}
	if result.Next == nil {
		t.Fatal("Next = nil, want cursor")
	}

	result, err = svc.GetActivityItems(ctx, QueryParams{
		PartitionKey: "dev1",
		ActivityType: "BARK",
		PageSize:     2,
		SortKey:      result.Next.SortKey,
	})
	if err != nil {
		t.Fatalf("GetActivityItems() error = %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ActivityType != "BARK" {
		t.Errorf("Items = %+v", result.Items)
	}
}

func TestService_EndTimeBound(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	clock := fixedNow
	svc := NewService(table, testConfig(), WithClock(func() time.Time { return clock }))

	for i := 0; i < 3; i++ {
		clock = fixedNow.Add(time.Duration(i) * time.Minute)
		if _, err := svc.CreateActivityItem(ctx, NewActivity{PartitionKey: "dev1", ActivityType: "BARK"}); err != nil {
			t.Fatalf("CreateActivityItem() error = %v", err)
		}
	}

	// Sort keys carry a type suffix, so the end bound excludes an item whose
	// timestamp equals it exactly.
	result, err := svc.GetActivityItems(ctx, QueryParams{
		PartitionKey: "dev1",
		StartTime:    EpochMillis(fixedNow),
		EndTime:      EpochMillis(fixedNow.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("GetActivityItems() error = %v", err)
	}
	if len(result.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(result.Items))
	}
}
