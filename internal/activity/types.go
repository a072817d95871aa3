// Package activity provides the activity item model and the service that
// validates and translates activity operations into DynamoDB requests.
package activity

// Location is a position fix attached to a LOCATION activity.
type Location struct {
	Lat  string `dynamodbav:"lat"`
	Long string `dynamodbav:"long"`
}

// ActionData is the optional payload of an activity.
type ActionData struct {
	Duration *float64  `dynamodbav:"duration,omitempty"`
	Location *Location `dynamodbav:"location,omitempty"`
}

// Item is an activity event stored in DynamoDB.
type Item struct {
	PartitionKey string      `dynamodbav:"partitionKey"`
	SortKey      string      `dynamodbav:"sortKey"`
	ActivityType string      `dynamodbav:"activityType"`
	CreatedAt    string      `dynamodbav:"createdAt"`
	ActionData   *ActionData `dynamodbav:"actionData,omitempty"`
}

// Key returns the primary key of the item.
func (i *Item) Key() Key {
	return Key{PartitionKey: i.PartitionKey, SortKey: i.SortKey}
}

// Key identifies a single item. It doubles as the pagination cursor.
type Key struct {
	PartitionKey string
	SortKey      string
}

// Result is a page of items. Next is set when the store reports more data.
type Result struct {
	Items []Item
	Next  *Key
}

// QueryParams are the arguments of a range query over one partition.
// StartTime and EndTime are 13-digit millisecond epoch strings. SortKey, when
// set, is the exclusive cursor returned as Next by a previous page.
type QueryParams struct {
	PartitionKey string
	StartTime    string
	EndTime      string
	ActivityType string
	SortKey      string
	PageSize     int
}

// NewActivity is the caller-supplied part of an item to create.
type NewActivity struct {
	PartitionKey string
	ActivityType string
	ActionData   *ActionData
}
