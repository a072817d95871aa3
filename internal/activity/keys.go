package activity

import (
	"strconv"
	"time"
)

// Attribute names for DynamoDB items.
const (
	AttrPartitionKey = "partitionKey"
	AttrSortKey      = "sortKey"
	AttrActivityType = "activityType"
	AttrCreatedAt    = "createdAt"
	AttrActionData   = "actionData"
	AttrDuration     = "duration"
	AttrLocation     = "location"
	AttrLat          = "lat"
	AttrLong         = "long"
)

// ActivityTypeLocation is the only activity type that carries a location.
const ActivityTypeLocation = "LOCATION"

// DefaultPageSize is the query limit used when the caller gives none.
const DefaultPageSize = 10

// CreatedAtLayout is ISO-8601 UTC with millisecond precision.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

// SortKeyFor returns "<epoch-millis>_<activityType>".
func SortKeyFor(createdAt time.Time, activityType string) string {
	return EpochMillis(createdAt) + "_" + activityType
}

// EpochMillis formats t as a millisecond epoch string.
func EpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// DayStart returns the start of t's UTC calendar day as a millisecond epoch string.
func DayStart(t time.Time) string {
	u := t.UTC()
	return EpochMillis(time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC))
}

// FormatCreatedAt formats t for the createdAt attribute.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}
