package activity

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys.
const (
	SpanAttrPartitionKey = "activity.partition_key"
	SpanAttrSortKey      = "activity.sort_key"
	SpanAttrActivityType = "activity.type"
	SpanAttrItemCount    = "activity.item_count"
)

func partitionKeyAttr(v string) attribute.KeyValue {
	return attribute.String(SpanAttrPartitionKey, v)
}

func sortKeyAttr(v string) attribute.KeyValue {
	return attribute.String(SpanAttrSortKey, v)
}

func activityTypeAttr(v string) attribute.KeyValue {
	return attribute.String(SpanAttrActivityType, v)
}

func itemCountAttr(n int) attribute.KeyValue {
	return attribute.Int(SpanAttrItemCount, n)
}
