package activity

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// marshalItem converts an Item to DynamoDB attribute values. actionData is
// always written, as an empty map when the item has no payload.
func marshalItem(item *Item) map[string]types.AttributeValue {
	actionData := map[string]types.AttributeValue{}
	if item.ActionData != nil {
		if d := item.ActionData.Duration; d != nil {
			actionData[AttrDuration] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(*d, 'f', -1, 64)}
		}
		if loc := item.ActionData.Location; loc != nil {
			actionData[AttrLocation] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				AttrLat:  &types.AttributeValueMemberS{Value: loc.Lat},
				AttrLong: &types.AttributeValueMemberS{Value: loc.Long},
			}}
		}
	}

	return map[string]types.AttributeValue{
		AttrPartitionKey: &types.AttributeValueMemberS{Value: item.PartitionKey},
		AttrSortKey:      &types.AttributeValueMemberS{Value: item.SortKey},
		AttrActivityType: &types.AttributeValueMemberS{Value: item.ActivityType},
		AttrCreatedAt:    &types.AttributeValueMemberS{Value: item.CreatedAt},
		AttrActionData:   &types.AttributeValueMemberM{Value: actionData},
	}
}

// marshalKey converts a Key to DynamoDB attribute values.
func marshalKey(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPartitionKey: &types.AttributeValueMemberS{Value: key.PartitionKey},
		AttrSortKey:      &types.AttributeValueMemberS{Value: key.SortKey},
	}
}

// newResult converts a query response into plain items and a next-page cursor.
func newResult(output *dynamodb.QueryOutput) (*Result, error) {
	items := []Item{}
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &items); err != nil {
		return nil, err
	}

	result := &Result{Items: items}
	if len(output.LastEvaluatedKey) > 0 {
		result.Next = &Key{
			PartitionKey: stringAttr(output.LastEvaluatedKey, AttrPartitionKey),
			SortKey:      stringAttr(output.LastEvaluatedKey, AttrSortKey),
		}
	}
	return result, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
