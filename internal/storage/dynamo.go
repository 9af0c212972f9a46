package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"reelcast/internal/models"
)

// DynamoAPI is the subset of the DynamoDB client used by the repository.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoRepository stores reels in a single DynamoDB table keyed by reel_id.
type DynamoRepository struct {
	client DynamoAPI
	table  string
}

// reelItem mirrors the persisted record layout using the wire field names.
type reelItem struct {
	ReelID          string   `dynamodbav:"reel_id"`
	StockIdentifier string   `dynamodbav:"stock_identifier"`
	StorageKey      string   `dynamodbav:"s3_key"`
	Caption         string   `dynamodbav:"caption"`
	Likes           int      `dynamodbav:"likes"`
	LikedBy         []string `dynamodbav:"liked_by"`
	Timestamp       int64    `dynamodbav:"timestamp"`
	JobID           string   `dynamodbav:"job_id"`
}

func itemFromReel(reel models.Reel) reelItem {
	return reelItem{
		ReelID:          reel.ReelID,
		StockIdentifier: reel.StockIdentifier,
		StorageKey:      reel.StorageKey,
		Caption:         reel.Caption,
		Likes:           reel.Likes,
		LikedBy:         reel.CloneLikedBy(),
		Timestamp:       reel.Timestamp,
		JobID:           reel.JobID,
	}
}

func (i reelItem) toReel() models.Reel {
	liked := i.LikedBy
	if liked == nil {
		liked = []string{}
	}
	return models.Reel{
		ReelID:          i.ReelID,
		StockIdentifier: i.StockIdentifier,
		StorageKey:      i.StorageKey,
		Caption:         i.Caption,
		Likes:           i.Likes,
		LikedBy:         liked,
		Timestamp:       i.Timestamp,
		JobID:           i.JobID,
	}
}

// NewDynamoRepository wraps the provided DynamoDB client. The table must
// already exist with reel_id as its partition key.
func NewDynamoRepository(client DynamoAPI, table string) (*DynamoRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	trimmed := strings.TrimSpace(table)
	if trimmed == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	return &DynamoRepository{client: client, table: trimmed}, nil
}

func (r *DynamoRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", r.table, err)
	}
	return nil
}

func (r *DynamoRepository) CreateReel(ctx context.Context, reel models.Reel) error {
	item, err := attributevalue.MarshalMap(itemFromReel(reel))
	if err != nil {
		return fmt.Errorf("marshal reel %s: %w", reel.ReelID, err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(reel_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("create reel %s: %w", reel.ReelID, ErrDuplicateReel)
		}
		return fmt.Errorf("put reel %s: %w", reel.ReelID, err)
	}
	return nil
}

func (r *DynamoRepository) GetReel(ctx context.Context, reelID string) (models.Reel, bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"reel_id": &types.AttributeValueMemberS{Value: reelID},
		},
	})
	if err != nil {
		return models.Reel{}, false, fmt.Errorf("get reel %s: %w", reelID, err)
	}
	if result.Item == nil {
		return models.Reel{}, false, nil
	}
	var item reelItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return models.Reel{}, false, fmt.Errorf("unmarshal reel %s: %w", reelID, err)
	}
	return item.toReel(), true, nil
}

// ListReels performs a full table scan. Acceptable while the record set stays
// small; the feed reader re-sorts, so scan order does not matter.
func (r *DynamoRepository) ListReels(ctx context.Context) ([]models.Reel, error) {
	reels := make([]models.Reel, 0)
	var startKey map[string]types.AttributeValue
	for {
		result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan table %s: %w", r.table, err)
		}
		var items []reelItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal scan page: %w", err)
		}
		for _, item := range items {
			reels = append(reels, item.toReel())
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	return reels, nil
}

// AddLike runs the increment and append as a single conditional UpdateItem so
// concurrent likers never lose an update.
func (r *DynamoRepository) AddLike(ctx context.Context, reelID, clientID string) (models.Reel, error) {
	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"reel_id": &types.AttributeValueMemberS{Value: reelID},
		},
		UpdateExpression:    aws.String("SET likes = likes + :one, liked_by = list_append(liked_by, :client)"),
		ConditionExpression: aws.String("attribute_exists(reel_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":client": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: clientID},
			}},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return models.Reel{}, fmt.Errorf("like reel %s: %w", reelID, ErrNotFound)
		}
		return models.Reel{}, fmt.Errorf("update reel %s: %w", reelID, err)
	}
	var item reelItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return models.Reel{}, fmt.Errorf("unmarshal updated reel %s: %w", reelID, err)
	}
	return item.toReel(), nil
}
