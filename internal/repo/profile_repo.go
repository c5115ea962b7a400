package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/mobilerecharge/server/internal/model"
)

var (
	// ErrDuplicateKey is returned by Create when a profile with the same mobile already exists
	ErrDuplicateKey = errors.New("profile already exists")
	// ErrStoreUnavailable wraps any failure talking to the profile store
	ErrStoreUnavailable = errors.New("profile store unavailable")
)

// DynamoAPI is the subset of the DynamoDB client used by the profile repository
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// ProfileRepo defines the interface for profile store operations
type ProfileRepo interface {
	Exists(ctx context.Context, mobile int64) (bool, error)
	Create(ctx context.Context, profile model.UserProfile) error
	Update(ctx context.Context, mobile int64, upd model.ProfileUpdate) error
	Delete(ctx context.Context, mobile int64) error
	ListAll(ctx context.Context) []model.UserProfile
}

// OpObserver receives the outcome of every store call. *metrics.Collector satisfies it.
type OpObserver interface {
	ObserveStoreOp(op, outcome string, d time.Duration)
}

type profileRepo struct {
	client   DynamoAPI
	table    string
	logger   *slog.Logger
	observer OpObserver
}

// NewProfileRepo creates a ProfileRepo backed by a DynamoDB table keyed by "mobile".
// observer may be nil.
func NewProfileRepo(client DynamoAPI, table string, logger *slog.Logger, observer OpObserver) ProfileRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &profileRepo{client: client, table: table, logger: logger, observer: observer}
}

func mobileKey(mobile int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"mobile": &types.AttributeValueMemberN{Value: strconv.FormatInt(mobile, 10)},
	}
}

// Exists reports whether a profile is stored under the given mobile
func (r *profileRepo) Exists(ctx context.Context, mobile int64) (bool, error) {
	start := time.Now()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.table),
		Key:                  mobileKey(mobile),
		ProjectionExpression: aws.String("mobile"),
	})
	if err != nil {
		r.observe("exists", "error", start)
		return false, storeError("get item", err)
	}
	r.observe("exists", "ok", start)
	return len(out.Item) > 0, nil
}

// Create inserts a new profile; it never overwrites an existing one
func (r *profileRepo) Create(ctx context.Context, profile model.UserProfile) error {
	start := time.Now()
	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(mobile)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			r.observe("create", "conflict", start)
			return ErrDuplicateKey
		}
		r.observe("create", "error", start)
		return storeError("put item", err)
	}
	r.observe("create", "ok", start)
	return nil
}

// Update sets the supplied profile fields. A missing key is a silent no-op:
// the attribute_exists guard stops DynamoDB from upserting a partial record.
func (r *profileRepo) Update(ctx context.Context, mobile int64, upd model.ProfileUpdate) error {
	if upd.IsEmpty() {
		return nil
	}

	start := time.Now()
	var sets []string
	values := make(map[string]types.AttributeValue, 3)
	add := func(attr, placeholder string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, attr+" = "+placeholder)
		values[placeholder] = &types.AttributeValueMemberS{Value: *v}
	}
	add("first_name", ":fn", upd.FirstName)
	add("last_name", ":ln", upd.LastName)
	add("email", ":em", upd.Email)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       mobileKey(mobile),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(mobile)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailed(err) {
			r.observe("update", "missing", start)
			r.logger.InfoContext(ctx, "update skipped, profile not found", slog.String("mobile", model.MaskMobile(mobile)))
			return nil
		}
		r.observe("update", "error", start)
		return storeError("update item", err)
	}
	r.observe("update", "ok", start)
	return nil
}

// Delete removes a profile; deleting a missing key succeeds
func (r *profileRepo) Delete(ctx context.Context, mobile int64) error {
	start := time.Now()
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       mobileKey(mobile),
	})
	if err != nil {
		r.observe("delete", "error", start)
		return storeError("delete item", err)
	}
	r.observe("delete", "ok", start)
	return nil
}

// ListAll scans the whole table. Store failures are logged and yield an empty
// listing instead of an error; undecodable items are skipped.
func (r *profileRepo) ListAll(ctx context.Context) []model.UserProfile {
	start := time.Now()
	profiles := make([]model.UserProfile, 0)

	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			r.observe("list", "error", start)
			r.logger.ErrorContext(ctx, "profile scan failed",
				slog.String("error", err.Error()),
				slog.String("code", apiErrorCode(err)),
			)
			return []model.UserProfile{}
		}
		for _, item := range page.Items {
			var profile model.UserProfile
			if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
				r.logger.WarnContext(ctx, "skipping undecodable profile item", slog.String("error", err.Error()))
				continue
			}
			profiles = append(profiles, profile)
		}
	}
	r.observe("list", "ok", start)
	return profiles
}

func (r *profileRepo) observe(op, outcome string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveStoreOp(op, outcome, time.Since(start))
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// apiErrorCode returns the DynamoDB error code, or "" for non-API errors
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
