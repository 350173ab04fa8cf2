package dynamo

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/store"
)

// fakeDynamo is an in-memory table that understands the handful of
// expressions the store sends.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func attrS(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func keyOf(item map[string]types.AttributeValue) string {
	return attrS(item["PK"]) + "|" + attrS(item["SK"])
}

func (f *fakeDynamo) ListTables(context.Context, *dynamodb.ListTablesInput, ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	return &dynamodb.ListTablesOutput{TableNames: []string{"notes"}}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Item)
	if _, exists := f.items[k]; exists && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	item, ok := f.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}

	updated := make(map[string]types.AttributeValue, len(item))
	for name, v := range item {
		updated[name] = v
	}
	if strings.Contains(*in.UpdateExpression, "if_not_exists") {
		field := in.ExpressionAttributeNames["#c"]
		current := 0
		if n, ok := updated[field].(*types.AttributeValueMemberN); ok {
			current, _ = strconv.Atoi(n.Value)
		}
		delta, _ := strconv.Atoi(in.ExpressionAttributeValues[":val"].(*types.AttributeValueMemberN).Value)
		updated[field] = &types.AttributeValueMemberN{Value: strconv.Itoa(current + delta)}
	} else {
		for placeholder, field := range in.ExpressionAttributeNames {
			updated[field] = in.ExpressionAttributeValues[":"+strings.TrimPrefix(placeholder, "#")]
		}
	}
	f.items[k] = updated
	return &dynamodb.UpdateItemOutput{Attributes: updated}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	old := f.items[k]
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := attrS(in.ExpressionAttributeValues[":pk"])
	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if attrS(item["PK"]) == pk {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return attrS(matched[i]["SK"]) < attrS(matched[j]["SK"]) })
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	return &dynamodb.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reqs := range in.RequestItems {
		for _, wr := range reqs {
			if wr.DeleteRequest != nil {
				delete(f.items, keyOf(wr.DeleteRequest.Key))
			}
			if wr.PutRequest != nil {
				f.items[keyOf(wr.PutRequest.Item)] = wr.PutRequest.Item
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func setupStore() *DynamoNoteStore {
	return &DynamoNoteStore{client: newFakeDynamo(), tableName: "notes"}
}

func newNote(t *testing.T, title string) models.Note {
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return models.Note{
		Id:          id.String(),
		Title:       title,
		Content:     "<p>" + title + "</p>",
		Snippet:     title,
		LastUpdated: time.UnixMilli(1700000000000).UTC(),
	}
}

func TestCreateUser_ExistingIdentityIsReturned(t *testing.T) {
	s := setupStore()
	ctx := context.Background()
	u := models.User{Provider: models.ProviderPassword, ProviderId: "jane@uni.edu", Name: "Jane", Email: "jane@uni.edu", PasswordHash: "h"}

	first, created, err := s.CreateUser(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.Id)

	second, created, err := s.CreateUser(ctx, u)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Id, second.Id)

	got, err := s.GetUser(ctx, models.ProviderPassword, "jane@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}

func TestGetUser_NotFound(t *testing.T) {
	s := setupStore()
	_, err := s.GetUser(context.Background(), "github", "42")
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestIncrementUserNoteCount(t *testing.T) {
	s := setupStore()
	ctx := context.Background()
	_, _, err := s.CreateUser(ctx, models.User{Provider: "github", ProviderId: "42"})
	require.NoError(t, err)

	require.NoError(t, s.IncrementUserNoteCount(ctx, "github", "42", 3))
	require.NoError(t, s.IncrementUserNoteCount(ctx, "github", "42", -1))
	u, err := s.GetUser(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, 2, u.NoteCount)

	err = s.IncrementUserNoteCount(ctx, "github", "missing", 1)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestNotes_ListInCreationOrder(t *testing.T) {
	s := setupStore()
	ctx := context.Background()

	a := newNote(t, "a")
	time.Sleep(2 * time.Millisecond)
	b := newNote(t, "b")
	require.NoError(t, s.CreateNote(ctx, "u1", a))
	require.NoError(t, s.CreateNote(ctx, "u1", b))
	require.NoError(t, s.CreateNote(ctx, "u2", newNote(t, "other")))

	list, err := s.ListNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0])
	assert.Equal(t, b, list[1])

	assert.ErrorIs(t, s.CreateNote(ctx, "u1", a), store.ErrConditionFailed)
}

func TestNotes_UpdateAndDelete(t *testing.T) {
	s := setupStore()
	ctx := context.Background()
	n := newNote(t, "draft")
	require.NoError(t, s.CreateNote(ctx, "u1", n))

	n.Title = "final"
	n.Content = "<p>final</p>"
	updated, err := s.UpdateNote(ctx, "u1", n)
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)

	got, err := s.GetNote(ctx, "u1", n.Id)
	require.NoError(t, err)
	assert.Equal(t, "<p>final</p>", got.Content)

	_, err = s.UpdateNote(ctx, "u2", n)
	assert.ErrorIs(t, err, store.ErrItemNotFound)

	require.NoError(t, s.DeleteNote(ctx, "u1", n.Id))
	assert.ErrorIs(t, s.DeleteNote(ctx, "u1", n.Id), store.ErrItemNotFound)
	_, err = s.GetNote(ctx, "u1", n.Id)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestDeleteUserNotes(t *testing.T) {
	s := setupStore()
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		require.NoError(t, s.CreateNote(ctx, "u1", newNote(t, strconv.Itoa(i))))
	}
	require.NoError(t, s.CreateNote(ctx, "u2", newNote(t, "keep")))

	deleted, err := batchDeleteByPKThrottled(s, ctx, notesPK("u1"), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, deleted)

	list, err := s.ListNotes(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = s.ListNotes(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
