package dynamo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/store"
)

type DynamoNoteStore struct {
	client    dynamoAPI
	tableName string
}

func NewDynamoNoteStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoNoteStore, error) {
	client, err := newDynamoDBClient(ctx, devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(tables, tableName) {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoNoteStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoNoteStore) CreateUser(ctx context.Context, user models.User) (models.User, bool, error) {
	userId, err := uuid.NewV7()
	if err != nil {
		return models.User{}, false, err
	}
	user.Id = userId.String()

	du := userToDynamo(user)
	du.Created = time.Now().Unix()
	du.NoteCount = 0
	du, created, err := ensureItem(dynamoStore, ctx, du)
	if err != nil {
		return models.User{}, false, err
	}

	return userFromDynamo(du), created, nil
}

func (dynamoStore *DynamoNoteStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	du, err := getItem[dynamoUser](dynamoStore, ctx, userPK(provider, providerId), userProfileSK, false)
	if err != nil {
		return models.User{}, err
	}
	return userFromDynamo(du), nil
}

func (dynamoStore *DynamoNoteStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	existed, err := deleteItem(dynamoStore, ctx, userPK(provider, providerId), userProfileSK)
	if err != nil {
		return err
	}
	if !existed {
		return store.ErrItemNotFound
	}
	return nil
}

func (dynamoStore *DynamoNoteStore) IncrementUserNoteCount(ctx context.Context, provider string, providerId string, count int) error {
	// Only existing profiles are touched so a late flush cannot resurrect a
	// deleted account.
	return incrementCounter(dynamoStore, ctx, userPK(provider, providerId), userProfileSK, "NoteCount", count)
}

func (dynamoStore *DynamoNoteStore) CreateNote(ctx context.Context, userId string, note models.Note) error {
	_, created, err := ensureItem(dynamoStore, ctx, noteToDynamo(userId, note))
	if err != nil {
		return err
	}
	if !created {
		return store.ErrConditionFailed
	}
	return nil
}

func (dynamoStore *DynamoNoteStore) GetNote(ctx context.Context, userId string, noteId string) (models.Note, error) {
	dn, err := getItem[dynamoNote](dynamoStore, ctx, notesPK(userId), noteId, true)
	if err != nil {
		return models.Note{}, err
	}
	return noteFromDynamo(dn), nil
}

func (dynamoStore *DynamoNoteStore) ListNotes(ctx context.Context, userId string) ([]models.Note, error) {
	dynamoNotes, err := queryAllByPK[dynamoNote](dynamoStore, ctx, notesPK(userId), true, 0)
	if err != nil {
		return nil, err
	}

	notes := make([]models.Note, 0, len(dynamoNotes))
	for _, dn := range dynamoNotes {
		notes = append(notes, noteFromDynamo(dn))
	}
	return notes, nil
}

func (dynamoStore *DynamoNoteStore) UpdateNote(ctx context.Context, userId string, note models.Note) (models.Note, error) {
	dn, err := updateItem(dynamoStore, ctx, noteToDynamo(userId, note), []string{"Title", "Content", "Snippet", "LastUpdated"})
	if err != nil {
		return models.Note{}, err
	}
	return noteFromDynamo(dn), nil
}

func (dynamoStore *DynamoNoteStore) DeleteNote(ctx context.Context, userId string, noteId string) error {
	existed, err := deleteItem(dynamoStore, ctx, notesPK(userId), noteId)
	if err != nil {
		return err
	}
	if !existed {
		return store.ErrItemNotFound
	}
	return nil
}

func (dynamoStore *DynamoNoteStore) DeleteUserNotes(ctx context.Context, userId string) (int, error) {
	return batchDeleteByPKThrottled(dynamoStore, ctx, notesPK(userId), 50*time.Millisecond)
}
