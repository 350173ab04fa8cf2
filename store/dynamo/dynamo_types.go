package dynamo

import (
	"time"

	"github.com/educloud/notes/models"
)

const (
	userPKPrefix  = "USER#"
	userProfileSK = "PROFILE"
	notesPKPrefix = "NOTES#"
)

func userPK(provider, providerId string) string {
	return userPKPrefix + provider + "#" + providerId
}

func notesPK(userId string) string {
	return notesPKPrefix + userId
}

type dynamoUser struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	Provider     string `dynamodbav:"Provider"`
	ProviderId   string `dynamodbav:"ProviderId"`
	Name         string `dynamodbav:"Name"`
	Email        string `dynamodbav:"Email"`
	PasswordHash string `dynamodbav:"PasswordHash,omitempty"`
	Created      int64  `dynamodbav:"Created"`
	NoteCount    int    `dynamodbav:"NoteCount"`
}

// Map domain User -> Dynamo
func userToDynamo(u models.User) dynamoUser {
	return dynamoUser{
		PK:           userPK(u.Provider, u.ProviderId),
		SK:           userProfileSK,
		Id:           u.Id,
		Provider:     u.Provider,
		ProviderId:   u.ProviderId,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Created:      u.Created,
		NoteCount:    u.NoteCount,
	}
}

// Map Dynamo -> domain User
func userFromDynamo(du dynamoUser) models.User {
	return models.User{
		Id:           du.Id,
		Name:         du.Name,
		Email:        du.Email,
		PasswordHash: du.PasswordHash,
		Provider:     du.Provider,
		ProviderId:   du.ProviderId,
		Created:      du.Created,
		NoteCount:    du.NoteCount,
	}
}

// Notes live in the owner's partition. The sort key is the note id, a
// UUIDv7, so a forward query returns notes in creation order.
type dynamoNote struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	UserId      string `dynamodbav:"UserId"`
	Title       string `dynamodbav:"Title"`
	Content     string `dynamodbav:"Content"`
	Snippet     string `dynamodbav:"Snippet"`
	LastUpdated int64  `dynamodbav:"LastUpdated"`
}

func noteToDynamo(userId string, n models.Note) dynamoNote {
	return dynamoNote{
		PK:          notesPK(userId),
		SK:          n.Id,
		UserId:      userId,
		Title:       n.Title,
		Content:     n.Content,
		Snippet:     n.Snippet,
		LastUpdated: n.LastUpdated.UnixMilli(),
	}
}

func noteFromDynamo(dn dynamoNote) models.Note {
	return models.Note{
		Id:          dn.SK,
		Title:       dn.Title,
		Content:     dn.Content,
		Snippet:     dn.Snippet,
		LastUpdated: time.UnixMilli(dn.LastUpdated).UTC(),
	}
}
