package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/store"
)

const shareTTL = 7 * 24 * time.Hour

// ShareNote returns a link that shows the note read-only to anyone holding
// it, until it expires or the note or its owner is deleted.
func (s *Service) ShareNote(ctx context.Context, user models.User, noteId string) (string, error) {
	if _, err := s.GetNote(ctx, user, noteId); err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"typ":        tokenTypeShare,
		"id":         user.Id,
		"provider":   user.Provider,
		"providerId": user.ProviderId,
		"noteId":     noteId,
		"exp":        now.Add(shareTTL).Unix(),
		"iat":        now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
	if err != nil {
		return "", err
	}
	return s.PublicURL + "/shared/" + token, nil
}

func (s *Service) ResolveShare(ctx context.Context, token string) (models.Note, error) {
	claims, err := s.parseJWT(token, tokenTypeShare)
	if err != nil {
		return models.Note{}, ErrInvalidShareLink
	}

	fields := make(map[string]string, 4)
	for _, name := range []string{"id", "provider", "providerId", "noteId"} {
		v, err := stringClaim(claims, name)
		if err != nil {
			return models.Note{}, ErrInvalidShareLink
		}
		fields[name] = v
	}

	owner, err := s.Store.GetUser(ctx, fields["provider"], fields["providerId"])
	if errors.Is(err, store.ErrItemNotFound) || (err == nil && owner.Id != fields["id"]) {
		return models.Note{}, ErrInvalidShareLink
	}
	if err != nil {
		return models.Note{}, err
	}

	note, err := s.Store.GetNote(ctx, owner.Id, fields["noteId"])
	if errors.Is(err, store.ErrItemNotFound) {
		return models.Note{}, ErrInvalidShareLink
	}
	return note, err
}
