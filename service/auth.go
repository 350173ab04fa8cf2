package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/mq"
	"github.com/educloud/notes/store"
)

const sessionTTL = 24 * time.Hour

const (
	tokenTypeSession = "session"
	tokenTypeShare   = "share"
)

// TokenClaims is what a verified session token says about its bearer.
type TokenClaims struct {
	Id         string
	Provider   string
	ProviderId string
	TokenId    string
	Expiry     time.Time
}

// Compared against when the email is unknown so both failure paths cost
// one bcrypt comparison.
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func (s *Service) CreateJWT(id string, provider string, providerId string) (string, time.Time, error) {
	tokenId, err := uuid.NewV7()
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiry := now.Add(sessionTTL)
	claims := jwt.MapClaims{
		"typ":        tokenTypeSession,
		"jti":        tokenId.String(),
		"id":         id,
		"provider":   provider,
		"providerId": providerId,
		"exp":        expiry.Unix(),
		"iat":        now.Unix(),
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signedToken, time.Unix(expiry.Unix(), 0), nil
}

func (s *Service) parseJWT(tokenString string, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return nil, fmt.Errorf("expected a %s token", wantType)
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, name string) (string, error) {
	v, ok := claims[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing %s claim", name)
	}
	return v, nil
}

func (s *Service) VerifyJWT(tokenString string) (TokenClaims, error) {
	claims, err := s.parseJWT(tokenString, tokenTypeSession)
	if err != nil {
		return TokenClaims{}, err
	}

	var tc TokenClaims
	for name, dst := range map[string]*string{
		"id":         &tc.Id,
		"provider":   &tc.Provider,
		"providerId": &tc.ProviderId,
		"jti":        &tc.TokenId,
	} {
		if *dst, err = stringClaim(claims, name); err != nil {
			return TokenClaims{}, err
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return TokenClaims{}, errors.New("missing exp claim")
	}
	tc.Expiry = exp.Time
	return tc, nil
}

func (s *Service) AuthenticateToken(ctx context.Context, token string) (models.User, error) {
	if len(token) == 0 {
		return models.User{}, ErrTokenNotProvided
	}

	claims, err := s.VerifyJWT(token)
	if err != nil {
		return models.User{}, err
	}

	revoked, err := s.Cache.IsTokenRevoked(ctx, claims.TokenId)
	if err != nil {
		return models.User{}, fmt.Errorf("revocation check failed: %w", err)
	}
	if revoked {
		return models.User{}, ErrTokenRevoked
	}

	user, err := s.Store.GetUser(ctx, claims.Provider, claims.ProviderId)
	if err != nil {
		return models.User{}, err
	}
	if user.Id != claims.Id {
		// The account was deleted and the identity registered again.
		return models.User{}, store.ErrItemNotFound
	}
	return user, nil
}

func (s *Service) newSession(user models.User) (models.Session, error) {
	token, expiry, err := s.CreateJWT(user.Id, user.Provider, user.ProviderId)
	if err != nil {
		return models.Session{}, fmt.Errorf("token generation failed: %w", err)
	}
	return models.Session{
		Token:     token,
		UserId:    user.Id,
		Name:      user.Name,
		Email:     user.Email,
		ExpiresAt: expiry,
	}, nil
}

func (s *Service) SignUp(ctx context.Context, name, email, password string) (models.User, models.Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateSignUp(name, email, password); err != nil {
		return models.User{}, models.Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, created, err := s.Store.CreateUser(ctx, models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Provider:     models.ProviderPassword,
		ProviderId:   email,
	})
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("create user failed: %w", err)
	}
	if !created {
		return models.User{}, models.Session{}, ErrEmailTaken
	}

	session, err := s.newSession(user)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	log.Info().Str("userId", user.Id).Msg("user signed up")
	return user, session, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (models.User, models.Session, error) {
	email = normalizeEmail(email)
	if err := validateSignIn(email, password); err != nil {
		return models.User{}, models.Session{}, err
	}

	user, err := s.Store.GetUser(ctx, models.ProviderPassword, email)
	if errors.Is(err, store.ErrItemNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, models.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}

	session, err := s.newSession(user)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	if len(token) == 0 {
		return ErrTokenNotProvided
	}
	claims, err := s.VerifyJWT(token)
	if err != nil {
		return err
	}
	return s.Cache.RevokeToken(ctx, claims.TokenId, time.Until(claims.Expiry))
}

func (s *Service) DeleteUser(ctx context.Context, user models.User) error {
	if err := s.Store.DeleteUser(ctx, user.Provider, user.ProviderId); err != nil {
		return err
	}

	// Side effects run after the caller has its answer.
	go func() {
		ctx := context.Background()

		if data, err := json.Marshal(models.UserDeletedEvent{UserId: user.Id}); err == nil {
			if err := s.Cache.Publish(ctx, cache.UserDeletedChannel, data); err != nil {
				log.Warn().Err(err).Str("userId", user.Id).Msg("failed to publish user-deleted")
			}
		}

		job := mq.Job{
			Type:           mq.JobPurgeNotes,
			UserId:         user.Id,
			UserProvider:   user.Provider,
			UserProviderId: user.ProviderId,
		}
		if err := mq.SendJob(ctx, s.MQ, job); err != nil {
			log.Error().Err(err).Str("userId", user.Id).Msg("failed to enqueue note purge")
		}
	}()

	return nil
}
