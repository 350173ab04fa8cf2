package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/educloud/notes/models"
)

// OAuthAPI is a provider's userinfo endpoint.
type OAuthAPI struct {
	URL     string
	Headers map[string]string
}

// Provider-specific userinfo payloads
type gitHubUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
	ID    int    `json:"id"`
}

type googleUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Sub   string `json:"sub"`
}

var defaultOAuthAPIs = map[string]OAuthAPI{
	"github": {
		URL: "https://api.github.com/user",
		Headers: map[string]string{
			"X-GitHub-Api-Version": "2022-11-28",
		},
	},
	"google": {
		URL: "https://openidconnect.googleapis.com/v1/userinfo",
	},
}

var oauthConfigsTemplate = map[string]*oauth2.Config{
	"github": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		Scopes: []string{"read:user", "user:email"},
	},
	"google": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes: []string{"openid", "email", "profile"},
	},
}

func addOauthEndpointsAndScopes(oauthConfigs map[string]*oauth2.Config) (map[string]*oauth2.Config, error) {
	for provider, conf := range oauthConfigs {
		template, ok := oauthConfigsTemplate[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported provider: %s", provider)
		}
		conf.Endpoint = template.Endpoint
		conf.Scopes = template.Scopes
	}
	return oauthConfigs, nil
}

func (s *Service) HandleOauth(ctx context.Context, provider string, code string) (models.User, error) {
	conf, ok := s.OAuthConfigs[provider]
	if !ok {
		return models.User{}, fmt.Errorf("unsupported provider: %s", provider)
	}
	api, ok := s.OAuthAPIs[provider]
	if !ok {
		return models.User{}, fmt.Errorf("unsupported provider: %s", provider)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("oauth code exchange failed")
		return models.User{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.URL, nil)
	if err != nil {
		return models.User{}, err
	}
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}

	resp, err := conf.Client(ctx, tok).Do(req)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("userinfo request failed")
		return models.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.User{}, fmt.Errorf("userinfo request failed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.User{}, err
	}
	return parseUser(body, provider)
}

func parseUser(jsonData []byte, provider string) (models.User, error) {
	u := models.User{Provider: provider}

	switch provider {
	case "github":
		var gh gitHubUser
		if err := json.Unmarshal(jsonData, &gh); err != nil {
			return models.User{}, err
		}
		if gh.ID == 0 {
			return models.User{}, fmt.Errorf("github userinfo missing id")
		}
		u.ProviderId = strconv.Itoa(gh.ID)
		u.Email = gh.Email
		u.Name = gh.Name
		if u.Name == "" {
			u.Name = gh.Login
		}
	case "google":
		var g googleUser
		if err := json.Unmarshal(jsonData, &g); err != nil {
			return models.User{}, err
		}
		if g.Sub == "" {
			return models.User{}, fmt.Errorf("google userinfo missing sub")
		}
		u.ProviderId = g.Sub
		u.Email = g.Email
		u.Name = g.Name
		if u.Name == "" {
			u.Name = g.Email
		}
	default:
		return models.User{}, fmt.Errorf("unsupported provider: %s", provider)
	}

	return u, nil
}

// Login signs in with an OAuth authorization code, creating the account
// on first use.
func (s *Service) Login(ctx context.Context, provider, code string) (models.User, models.Session, error) {
	user, err := s.HandleOauth(ctx, provider, code)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("oauth failed: %w", err)
	}

	stored, _, err := s.Store.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("create user failed: %w", err)
	}

	session, err := s.newSession(stored)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return stored, session, nil
}
