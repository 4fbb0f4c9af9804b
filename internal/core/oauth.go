package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/config"
	"github.com/kilohana/platform/internal/model"
)

// OAuthProfile is the provider-side identity returned by the userinfo
// endpoint.
type OAuthProfile struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// OAuthFlow is the surface the HTTP handlers depend on; it exists so the
// provider round-trips can be stubbed in tests.
type OAuthFlow interface {
	Start() (state, verifier, authURL string, err error)
	Exchange(ctx context.Context, code, verifier string) (*OAuthProfile, error)
	ResolveAccount(ctx context.Context, profile *OAuthProfile) (*model.Account, error)
}

// OAuthService drives the authorization-code exchange with PKCE and links
// provider identities to local accounts.
type OAuthService struct {
	db         DB
	provider   config.OAuthProvider
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewOAuthService(db DB, provider config.OAuthProvider, logger zerolog.Logger) *OAuthService {
	return &OAuthService{
		db:         db,
		provider:   provider,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Start generates the CSRF state and PKCE verifier and builds the provider
// authorization URL carrying the derived S256 code challenge. The caller
// stores state and verifier in short-lived cookies.
func (s *OAuthService) Start() (state, verifier, authURL string, err error) {
	state, err = randomURLToken()
	if err != nil {
		return "", "", "", err
	}
	verifier, err = randomURLToken()
	if err != nil {
		return "", "", "", err
	}

	challenge := sha256.Sum256([]byte(verifier))

	params := url.Values{
		"client_id":             {s.provider.ClientID},
		"redirect_uri":          {s.provider.RedirectURL},
		"response_type":         {"code"},
		"scope":                 {strings.Join(s.provider.Scopes, " ")},
		"state":                 {state},
		"code_challenge":        {base64.RawURLEncoding.EncodeToString(challenge[:])},
		"code_challenge_method": {"S256"},
	}

	return state, verifier, s.provider.AuthURL + "?" + params.Encode(), nil
}

// Exchange trades the authorization code and PKCE verifier for the provider
// profile via a server-to-server call.
func (s *OAuthService) Exchange(ctx context.Context, code, verifier string) (*OAuthProfile, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {s.provider.RedirectURL},
		"client_id":     {s.provider.ClientID},
		"client_secret": {s.provider.ClientSecret},
		"code_verifier": {verifier},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("empty access token")
	}

	return s.fetchProfile(ctx, tok.AccessToken)
}

func (s *OAuthService) fetchProfile(ctx context.Context, accessToken string) (*OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.provider.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var profile OAuthProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Subject == "" {
		return nil, fmt.Errorf("missing sub claim")
	}

	return &profile, nil
}

// ResolveAccount maps a provider profile to a local account. First match wins:
// an existing link for (provider, subject); else an existing account with the
// profile email, which gets a new link; else a brand-new account plus link.
func (s *OAuthService) ResolveAccount(ctx context.Context, profile *OAuthProfile) (*model.Account, error) {
	var accountID string
	err := s.db.QueryRow(ctx,
		`SELECT account_id FROM oauth_links WHERE provider = $1 AND provider_subject = $2`,
		s.provider.Name, profile.Subject,
	).Scan(&accountID)
	if err == nil {
		return s.accountByID(ctx, accountID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup oauth link: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT id FROM accounts WHERE email = $1`, profile.Email).Scan(&accountID)
	if err == nil {
		if err := s.insertLink(ctx, accountID, profile); err != nil {
			return nil, err
		}
		s.logger.Info().Str("provider", s.provider.Name).Msg("linked oauth identity to existing account")
		return s.accountByID(ctx, accountID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup account by email: %w", err)
	}

	username, err := s.availableUsername(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	a := model.Account{
		ID:         uuid.New().String(),
		Email:      profile.Email,
		Username:   username,
		SystemRole: model.SystemRoleUser,
	}
	// OAuth-only accounts have no password; the empty hash never verifies.
	err = s.db.QueryRow(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, system_role)
		 VALUES ($1, $2, $3, '', $4)
		 RETURNING created_at`,
		a.ID, a.Email, a.Username, a.SystemRole,
	).Scan(&a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert oauth account: %w", err)
	}

	if err := s.insertLink(ctx, a.ID, profile); err != nil {
		return nil, err
	}
	s.logger.Info().Str("provider", s.provider.Name).Msg("created new account from oauth identity")

	return &a, nil
}

func (s *OAuthService) insertLink(ctx context.Context, accountID string, profile *OAuthProfile) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO oauth_links (id, account_id, provider, provider_subject, email)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), accountID, s.provider.Name, profile.Subject, profile.Email)
	if err != nil {
		return fmt.Errorf("insert oauth link: %w", err)
	}
	return nil
}

func (s *OAuthService) accountByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, email, username, system_role, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.Username, &a.SystemRole, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &a, nil
}

// availableUsername derives a username from the email local part. On
// collision a random 4-digit suffix is tried a few times before falling back
// to a uuid fragment, which cannot realistically collide.
func (s *OAuthService) availableUsername(ctx context.Context, email string) (string, error) {
	base := strings.SplitN(email, "@", 2)[0]

	candidate := base
	for attempt := 0; attempt < 4; attempt++ {
		taken, err := s.usernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, 1000+mrand.IntN(9000))
	}

	return "user_" + uuid.New().String()[:8], nil
}

func (s *OAuthService) usernameTaken(ctx context.Context, username string) (bool, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM accounts WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return true, nil
}

func randomURLToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
