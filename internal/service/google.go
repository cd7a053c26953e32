package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/haneul/authgate/internal/domain"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// pictureSizeSuffix matches the size suffix of Google profile picture URLs.
var pictureSizeSuffix = regexp.MustCompile(`=s\d+-c$`)

// OAuthProvider is the external identity provider collaborator. The
// abstraction keeps a seam for other providers and for handler tests.
type OAuthProvider interface {
	// AuthCodeURL returns the provider's consent page URL for the given state.
	AuthCodeURL(state string) string
	// Exchange validates the authorization code and returns a verified
	// identity assertion.
	Exchange(ctx context.Context, code string) (*ProviderIdentity, error)
}

// GoogleConfig holds Google OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// UserInfoURL may be overridden in tests.
	UserInfoURL string
}

// GoogleProvider implements OAuthProvider against Google OAuth 2.0.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.CallbackURL,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthCodeURL returns the Google consent page URL.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token and fetches the
// user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*ProviderIdentity, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}

	info, err := p.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch google user info: %w", err)
	}

	return &ProviderIdentity{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: info.ID,
		Email:      info.Email,
		Name:       info.Name,
		PictureURL: upscalePicture(info.Picture),
	}, nil
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// upscalePicture requests a 400px variant of Google-hosted profile pictures.
func upscalePicture(url string) string {
	if url == "" {
		return ""
	}
	return pictureSizeSuffix.ReplaceAllString(url, "=s400-c")
}
