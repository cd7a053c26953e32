package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul/authgate/internal/domain"
	"github.com/haneul/authgate/internal/handler"
	"github.com/haneul/authgate/internal/service"
)

const testFrontendURL = "http://front.example.com"

// newAppFixture wires the full route table with in-memory collaborators.
func newAppFixture(t *testing.T, provider service.OAuthProvider, initialAdminEmail string) *handlerFixture {
	t.Helper()

	e := newTestEcho()
	codec := newTestCodec()
	store := newFakeUserStore()
	calc := newFakeCalcStore()
	collector := newTestCollector()
	resolver := service.NewIdentityResolver(store, initialAdminEmail)

	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(provider, resolver, store, codec, collector, handler.AuthConfig{
			FrontendURL: testFrontendURL,
		}),
		Verify:     handler.NewVerifyHandler(codec, collector),
		Admin:      handler.NewAdminHandler(store, auditStore{store}),
		Calculator: handler.NewCalculatorHandler(calc),
		Health:     handler.NewHealthHandler(fakePinger{}),
	}
	handler.Register(e, handlers, codec, nil)

	return &handlerFixture{e: e, codec: codec, store: store, calc: calc}
}

func callback(f *handlerFixture) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, "/auth/google/callback?state=xyz&code=abc", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	})
}

func authCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == handler.AuthCookieName {
			return c
		}
	}
	return nil
}

func TestGoogleRedirect(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")

	rec := f.do(http.MethodGet, "/auth/google", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "accounts.google.com")

	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.NotEmpty(t, state.Value)
}

func TestCallbackMintsTokenAndRedirectsPending(t *testing.T) {
	ident := service.ProviderIdentity{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-123",
		Email:      "new@example.com",
		Name:       "New User",
	}
	f := newAppFixture(t, &fakeProvider{identity: &ident}, "")

	rec := callback(f)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/?status=pending", rec.Header().Get("Location"))

	cookie := authCookie(t, rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(f.codec.TTL().Seconds()), cookie.MaxAge)

	claims, err := f.codec.Decode(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", claims.Email)
	assert.Equal(t, domain.StatusPending, claims.Status)
}

func TestCallbackRedirectsApprovedToRoot(t *testing.T) {
	ident := service.ProviderIdentity{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-admin",
		Email:      "admin@example.com",
		Name:       "Admin",
	}
	f := newAppFixture(t, &fakeProvider{identity: &ident}, "admin@example.com")

	rec := callback(f)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/", rec.Header().Get("Location"))
}

func TestCallbackRedirectsRejectedWithFlag(t *testing.T) {
	ident := service.ProviderIdentity{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-9",
		Email:      "rejected@example.com",
	}
	f := newAppFixture(t, &fakeProvider{identity: &ident}, "")

	// The user logged in before and was rejected by an admin.
	rejected := domain.User{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-9",
		Email:      "rejected@example.com",
		Role:       domain.RoleUser,
		Status:     domain.StatusRejected,
	}
	f.store.add(rejected)

	rec := callback(f)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/?status=rejected", rec.Header().Get("Location"))
}

func TestCallbackUnknownStatusNeverLandsOnApprovedPath(t *testing.T) {
	ident := service.ProviderIdentity{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-9",
		Email:      "odd@example.com",
	}
	f := newAppFixture(t, &fakeProvider{identity: &ident}, "")

	odd := domain.User{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-9",
		Email:      "odd@example.com",
		Role:       domain.RoleUser,
		Status:     domain.Status("suspended"),
	}
	f.store.add(odd)

	rec := callback(f)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/?status=pending", rec.Header().Get("Location"))
}

func TestCallbackFailsWithoutState(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")

	rec := f.do(http.MethodGet, "/auth/google/callback?code=abc", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/failure", rec.Header().Get("Location"))
	assert.Nil(t, authCookie(t, rec))
}

func TestCallbackFailsOnExchangeError(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{err: fmt.Errorf("provider unavailable")}, "")

	rec := callback(f)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/failure", rec.Header().Get("Location"))
	assert.Nil(t, authCookie(t, rec))
	assert.Empty(t, f.store.users)
}

func TestCallbackFailsWhenIdentityHasNoEmail(t *testing.T) {
	ident := service.ProviderIdentity{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: "google-123",
	}
	f := newAppFixture(t, &fakeProvider{identity: &ident}, "")

	rec := callback(f)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/failure", rec.Header().Get("Location"))
	assert.Empty(t, f.store.users)
}

func TestFailureEndpoint(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")

	rec := f.do(http.MethodGet, "/auth/failure", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := requireEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "AUTH_FAILED", errObj["code"])
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")

	rec := f.do(http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := authCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestMeReturnsStoredProfile(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")
	user := f.store.add(*approvedUser(0, domain.RoleUser))
	tok := f.mint(t, user)

	rec := f.do(http.MethodGet, "/auth/me", withCookie(tok))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := requireEnvelope(t, rec)
	data := body["data"].(map[string]any)
	profile := data["user"].(map[string]any)
	assert.Equal(t, user.Email, profile["email"])
	// The store record carries fields the token does not.
	assert.Contains(t, profile, "provider_id")
}

func TestMeWhenUserVanishedFromStore(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")
	tok := f.mint(t, approvedUser(99, domain.RoleUser))

	rec := f.do(http.MethodGet, "/auth/me", withCookie(tok))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusReportsAuthenticated(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")
	user := f.store.add(*approvedUser(0, domain.RoleUser))
	tok := f.mint(t, user)

	rec := f.do(http.MethodGet, "/auth/status", withCookie(tok))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := requireEnvelope(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["authenticated"])
}

func TestStatusWithoutSession(t *testing.T) {
	f := newAppFixture(t, &fakeProvider{}, "")

	rec := f.do(http.MethodGet, "/auth/status", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
