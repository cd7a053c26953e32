package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/haneul/authgate/internal/domain"
	"github.com/haneul/authgate/internal/handler"
	"github.com/haneul/authgate/internal/metrics"
	"github.com/haneul/authgate/internal/service"
	"github.com/haneul/authgate/internal/token"
)

const testSecret = "test-secret-0123456789-0123456789"

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	return e
}

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

// fakeUserStore is an in-memory UserStore, AdminUserStore and AuditStore.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	audit  []domain.AuditEntry
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[int64]*domain.User{}}
}

func (s *fakeUserStore) add(user domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextID
	s.nextID++
	u := user
	s.users[u.ID] = &u
	return &u
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (s *fakeUserStore) FindByProviderID(_ context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Provider == provider && u.ProviderID == providerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeUserStore) Create(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (u.Provider == user.Provider && u.ProviderID == user.ProviderID) || u.Email == user.Email {
			return nil, domain.ErrConflict
		}
	}
	user.ID = s.nextID
	s.nextID++
	u := user
	s.users[u.ID] = &u
	copied := u
	return &copied, nil
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id int64, name, pictureURL *string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Name = name
	u.PictureURL = pictureURL
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) SetStatus(ctx context.Context, id int64, status domain.Status, adminID int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Status != domain.StatusPending {
		return nil, domain.ErrConflict
	}
	u.Status = status
	u.ApprovedBy = &adminID
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) List(_ context.Context, status *domain.Status) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, u := range s.users {
		if status == nil || u.Status == *status {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeUserStore) ListPending(ctx context.Context) ([]domain.User, error) {
	pending := domain.StatusPending
	return s.List(ctx, &pending)
}

func (s *fakeUserStore) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[domain.Status]int{}
	for _, u := range s.users {
		counts[u.Status]++
	}
	return counts, nil
}

func (s *fakeUserStore) Insert(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *fakeUserStore) AuditList(_ context.Context, limit, offset int) ([]domain.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditRecord
	for i := len(s.audit) - 1; i >= 0; i-- {
		out = append(out, domain.AuditRecord{AuditEntry: s.audit[i]})
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// auditStore adapts fakeUserStore to the AuditStore interface, whose List
// signature collides with the user listing.
type auditStore struct {
	*fakeUserStore
}

func (s auditStore) List(ctx context.Context, limit, offset int) ([]domain.AuditRecord, error) {
	return s.AuditList(ctx, limit, offset)
}

// fakeCalcStore is an in-memory CalculatorStore.
type fakeCalcStore struct {
	mu   sync.Mutex
	rows map[int64]*domain.CalculatorData
}

func newFakeCalcStore() *fakeCalcStore {
	return &fakeCalcStore{rows: map[int64]*domain.CalculatorData{}}
}

func (s *fakeCalcStore) GetFormData(_ context.Context, userID int64) (*domain.CalculatorData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[userID]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (s *fakeCalcStore) UpsertFormData(_ context.Context, userID int64, formData types.JSONText) (*domain.CalculatorData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[userID]
	if !ok {
		row = &domain.CalculatorData{ID: int64(len(s.rows) + 1), UserID: userID}
		s.rows[userID] = row
	}
	row.FormData = formData
	copied := *row
	return &copied, nil
}

// fakePinger is a canned database Pinger.
type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error {
	return p.err
}

// fakeProvider is a canned OAuthProvider.
type fakeProvider struct {
	identity *service.ProviderIdentity
	err      error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (*service.ProviderIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.identity == nil {
		return nil, fmt.Errorf("no identity configured")
	}
	copied := *p.identity
	return &copied, nil
}

func approvedUser(id int64, role domain.Role) *domain.User {
	name := "Test User"
	return &domain.User{
		ID:         id,
		Provider:   domain.AuthProviderGoogle,
		ProviderID: fmt.Sprintf("google-%d", id),
		Email:      fmt.Sprintf("user%d@example.com", id),
		Name:       &name,
		Role:       role,
		Status:     domain.StatusApproved,
	}
}

func pendingUser(id int64, role domain.Role) *domain.User {
	u := approvedUser(id, role)
	u.Status = domain.StatusPending
	return u
}

func newTestCodec(opts ...token.Option) *token.Codec {
	return token.NewCodec(testSecret, opts...)
}

// handlerFixture bundles a wired echo instance for request-level tests.
type handlerFixture struct {
	e     *echo.Echo
	codec *token.Codec
	store *fakeUserStore
	calc  *fakeCalcStore
}

func (f *handlerFixture) do(method, target string, modify func(*http.Request)) *httptest.ResponseRecorder {
	return f.doBody(method, target, nil, modify)
}

func (f *handlerFixture) doBody(method, target string, body io.Reader, modify func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if modify != nil {
		modify(req)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) mint(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := f.codec.Encode(u)
	require.NoError(t, err)
	return tok
}

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
