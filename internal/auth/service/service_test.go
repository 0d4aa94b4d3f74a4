package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medicrm_backend/internal/auth/password"
	"medicrm_backend/internal/auth/repository"
	"medicrm_backend/internal/auth/token"
	"medicrm_backend/internal/auth/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string        { return "test-access-secret" }
func (testConfig) GetJWTRefreshSecret() string       { return "test-refresh-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (testConfig) GetRefreshTokenTTL() time.Duration { return 24 * time.Hour }

type storedToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	revoked   bool
}

type fakeRepo struct {
	users  map[uuid.UUID]repository.User
	tokens map[string]*storedToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[uuid.UUID]repository.User),
		tokens: make(map[string]*storedToken),
	}
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeRepo) CreateUser(_ context.Context, tenantID uuid.UUID, name, email, passwordHash, role string) (repository.User, error) {
	u := repository.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.tokens[tokenHash] = &storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeRepo) GetRefreshToken(_ context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	st, ok := f.tokens[tokenHash]
	if !ok || st.revoked {
		return uuid.UUID{}, time.Time{}, apperr.NotFound("refresh token not found")
	}
	return st.userID, st.expiresAt, nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if st, ok := f.tokens[tokenHash]; ok {
		st.revoked = true
	}
	return nil
}

func (f *fakeRepo) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	for _, st := range f.tokens {
		if st.userID == userID {
			st.revoked = true
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, repository.User) {
	t.Helper()
	repo := newFakeRepo()
	hash, err := password.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := repo.CreateUser(context.Background(), uuid.New(), "Dra. Paula", "paula@clinica.com.br", hash, "admin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return New(repo, testConfig{}, logger.New("test")), repo, user
}

func TestSignInIssuesTokenPair(t *testing.T) {
	svc, _, user := newTestService(t)

	pair, err := svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "paula@clinica.com.br",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got access=%q refresh=%q", pair.AccessToken, pair.RefreshToken)
	}
	if pair.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, pair.User.ID)
	}

	parsed, err := jwt.Parse(pair.AccessToken, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-access-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("access token did not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.String() {
		t.Fatalf("expected sub %s, got %v", user.ID, claims["sub"])
	}
	if claims["type"] != "access" {
		t.Fatalf("expected type access, got %v", claims["type"])
	}
	if claims["tenant_id"] != user.TenantID.String() {
		t.Fatalf("expected tenant_id %s, got %v", user.TenantID, claims["tenant_id"])
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "paula@clinica.com.br",
		Password: "wrong password!!",
	})
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignInRejectsUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "nobody@clinica.com.br",
		Password: "correct horse battery",
	})
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	pair, err := svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "paula@clinica.com.br",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a new refresh token after rotation")
	}

	// The presented token must be dead after rotation.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected rotated token to be rejected, got %v", err)
	}

	// The new one still works.
	if _, err := svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	svc, repo, user := newTestService(t)

	raw, err := token.GenerateRandomToken(48)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	repo.tokens[token.HashSHA256(raw)] = &storedToken{
		userID:    user.ID,
		expiresAt: time.Now().Add(-time.Minute),
	}

	if _, err := svc.Refresh(context.Background(), raw); apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestSignOutRevokesAllSessions(t *testing.T) {
	svc, _, user := newTestService(t)

	first, err := svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "paula@clinica.com.br",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	second, err := svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "paula@clinica.com.br",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}

	if err := svc.SignOut(context.Background(), user.ID); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	for _, raw := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := svc.Refresh(context.Background(), raw); apperr.GetKind(err) != apperr.KindUnauthorized {
			t.Fatalf("expected revoked token to be rejected, got %v", err)
		}
	}
}
