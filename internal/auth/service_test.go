package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/haulpoints/haulpoints-backend/pkg/auth"
	"github.com/haulpoints/haulpoints-backend/pkg/auth/session"
	"github.com/haulpoints/haulpoints-backend/pkg/config"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail    map[string]*models.User
	lastLogins map[uuid.UUID]time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail:    map[string]*models.User{},
		lastLogins: map[uuid.UUID]time.Time{},
	}
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogins[id] = at
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := session.NewAccessID()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "haulpoints",
		ExpirationMinutes: 15,
	}
}

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string, role enums.UserRole, orgID *uuid.UUID, active bool) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: testHash(t, password),
		FirstName:    "Dana",
		LastName:     "Hauler",
		Role:         role,
		OrgID:        orgID,
		IsActive:     active,
	}
	repo.byEmail[email] = user
	return user
}

func newAuthTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginSuccess(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	svc := newAuthTestService(t, repo, sessions)
	orgID := uuid.New()
	user := seedUser(t, repo, "driver@example.com", "hunter2secret", enums.UserRoleDriver, &orgID, true)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Driver@Example.COM ",
		Password: "hunter2secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected token pair")
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if _, ok := repo.lastLogins[user.ID]; !ok {
		t.Fatalf("login must record last_login_at")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleDriver {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.OrgID == nil || *claims.OrgID != orgID {
		t.Fatalf("expected org claim %s, got %v", orgID, claims.OrgID)
	}
	if len(sessions.generated) != 1 || sessions.generated[0] != claims.ID {
		t.Fatalf("session must be keyed by the token jti")
	}
}

func TestLoginRejections(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthTestService(t, repo, &stubSessionManager{})
	orgID := uuid.New()
	seedUser(t, repo, "driver@example.com", "hunter2secret", enums.UserRoleDriver, &orgID, true)
	seedUser(t, repo, "inactive@example.com", "hunter2secret", enums.UserRoleDriver, &orgID, false)
	seedUser(t, repo, "orphan@example.com", "hunter2secret", enums.UserRoleSponsor, nil, true)

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{name: "unknown email", req: LoginRequest{Email: "nobody@example.com", Password: "hunter2secret"}},
		{name: "wrong password", req: LoginRequest{Email: "driver@example.com", Password: "wrong"}},
		{name: "inactive user", req: LoginRequest{Email: "inactive@example.com", Password: "hunter2secret"}},
		{name: "no organization", req: LoginRequest{Email: "orphan@example.com", Password: "hunter2secret"}},
		{name: "blank email", req: LoginRequest{Password: "hunter2secret"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected %s, got %s (err=%v)", pkgerrors.CodeUnauthorized, code, err)
			}
		})
	}
}

func TestAdminLoginWithoutOrg(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthTestService(t, repo, &stubSessionManager{})
	seedUser(t, repo, "admin@example.com", "hunter2secret", enums.UserRoleAdmin, nil, true)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "admin@example.com",
		Password: "hunter2secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin || claims.OrgID != nil {
		t.Fatalf("unexpected admin claims: %+v", claims)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	svc := newAuthTestService(t, repo, sessions)
	orgID := uuid.New()
	seedUser(t, repo, "driver@example.com", "hunter2secret", enums.UserRoleDriver, &orgID, true)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "driver@example.com",
		Password: "hunter2secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Fatalf("refresh must mint a new access token")
	}

	oldClaims, _ := pkgAuth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	newClaims, err := pkgAuth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if newClaims.ID == oldClaims.ID {
		t.Fatalf("refresh must rotate the jti")
	}
	if newClaims.UserID != oldClaims.UserID || newClaims.Role != oldClaims.Role {
		t.Fatalf("identity claims must survive refresh")
	}
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newAuthTestService(t, repo, sessions)
	orgID := uuid.New()
	seedUser(t, repo, "driver@example.com", "hunter2secret", enums.UserRoleDriver, &orgID, true)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "driver@example.com",
		Password: "hunter2secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stolen",
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeUnauthorized, code)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "garbage",
		RefreshToken: "whatever",
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeUnauthorized {
		t.Fatalf("garbage token: expected %s, got %s", pkgerrors.CodeUnauthorized, code)
	}
}

func TestLogout(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newAuthTestService(t, newStubUserRepo(), sessions)

	if err := svc.Logout(context.Background(), "access-id"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-id" {
		t.Fatalf("expected revoked session, got %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeValidation, code)
	}
}

func TestRotateErrorsThatAreNotAuthFailures(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{rotateErr: errors.New("redis down")}
	svc := newAuthTestService(t, repo, sessions)
	orgID := uuid.New()
	seedUser(t, repo, "driver@example.com", "hunter2secret", enums.UserRoleDriver, &orgID, true)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "driver@example.com",
		Password: "hunter2secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeInternal {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeInternal, code)
	}
}
