package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/niju646/ReportSystem/internal/config"
	"github.com/niju646/ReportSystem/internal/model"
	"github.com/niju646/ReportSystem/internal/repository"
)

type memStore struct {
	rows      map[string]model.RefreshToken
	insertErr error
	findErr   error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]model.RefreshToken{}}
}

func (m *memStore) InsertRefreshToken(_ context.Context, row model.RefreshToken) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows[row.Token] = row
	return nil
}

func (m *memStore) FindLiveRefreshToken(_ context.Context, token string) (model.RefreshToken, error) {
	if m.findErr != nil {
		return model.RefreshToken{}, m.findErr
	}
	row, ok := m.rows[token]
	if !ok || !row.ExpiresAt.After(time.Now()) {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return row, nil
}

func (m *memStore) DeleteRefreshToken(_ context.Context, token string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, token)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "test-issuer",
		AccessTokenTTL: time.Minute,
		RefreshTTL:     time.Hour,
	}
}

func newTestService(store Store) *Service {
	return NewService(testConfig(), store, zap.NewNop().Sugar())
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(newMemStore())
	user := model.User{ID: 7, Role: model.RoleAdmin}

	token, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.UserID != 7 || claims.Role != "admin" {
		t.Fatalf("unexpected claims: id=%d role=%s", claims.UserID, claims.Role)
	}
}

func TestSigningContextIsolation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	user := model.User{ID: 3, Role: model.RoleTeacher}

	accessToken, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue access error: %v", err)
	}
	refreshToken, err := svc.IssueRefreshToken(context.Background(), user)
	if err != nil {
		t.Fatalf("issue refresh error: %v", err)
	}

	if _, err := svc.VerifyAccessToken(refreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token to fail access verification, got %v", err)
	}
	if _, err := svc.VerifyRefreshToken(context.Background(), accessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected access token to fail refresh verification, got %v", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	user := model.User{ID: 5, Role: model.RoleTeacher}

	token, err := svc.IssueRefreshToken(context.Background(), user)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(store.rows))
	}

	claims, err := svc.VerifyRefreshToken(context.Background(), token)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.UserID != 5 || claims.Role != "teacher" {
		t.Fatalf("unexpected claims: id=%d role=%s", claims.UserID, claims.Role)
	}

	if err := svc.RevokeRefreshToken(context.Background(), token); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	if _, err := svc.VerifyRefreshToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail verification, got %v", err)
	}

	// revocation is idempotent
	if err := svc.RevokeRefreshToken(context.Background(), token); err != nil {
		t.Fatalf("second revoke error: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected no rows after revocation, got %d", len(store.rows))
	}
}

func TestRevokeUnknownTokenIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	if err := svc.RevokeRefreshToken(context.Background(), "never-issued"); err != nil {
		t.Fatalf("expected no-op revoke, got %v", err)
	}
}

func TestVerifyRefreshRequiresLiveRow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	user := model.User{ID: 9, Role: model.RoleAdmin}

	token, err := svc.IssueRefreshToken(context.Background(), user)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	// expire the persisted row while the signature stays valid
	row := store.rows[token]
	row.ExpiresAt = time.Now().Add(-time.Minute)
	store.rows[token] = row

	if _, err := svc.VerifyRefreshToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired row to fail verification, got %v", err)
	}
}

func TestIssueRefreshTokenStorageFailure(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("connection refused")
	svc := newTestService(store)

	if _, err := svc.IssueRefreshToken(context.Background(), model.User{ID: 1, Role: model.RoleAdmin}); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected no row written on failure")
	}
}

func TestVerifyRefreshStorageFailure(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	token, err := svc.IssueRefreshToken(context.Background(), model.User{ID: 1, Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	store.findErr = errors.New("connection refused")
	if _, err := svc.VerifyRefreshToken(context.Background(), token); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
