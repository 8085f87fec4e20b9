package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/niju646/ReportSystem/internal/auth"
	"github.com/niju646/ReportSystem/internal/config"
	"github.com/niju646/ReportSystem/internal/crypto"
	"github.com/niju646/ReportSystem/internal/model"
	"github.com/niju646/ReportSystem/internal/repository"
)

var (
	// ErrInvalidToken covers malformed, forged, expired and revoked
	// tokens alike. Callers must not learn which; the cause is logged
	// at debug level only.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrStorage indicates the refresh-token store failed.
	ErrStorage = errors.New("token storage failure")
)

// Store is the slice of the credential store the token service owns.
type Store interface {
	InsertRefreshToken(ctx context.Context, token model.RefreshToken) error
	FindLiveRefreshToken(ctx context.Context, token string) (model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type Service struct {
	store      Store
	accessKey  []byte
	refreshKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *zap.SugaredLogger
}

func NewService(cfg config.Config, store Store, log *zap.SugaredLogger) *Service {
	return &Service{
		store:      store,
		accessKey:  crypto.DeriveKey(cfg.JWTSecret, "access-token"),
		refreshKey: crypto.DeriveKey(cfg.JWTSecret, "refresh-token"),
		issuer:     cfg.JWTIssuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTTL,
		log:        log,
	}
}

func (s *Service) IssueAccessToken(user model.User) (string, error) {
	return auth.NewSignedToken(s.accessKey, s.issuer, s.accessTTL, auth.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
	})
}

// IssueRefreshToken signs a refresh token and persists its row. Either
// both happen or neither: a persistence failure returns ErrStorage and
// the signed value is discarded.
func (s *Service) IssueRefreshToken(ctx context.Context, user model.User) (string, error) {
	signed, err := auth.NewSignedToken(s.refreshKey, s.issuer, s.refreshTTL, auth.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
	})
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	row := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     signed,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.store.InsertRefreshToken(ctx, row); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return signed, nil
}

func (s *Service) VerifyAccessToken(tokenString string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(s.accessKey, tokenString)
	if err != nil {
		s.log.Debugw("access token rejected", "reason", err)
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken requires both a valid signature under the refresh
// signing context and a live persisted row for the exact token value.
func (s *Service) VerifyRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(s.refreshKey, tokenString)
	if err != nil {
		s.log.Debugw("refresh token rejected", "reason", err)
		return nil, ErrInvalidToken
	}

	if _, err := s.store.FindLiveRefreshToken(ctx, tokenString); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debugw("refresh token rejected", "reason", "no live row", "user_id", claims.UserID)
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return claims, nil
}

// RevokeRefreshToken deletes the persisted row. Revoking a token that was
// never issued, or revoking twice, is not an error.
func (s *Service) RevokeRefreshToken(ctx context.Context, tokenString string) error {
	if err := s.store.DeleteRefreshToken(ctx, tokenString); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
