// Package service implements authentication flows: sign in, token
// refresh with rotation, and current-user lookup.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medicrm_backend/internal/auth/password"
	"medicrm_backend/internal/auth/repository"
	"medicrm_backend/internal/auth/token"
	"medicrm_backend/internal/auth/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/logger"
)

const refreshTokenBytes = 48

// Service handles authentication.
type Service struct {
	repo repository.Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

// New creates a new auth service.
func New(repo repository.Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// SignIn verifies credentials and issues a token pair.
func (s *Service) SignIn(ctx context.Context, req transport.SignInRequest) (transport.TokenPairResponse, error) {
	email := strings.TrimSpace(req.Email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			s.log.AuthEvent("sign_in", email, false, "unknown email")
			return transport.TokenPairResponse{}, apperr.Unauthorized("invalid credentials")
		}
		return transport.TokenPairResponse{}, err
	}

	if err := password.Compare(user.PasswordHash, req.Password); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return transport.TokenPairResponse{}, apperr.Unauthorized("invalid credentials")
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued. A revoked or expired token is rejected.
func (s *Service) Refresh(ctx context.Context, rawToken string) (transport.TokenPairResponse, error) {
	hash := token.HashSHA256(rawToken)

	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return transport.TokenPairResponse{}, apperr.Unauthorized("invalid refresh token")
		}
		return transport.TokenPairResponse{}, err
	}

	if time.Now().After(expiresAt) {
		return transport.TokenPairResponse{}, apperr.Unauthorized("refresh token expired")
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return transport.TokenPairResponse{}, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return transport.TokenPairResponse{}, err
	}

	return s.issueTokens(ctx, user)
}

// SignOut revokes every active refresh token of the user.
func (s *Service) SignOut(ctx context.Context, userID uuid.UUID) error {
	return s.repo.RevokeAllRefreshTokens(ctx, userID)
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (transport.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (transport.TokenPairResponse, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return transport.TokenPairResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return transport.TokenPairResponse{}, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refreshToken), expiresAt); err != nil {
		return transport.TokenPairResponse{}, err
	}

	return transport.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.GetAccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *Service) signAccessToken(user repository.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       user.ID.String(),
		"type":      "access",
		"roles":     []string{user.Role},
		"tenant_id": user.TenantID.String(),
		"iat":       now.Unix(),
		"exp":       now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jwtToken.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func toUserResponse(user repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
