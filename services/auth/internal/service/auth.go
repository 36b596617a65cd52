package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/cinetalk/cinetalk/pkg/events"
	"github.com/cinetalk/cinetalk/pkg/hash"
	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/tokens"
	"github.com/cinetalk/cinetalk/services/auth/internal/models"
	"github.com/cinetalk/cinetalk/services/auth/internal/repo"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")

	// ErrRefreshRejected covers every terminal refresh outcome; the
	// expired flavor wraps it so callers can match either level.
	ErrRefreshRejected = errors.New("refresh token rejected")
	ErrRefreshExpired  = fmt.Errorf("%w: expired", ErrRefreshRejected)
)

type AuthService struct {
	Repo       repo.GormRepo
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Events     *events.Producer
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

type RefreshResult struct {
	AccessToken string
	User        *models.User
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExists) {
			return nil, ErrUserExists
		}
		l.Error("register_error", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.FindUserByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			l.Warn("login_failed", "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	accessToken, refreshToken, err := s.issue(ctx, user)
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, err
	}

	// housekeeping: this user's already-expired sessions can go now
	if err := s.Repo.DeleteExpiredRefreshTokensForUser(ctx, user.ID, time.Now()); err != nil {
		l.Warn("expired_session_cleanup_failed", "error", err)
	}

	s.publish(ctx, events.TypeLogin, user)
	l.Info("login_successful", "user_id", user.ID)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// issue mints the token pair: a signed short-lived access token and an
// opaque long-lived refresh token persisted as a session row. The two
// values share no entropy; compromising one says nothing about the other.
func (s *AuthService) issue(ctx context.Context, user *models.User) (access, refresh string, err error) {
	access, err = tokens.Sign(user.ID.String(), user.Username, time.Now().Add(s.AccessTTL), s.Secret)
	if err != nil {
		return "", "", err
	}

	refresh, err = tokens.NewRefreshValue()
	if err != nil {
		return "", "", err
	}

	row := &models.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.RefreshTTL),
	}
	if err := s.Repo.CreateRefreshToken(ctx, row); err != nil {
		return "", "", fmt.Errorf("persist refresh token: %w", err)
	}
	return access, refresh, nil
}

// Rotate exchanges a refresh token for a new access token. The refresh
// token is not consumed: it stays valid until its own expiry or an
// explicit logout deletes it.
func (s *AuthService) Rotate(ctx context.Context, refreshValue string) (*RefreshResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	row, err := s.Repo.FindRefreshToken(ctx, refreshValue)
	if err != nil {
		if errors.Is(err, repo.ErrRefreshTokenNotFound) {
			return nil, ErrRefreshRejected
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if row.ExpiresAt.Before(time.Now()) {
		// the row is dead weight, collect it now rather than waiting
		// for the sweep
		if err := s.Repo.DeleteRefreshToken(ctx, refreshValue); err != nil {
			l.Warn("expired_refresh_delete_failed", "error", err)
		}
		return nil, ErrRefreshExpired
	}

	user, err := s.Repo.FindUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrRefreshRejected
		}
		return nil, fmt.Errorf("find refresh owner: %w", err)
	}

	access, err := tokens.Sign(user.ID.String(), user.Username, time.Now().Add(s.AccessTTL), s.Secret)
	if err != nil {
		return nil, err
	}

	l.Info("access_token_rotated", "user_id", user.ID)
	return &RefreshResult{AccessToken: access, User: user}, nil
}

// RevokeAccess writes the access token into the revocation ledger.
// Best effort: a token too mangled to decode is simply skipped, since
// the surrounding logout must go through regardless.
func (s *AuthService) RevokeAccess(ctx context.Context, accessToken string) {
	l := logging.FromContext(ctx).With("svc", "auth.revoke")

	claims, err := tokens.DecodeLoose(accessToken, s.Secret)
	if err != nil {
		l.Warn("revoke_skipped", "reason", "undecodable token")
		return
	}
	if err := s.Repo.RevokeToken(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
		l.Error("revoke_failed", "error", err)
	}
}

// Logout revokes the presented access token and deletes the refresh row
// if one was provided. It never fails from the caller's perspective;
// the client discards its tokens no matter what happens here.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshValue string) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	s.RevokeAccess(ctx, accessToken)

	if refreshValue != "" {
		if err := s.Repo.DeleteRefreshToken(ctx, refreshValue); err != nil {
			l.Error("refresh_delete_failed", "error", err)
		}
	}

	if claims, err := tokens.DecodeLoose(accessToken, s.Secret); err == nil {
		s.publish(ctx, events.TypeLogout, &models.User{
			ID:       uuidOrNil(claims.UserID),
			Username: claims.Username,
		})
	}
	l.Info("logout_processed")
}

// LogoutAll ends every session of the token's owner: all refresh rows
// go, atomically, and the presented access token lands in the ledger.
// Other still-unexpired access tokens of the same user keep working
// until they lapse; that staleness window is accepted.
func (s *AuthService) LogoutAll(ctx context.Context, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout_all")

	claims, err := tokens.DecodeLoose(accessToken, s.Secret)
	if err != nil {
		return tokens.ErrMalformed
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return tokens.ErrMalformed
	}

	if err := s.Repo.RevokeAllForUser(ctx, userID, accessToken, claims.ExpiresAt.Time); err != nil {
		l.Error("logout_all_failed", "error", err)
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	s.publish(ctx, events.TypeLogoutAll, &models.User{ID: userID, Username: claims.Username})
	l.Info("logout_all_processed", "user_id", userID)
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	if s.Events == nil {
		return
	}
	l := logging.FromContext(ctx)
	err := s.Events.Publish(ctx, events.AuthEvent{
		Type:     eventType,
		UserID:   user.ID.String(),
		Username: user.Username,
		At:       time.Now(),
	})
	if err != nil {
		// the event bus must never break the auth flow
		l.Warn("event_publish_failed", "type", eventType, "error", err)
	}
}

func validateRegistration(username, email, password string) error {
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}

func uuidOrNil(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
