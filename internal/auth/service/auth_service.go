package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imelapp/auth-server/internal/auth/repository"
	"github.com/imelapp/auth-server/internal/common/clock"
	commoncrypto "github.com/imelapp/auth-server/internal/common/crypto"
	commonerrors "github.com/imelapp/auth-server/internal/common/errors"
	"github.com/imelapp/auth-server/internal/common/logger"
)

type AuthService struct {
	repo             repository.UserRepository
	hasher           commoncrypto.PasswordHasher
	issuer           *TokenIssuer
	clock            clock.Clock
	log              *logger.Logger
	lockoutThreshold int
	lockoutDuration  time.Duration
}

func NewAuthService(
	repo repository.UserRepository,
	hasher commoncrypto.PasswordHasher,
	issuer *TokenIssuer,
	clk clock.Clock,
	lockoutThreshold int,
	lockoutDuration time.Duration,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		repo:             repo,
		hasher:           hasher,
		issuer:           issuer,
		clock:            clk,
		log:              log,
		lockoutThreshold: lockoutThreshold,
		lockoutDuration:  lockoutDuration,
	}
}

type LoginInput struct {
	Username string
	Password string
}

type LoginResult struct {
	Token string
}

// Login runs the lockout state machine around credential verification.
// Both an unknown username and a wrong password collapse to
// ErrInvalidCredentials. Every attempt against a known account persists
// an update to its counter fields.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "login_attempt",
	}).Info("login attempt")

	user, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "login_user_not_found",
			}).Warn("login failed: not found")
			incrementLoginsFailed()
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	now := s.clock.Now()

	if user.Locked(now) {
		minutes := remainingMinutes(user.LockoutRemaining(now))
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"user_id":  user.ID,
			"action":   "login_account_locked",
		}).Warnf("login failed: account locked for another %d minute(s)", minutes)
		incrementLoginsRejectedLocked()
		return LoginResult{}, ErrAccountLocked.WithMessage(
			fmt.Sprintf("account is temporarily locked, try again in %d minute(s)", minutes),
		)
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		attempts, _, recErr := s.repo.RecordFailedAttempt(ctx, user.ID, s.lockoutThreshold, now.Add(s.lockoutDuration))
		if recErr != nil && !errors.Is(recErr, repository.ErrUserNotFound) {
			return LoginResult{}, commonerrors.ErrDatabaseError.WithCause(recErr)
		}

		fields := logger.Fields{
			"username": input.Username,
			"user_id":  user.ID,
			"attempts": attempts,
			"action":   "login_invalid_password",
		}
		if attempts == s.lockoutThreshold {
			fields["action"] = "login_account_locked_out"
			incrementAccountLockouts()
		}
		s.log.WithFields(ctx, fields).Warn("login failed: invalid password")

		incrementLoginsFailed()
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.repo.ResetFailedAttempts(ctx, user.ID); err != nil {
		return LoginResult{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	token, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"user_id":  user.ID,
			"action":   "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		return LoginResult{}, commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  user.ID,
		"action":   "login_success",
	}).Info("login success")

	incrementLoginsSucceeded()

	return LoginResult{Token: token}, nil
}

// Logout is a client-side discard signal. No token state exists server-side,
// so there is nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, username string) {
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "logout",
	}).Info("logout acknowledged")
}

func remainingMinutes(remaining time.Duration) int {
	minutes := int(remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
