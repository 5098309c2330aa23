package service

import (
	"context"
	"errors"

	"github.com/imelapp/auth-server/internal/auth/domain"
	"github.com/imelapp/auth-server/internal/auth/repository"
	commoncrypto "github.com/imelapp/auth-server/internal/common/crypto"
	commonerrors "github.com/imelapp/auth-server/internal/common/errors"
	"github.com/imelapp/auth-server/internal/common/logger"
)

// UserService owns the lifecycle operations on the user registry.
// Role checks happen at the transport layer; by the time these methods
// run the caller has already passed the authorization gate.
type UserService struct {
	repo   repository.UserRepository
	hasher commoncrypto.PasswordHasher
	log    *logger.Logger
}

func NewUserService(
	repo repository.UserRepository,
	hasher commoncrypto.PasswordHasher,
	log *logger.Logger,
) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		log:    log,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsActive bool
	Role     int
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	role, ok := domain.ParseRole(input.Role)
	if !ok {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"role":     input.Role,
			"action":   "register_invalid_role",
		}).Warn("register failed: invalid role")
		return domain.User{}, ErrInvalidRole
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return domain.User{}, commonerrors.ErrInternalError.WithCause(err)
	}

	user := domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		IsActive:     input.IsActive,
		Role:         role,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "register_duplicate",
			}).Warn("register failed: duplicate username or email")
			return domain.User{}, ErrDuplicateUser
		}
		return domain.User{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": created.Username,
		"user_id":  created.ID,
		"action":   "register_success",
	}).Info("register success")

	incrementUsersRegistered()

	return created, nil
}

type EditInput struct {
	Username string
	Email    string
	Password string
	IsActive *bool
	Role     *int
}

// Edit applies a partial update: only supplied, non-empty fields change.
// An out-of-range role value leaves the role unchanged rather than
// failing the whole update, unlike register which rejects it outright.
func (s *UserService) Edit(ctx context.Context, id int64, input EditInput) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return commonerrors.ErrDatabaseError.WithCause(err)
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.Password != "" {
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return commonerrors.ErrInternalError.WithCause(err)
		}
		user.PasswordHash = hash
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Role != nil {
		if role, ok := domain.ParseRole(*input.Role); ok {
			user.Role = role
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateUser):
			return ErrDuplicateUser
		default:
			return commonerrors.ErrDatabaseError.WithCause(err)
		}
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_updated",
	}).Info("user updated")

	return nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return commonerrors.ErrDatabaseError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_deleted",
	}).Info("user deleted")

	incrementUsersDeleted()

	return nil
}

// List returns all accounts as hash-free projections.
func (s *UserService) List(ctx context.Context) ([]domain.Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, commonerrors.ErrDatabaseError.WithCause(err)
	}

	profiles := make([]domain.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Profile())
	}

	return profiles, nil
}

// GetProfile resolves the caller's own account from their subject-id claim.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (domain.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.Profile{}, ErrUnauthenticated
		}
		return domain.Profile{}, commonerrors.ErrDatabaseError.WithCause(err)
	}

	return user.Profile(), nil
}

func (s *UserService) GetUsername(ctx context.Context, userID int64) (string, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", commonerrors.ErrDatabaseError.WithCause(err)
	}

	return user.Username, nil
}
