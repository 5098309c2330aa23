package service

import (
	"net/http"

	commonerrors "github.com/imelapp/auth-server/internal/common/errors"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so the response never reveals which one it was.
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid username or password",
	)

	ErrAccountLocked = commonerrors.NewDomainError(
		"ACCOUNT_LOCKED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"account is temporarily locked",
	)

	ErrDuplicateUser = commonerrors.NewDomainError(
		"DUPLICATE_USER",
		commonerrors.CategoryConflict,
		http.StatusBadRequest,
		"user with this username or email already exists",
	)

	ErrInvalidRole = commonerrors.NewDomainError(
		"INVALID_ROLE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"invalid role",
	)

	ErrUserNotFound = commonerrors.NewDomainError(
		"USER_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrUnauthenticated = commonerrors.NewDomainError(
		"UNAUTHENTICATED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"not authenticated",
	)

	ErrForbidden = commonerrors.NewDomainError(
		"FORBIDDEN",
		commonerrors.CategoryForbidden,
		http.StatusForbidden,
		"insufficient role",
	)
)
