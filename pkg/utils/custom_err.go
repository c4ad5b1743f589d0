package utils

import "errors"

var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("already exists")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrAccountNotFound      = errors.New("token account not found")
	ErrInsufficientBalance  = errors.New("insufficient token balance")
	ErrCyclicRelationship   = errors.New("cyclic family relationship")
	ErrInvalidConfirmation  = errors.New("invalid confirmation code")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDatabaseError        = errors.New("database error")
)
