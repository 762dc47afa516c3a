package worker

import "errors"

var (
	ErrInvalidNationalID       = errors.New("worker: invalid national id")
	ErrInvalidName             = errors.New("worker: invalid name")
	ErrInvalidSurname          = errors.New("worker: invalid surname")
	ErrInvalidOffice           = errors.New("worker: invalid office")
	ErrInvalidTitle            = errors.New("worker: invalid title")
	ErrInvalidPhoto            = errors.New("worker: invalid photo reference")
	ErrInvalidBadgeType        = errors.New("worker: invalid badge type")
	ErrMissingRequiredField    = errors.New("worker: missing required field")
	ErrInvalidPageSize         = errors.New("worker: invalid page size")
	ErrInvalidPageToken        = errors.New("worker: invalid page token")
	ErrWorkerNotFound          = errors.New("worker: not found")
	ErrNationalIDAlreadyExists = errors.New("worker: national id already exists")
)
