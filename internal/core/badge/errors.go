package badge

import "errors"

var (
	// ErrBadgeNotFound は発行記録が存在しない場合に返却されます。
	ErrBadgeNotFound = errors.New("badge: not found")
	// ErrInvalidSequenceCode は既存の連番コードを解釈できない場合に返却されます。
	ErrInvalidSequenceCode = errors.New("badge: invalid sequence code")
	// ErrSequenceExhausted は部署の連番が上限に達した場合に返却されます。
	ErrSequenceExhausted = errors.New("badge: sequence exhausted")
	ErrInvalidWorkerID   = errors.New("badge: invalid worker id")
	ErrInvalidOfficeCode = errors.New("badge: invalid office code")
	ErrInvalidValidity   = errors.New("badge: invalid validity days")
	// ErrSequenceCodeAlreadyExists は連番コードの一意制約違反時に返却されます。
	ErrSequenceCodeAlreadyExists = errors.New("badge: sequence code already exists")
)
