package office

import (
	"errors"
	"fmt"
)

var (
	// ErrOfficeNotFound は部署が存在しない場合に返却されます。
	ErrOfficeNotFound = errors.New("office: not found")
	// ErrInvalidName は部署名が不正な場合に返却されます。
	ErrInvalidName = errors.New("office: invalid name")
	// ErrInvalidCode は部署コードが不正な場合に返却されます。
	ErrInvalidCode = errors.New("office: invalid code")
	// ErrDuplicate は名前またはコードが重複する場合に返却されます。
	ErrDuplicate = errors.New("office: duplicate")
)

// DuplicateKind は重複の種類です。
type DuplicateKind int

const (
	DuplicateName DuplicateKind = iota + 1
	DuplicateCode
	DuplicateBoth
)

func (k DuplicateKind) String() string {
	switch k {
	case DuplicateName:
		return "name"
	case DuplicateCode:
		return "code"
	case DuplicateBoth:
		return "name and code"
	default:
		return "unknown"
	}
}

// DuplicateError は重複の種類を保持するエラーです。
type DuplicateError struct {
	Kind DuplicateKind
	Name string
	Code string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("office: duplicate %s (name=%q code=%q)", e.Kind, e.Name, e.Code)
}

// Is は errors.Is(err, ErrDuplicate) を満たします。
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// DuplicateKindOf は err に含まれる重複の種類を返します。
func DuplicateKindOf(err error) (DuplicateKind, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Kind, true
	}
	return 0, false
}
