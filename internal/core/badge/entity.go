package badge

import "time"

// DefaultValidityDays は既定の有効日数です。
const DefaultValidityDays = 365

// Badge は職員証の発行記録です。発行後は変更されません。
type Badge struct {
	ID           string
	WorkerID     string
	OfficeCode   string
	SequenceCode string
	IssueDate    time.Time
	ExpiryDate   time.Time
}

// IsCurrent は ref が発行日から有効期限までの範囲内 (両端を含む) にある場合に true を返します。
func IsCurrent(b *Badge, ref time.Time) bool {
	if b == nil {
		return false
	}
	return !ref.Before(b.IssueDate) && !ref.After(b.ExpiryDate)
}
