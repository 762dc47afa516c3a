package importer

import "strings"

// ImportRow は取り込みファイルの一行を型付きで表現します。
// 取り込み元に存在しない列は空文字になります。
type ImportRow struct {
	// Line はファイル上の行番号です。0 の場合は入力順の番号を使います。
	Line           int
	Name           string
	Surname        string
	NationalID     string
	Office         string
	Title          string
	PhotoReference string
	BadgeType      string
}

func (r ImportRow) normalized() ImportRow {
	return ImportRow{
		Line:           r.Line,
		Name:           strings.TrimSpace(r.Name),
		Surname:        strings.TrimSpace(r.Surname),
		NationalID:     strings.TrimSpace(r.NationalID),
		Office:         strings.TrimSpace(r.Office),
		Title:          strings.TrimSpace(r.Title),
		PhotoReference: trimPhotoReference(r.PhotoReference),
		BadgeType:      strings.TrimSpace(r.BadgeType),
	}
}

func (r ImportRow) hasKeyFields() bool {
	return r.Name != "" && r.Surname != "" && r.NationalID != ""
}

// trimPhotoReference はバイナリを壊さないよう空白のみの値だけを空にします。
func trimPhotoReference(ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	return ref
}
