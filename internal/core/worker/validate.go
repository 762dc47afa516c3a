package worker

import (
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fields はレコード検証の対象となるフィールド集合です。
type Fields struct {
	Name           string
	Surname        string
	NationalID     string
	Office         string
	Title          string
	PhotoReference string
	BadgeType      string
}

// ValidateRequired は全フィールドが空白以外の値を持つ場合に true を返します。
func ValidateRequired(f Fields) bool {
	for _, v := range []string{f.Name, f.Surname, f.NationalID, f.Office, f.Title, f.PhotoReference, f.BadgeType} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// ValidateNationalID は身分証番号の長さが 7 または 8 文字の場合に true を返します。
// 数字のみかどうかは確認しません。
func ValidateNationalID(id string) bool {
	n := utf8.RuneCountInString(id)
	return n == 7 || n == 8
}

// ValidateNationalIDStrict は ValidateNationalID に加えて数字のみであることを確認します。
func ValidateNationalIDStrict(id string) bool {
	if !ValidateNationalID(id) {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateName は空白を除いた全ての文字が英字の場合に true を返します。
func ValidateName(text string) bool {
	stripped := strings.ReplaceAll(text, " ", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ValidatePhotoReference は参照が既存ファイルを指すか、保存済みのバイナリである場合に true を返します。
func ValidatePhotoReference(ref string) bool {
	if ref == "" {
		return false
	}
	if isOpaqueBinary(ref) {
		return true
	}
	info, err := os.Stat(ref)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// isOpaqueBinary はファイルパスとして解釈できない値かどうかを判定します。
func isOpaqueBinary(ref string) bool {
	if !utf8.ValidString(ref) {
		return true
	}
	for _, r := range ref {
		if !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}
