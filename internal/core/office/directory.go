package office

import (
	"regexp"
	"strings"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ChangeKind は未確定の変更の種類です。
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota + 1
	ChangeEdit
	ChangeRemove
)

// Change はディレクトリに対する未確定の変更です。
type Change struct {
	Kind    ChangeKind
	OldCode string
	Office  Office
}

// Directory は部署名と部署コードの対応表をメモリ上で保持します。
// 変更は Service.Commit で確定するまで永続化されません。
type Directory struct {
	entries   []Office
	committed []Office
	journal   []Change
	nextPos   int
}

// NewDirectory は確定済みの部署一覧から Directory を生成します。
func NewDirectory(offices []Office) *Directory {
	d := &Directory{}
	d.reset(offices)
	return d
}

func (d *Directory) reset(offices []Office) {
	d.entries = append([]Office(nil), offices...)
	d.committed = append([]Office(nil), offices...)
	d.journal = nil
	d.nextPos = 0
	for _, o := range offices {
		if o.Position >= d.nextPos {
			d.nextPos = o.Position + 1
		}
	}
}

// List は登録順の部署一覧のコピーを返します。
func (d *Directory) List() []Office {
	return append([]Office(nil), d.entries...)
}

// Len は部署数を返します。
func (d *Directory) Len() int {
	return len(d.entries)
}

// Default は先頭の部署を返します。
func (d *Directory) Default() (Office, bool) {
	if len(d.entries) == 0 {
		return Office{}, false
	}
	return d.entries[0], true
}

// Add は部署を末尾に追加します。
func (d *Directory) Add(name, code string) error {
	name, code, err := normalizeEntry(name, code)
	if err != nil {
		return err
	}
	if err := d.checkDuplicate(name, code, ""); err != nil {
		return err
	}

	o := Office{Name: name, Code: code, Position: d.nextPos}
	d.nextPos++
	d.entries = append(d.entries, o)
	d.journal = append(d.journal, Change{Kind: ChangeAdd, Office: o})
	return nil
}

// Edit は oldCode の部署の名前とコードを変更します。重複判定は編集対象自身を除外します。
func (d *Directory) Edit(oldCode, name, code string) error {
	idx := d.indexOfCode(oldCode)
	if idx < 0 {
		return ErrOfficeNotFound
	}
	name, code, err := normalizeEntry(name, code)
	if err != nil {
		return err
	}
	if err := d.checkDuplicate(name, code, oldCode); err != nil {
		return err
	}

	edited := d.entries[idx]
	edited.Name = name
	edited.Code = code
	d.entries[idx] = edited
	d.journal = append(d.journal, Change{Kind: ChangeEdit, OldCode: oldCode, Office: edited})
	return nil
}

// Remove は code の部署を削除します。存在しない場合は何もしません。
func (d *Directory) Remove(code string) {
	idx := d.indexOfCode(code)
	if idx < 0 {
		return
	}
	removed := d.entries[idx]
	d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
	d.journal = append(d.journal, Change{Kind: ChangeRemove, OldCode: removed.Code, Office: removed})
}

// ResolveCodeToName はコードに対応する部署名を返します。大文字小文字を区別します。
func (d *Directory) ResolveCodeToName(code string) (string, bool) {
	idx := d.indexOfCode(code)
	if idx < 0 {
		return "", false
	}
	return d.entries[idx].Name, true
}

// ResolveNameToCode は部署名に対応するコードを返します。大文字小文字を区別します。
func (d *Directory) ResolveNameToCode(name string) (string, bool) {
	for _, o := range d.entries {
		if o.Name == name {
			return o.Code, true
		}
	}
	return "", false
}

// Pending は未確定の変更を返します。
func (d *Directory) Pending() []Change {
	return append([]Change(nil), d.journal...)
}

// Dirty は未確定の変更があるかどうかを返します。
func (d *Directory) Dirty() bool {
	return len(d.journal) > 0
}

// Discard は未確定の変更を破棄し、最後に確定した状態へ戻します。
func (d *Directory) Discard() {
	d.reset(d.committed)
}

func (d *Directory) markCommitted(entries []Office) {
	d.reset(entries)
}

func (d *Directory) indexOfCode(code string) int {
	for i, o := range d.entries {
		if o.Code == code {
			return i
		}
	}
	return -1
}

func (d *Directory) checkDuplicate(name, code, exceptCode string) error {
	nameTaken, codeTaken := false, false
	for _, o := range d.entries {
		if exceptCode != "" && o.Code == exceptCode {
			continue
		}
		if o.Name == name && o.Code == code {
			return &DuplicateError{Kind: DuplicateBoth, Name: name, Code: code}
		}
		if o.Name == name {
			nameTaken = true
		}
		if o.Code == code {
			codeTaken = true
		}
	}

	switch {
	case nameTaken:
		return &DuplicateError{Kind: DuplicateName, Name: name, Code: code}
	case codeTaken:
		return &DuplicateError{Kind: DuplicateCode, Name: name, Code: code}
	default:
		return nil
	}
}

func normalizeEntry(name, code string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ErrInvalidName
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return "", "", ErrInvalidCode
	}
	return name, code, nil
}
