package office

import (
	"errors"
	"testing"
)

func seededDirectory() *Directory {
	return NewDirectory([]Office{
		{ID: "1", Name: "Administracion", Code: "ADM", Position: 0},
		{ID: "2", Name: "Tecnologia", Code: "OTI", Position: 1},
	})
}

func TestDirectory_Add_DuplicateKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code string
		want DuplicateKind
	}{
		{"Administracion", "ADM", DuplicateBoth},
		{"Administracion", "NEW", DuplicateName},
		{"Recursos Humanos", "ADM", DuplicateCode},
	}

	for _, tc := range cases {
		d := seededDirectory()
		err := d.Add(tc.name, tc.code)
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("Add(%q, %q): expected duplicate error, got %v", tc.name, tc.code, err)
		}
		kind, ok := DuplicateKindOf(err)
		if !ok || kind != tc.want {
			t.Fatalf("Add(%q, %q): expected %s, got %s", tc.name, tc.code, tc.want, kind)
		}
		if d.Len() != 2 || d.Dirty() {
			t.Fatalf("expected directory unchanged after duplicate, got %d entries", d.Len())
		}
	}
}

func TestDirectory_Add_AppendsInOrder(t *testing.T) {
	t.Parallel()

	d := seededDirectory()
	if err := d.Add(" Recursos Humanos ", "RRHH"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	list := d.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 offices, got %d", len(list))
	}
	last := list[2]
	if last.Name != "Recursos Humanos" || last.Code != "RRHH" || last.Position != 2 {
		t.Fatalf("unexpected appended office: %+v", last)
	}

	list[0].Name = "mutated"
	if name, _ := d.ResolveCodeToName("ADM"); name != "Administracion" {
		t.Fatal("expected List to return a copy")
	}
}

func TestDirectory_Add_InvalidInput(t *testing.T) {
	t.Parallel()

	d := seededDirectory()
	if err := d.Add(" ", "X"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if err := d.Add("Nueva", "A B"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestDirectory_Edit(t *testing.T) {
	t.Parallel()

	d := seededDirectory()

	if err := d.Edit("ADM", "Administracion General", "ADM"); err != nil {
		t.Fatalf("Edit keeping own code returned error: %v", err)
	}
	if name, ok := d.ResolveCodeToName("ADM"); !ok || name != "Administracion General" {
		t.Fatalf("expected renamed office, got %q", name)
	}

	err := d.Edit("ADM", "Otro", "OTI")
	if kind, _ := DuplicateKindOf(err); kind != DuplicateCode {
		t.Fatalf("expected DuplicateCode, got %v", err)
	}

	if err := d.Edit("NOPE", "X", "Y"); !errors.Is(err, ErrOfficeNotFound) {
		t.Fatalf("expected ErrOfficeNotFound, got %v", err)
	}
}

func TestDirectory_Remove_Idempotent(t *testing.T) {
	t.Parallel()

	d := seededDirectory()
	d.Remove("ADM")
	d.Remove("ADM")
	d.Remove("MISSING")

	if d.Len() != 1 {
		t.Fatalf("expected 1 office, got %d", d.Len())
	}
	if len(d.Pending()) != 1 {
		t.Fatalf("expected a single pending change, got %d", len(d.Pending()))
	}
	if _, ok := d.ResolveCodeToName("ADM"); ok {
		t.Fatal("expected ADM to be removed")
	}
}

func TestDirectory_Resolve_CaseSensitive(t *testing.T) {
	t.Parallel()

	d := seededDirectory()

	if code, ok := d.ResolveNameToCode("Tecnologia"); !ok || code != "OTI" {
		t.Fatalf("expected OTI, got %q", code)
	}
	if _, ok := d.ResolveNameToCode("tecnologia"); ok {
		t.Fatal("expected name resolution to be case-sensitive")
	}
	if _, ok := d.ResolveCodeToName("adm"); ok {
		t.Fatal("expected code resolution to be case-sensitive")
	}
}

func TestDirectory_DefaultAndDiscard(t *testing.T) {
	t.Parallel()

	empty := NewDirectory(nil)
	if _, ok := empty.Default(); ok {
		t.Fatal("expected no default for empty directory")
	}

	d := seededDirectory()
	d.Remove("ADM")
	if def, _ := d.Default(); def.Code != "OTI" {
		t.Fatalf("expected OTI as default after removal, got %s", def.Code)
	}

	d.Discard()
	if d.Dirty() || d.Len() != 2 {
		t.Fatalf("expected discard to restore committed state, got %d entries", d.Len())
	}
	if def, _ := d.Default(); def.Code != "ADM" {
		t.Fatalf("expected ADM as default, got %s", def.Code)
	}
}
