package office

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeOfficeRepo struct {
	offices map[string]*Office
	failOn  string
}

func newFakeOfficeRepo(seed ...Office) *fakeOfficeRepo {
	r := &fakeOfficeRepo{offices: make(map[string]*Office)}
	for i := range seed {
		o := seed[i]
		r.offices[o.Code] = &o
	}
	return r
}

func (r *fakeOfficeRepo) List(_ context.Context) ([]*Office, error) {
	result := make([]*Office, 0, len(r.offices))
	for _, o := range r.offices {
		cp := *o
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (r *fakeOfficeRepo) Create(_ context.Context, o *Office) (*Office, error) {
	if o.Code == r.failOn {
		return nil, errors.New("boom")
	}
	cp := *o
	r.offices[o.Code] = &cp
	return o, nil
}

func (r *fakeOfficeRepo) Update(_ context.Context, oldCode string, o *Office) (*Office, error) {
	existing, ok := r.offices[oldCode]
	if !ok {
		return nil, ErrOfficeNotFound
	}
	delete(r.offices, oldCode)
	existing.Name = o.Name
	existing.Code = o.Code
	r.offices[o.Code] = existing
	cp := *existing
	return &cp, nil
}

func (r *fakeOfficeRepo) DeleteByCode(_ context.Context, code string) error {
	delete(r.offices, code)
	return nil
}

func TestService_LoadAndCommit(t *testing.T) {
	t.Parallel()

	repo := newFakeOfficeRepo(Office{ID: "1", Name: "Administracion", Code: "ADM", Position: 0})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(repo, &stubClock{now: now}, nil)

	d, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := d.Add("Tecnologia", "OTI"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := d.Edit("ADM", "Administracion", "ADMIN"); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}

	if len(repo.offices) != 1 {
		t.Fatal("expected no persistence before commit")
	}

	if err := svc.Commit(context.Background(), d); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if d.Dirty() {
		t.Fatal("expected journal to be cleared after commit")
	}

	added, ok := repo.offices["OTI"]
	if !ok || added.ID == "" || !added.CreatedAt.Equal(now) || added.Position != 1 {
		t.Fatalf("unexpected persisted office: %+v", added)
	}
	if _, ok := repo.offices["ADMIN"]; !ok {
		t.Fatal("expected edited code to be persisted")
	}

	list := d.List()
	if len(list) != 2 || list[0].Code != "ADMIN" || list[1].Code != "OTI" {
		t.Fatalf("unexpected directory after commit: %+v", list)
	}
}

func TestService_Commit_FailureKeepsJournal(t *testing.T) {
	t.Parallel()

	repo := newFakeOfficeRepo()
	repo.failOn = "BAD"
	svc := NewService(repo, nil, nil)

	d, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := d.Add("Mala", "BAD"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	if err := svc.Commit(context.Background(), d); err == nil {
		t.Fatal("expected commit error")
	}
	if !d.Dirty() {
		t.Fatal("expected pending changes to survive failed commit")
	}
}

func TestService_AddAndRemoveOffice(t *testing.T) {
	t.Parallel()

	repo := newFakeOfficeRepo(Office{ID: "1", Name: "Administracion", Code: "ADM", Position: 0})
	svc := NewService(repo, nil, nil)

	if _, err := svc.AddOffice(context.Background(), "Otra", "ADM"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	d, err := svc.AddOffice(context.Background(), "Tecnologia", "OTI")
	if err != nil {
		t.Fatalf("AddOffice returned error: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 offices, got %d", d.Len())
	}

	d, err = svc.RemoveOffice(context.Background(), "ADM")
	if err != nil {
		t.Fatalf("RemoveOffice returned error: %v", err)
	}
	if _, ok := repo.offices["ADM"]; ok || d.Len() != 1 {
		t.Fatal("expected ADM to be removed")
	}

	if _, err := svc.RemoveOffice(context.Background(), "ADM"); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}
}

type fakeRelocator struct {
	moves []string
	err   error
}

func (f *fakeRelocator) RelocateOffice(_ context.Context, oldCode, newCode string) error {
	if f.err != nil {
		return f.err
	}
	f.moves = append(f.moves, oldCode+"->"+newCode)
	return nil
}

func TestService_EditOffice_RelocatesWorkers(t *testing.T) {
	t.Parallel()

	repo := newFakeOfficeRepo(
		Office{ID: "1", Name: "Administracion", Code: "ADM", Position: 0},
		Office{ID: "2", Name: "Tecnologia", Code: "OTI", Position: 1},
	)
	relocator := &fakeRelocator{}
	svc := NewService(repo, nil, nil, WithWorkerRelocator(relocator))

	d, err := svc.EditOffice(context.Background(), "ADM", "Administracion General", "ADMIN")
	if err != nil {
		t.Fatalf("EditOffice returned error: %v", err)
	}
	if name, ok := d.ResolveCodeToName("ADMIN"); !ok || name != "Administracion General" {
		t.Fatalf("expected edited office in directory, got %q", name)
	}
	if len(relocator.moves) != 1 || relocator.moves[0] != "ADM->ADMIN" {
		t.Fatalf("expected workers relocated from ADM to ADMIN, got %v", relocator.moves)
	}

	if _, err := svc.EditOffice(context.Background(), "OTI", "Informatica", "OTI"); err != nil {
		t.Fatalf("EditOffice returned error: %v", err)
	}
	if len(relocator.moves) != 1 {
		t.Fatalf("expected a rename without code change to leave workers alone, got %v", relocator.moves)
	}

	if _, err := svc.EditOffice(context.Background(), "OTI", "Administracion General", "OTI"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestService_EditOffice_RelocationFailureAbortsCommit(t *testing.T) {
	t.Parallel()

	repo := newFakeOfficeRepo(Office{ID: "1", Name: "Administracion", Code: "ADM", Position: 0})
	svc := NewService(repo, nil, nil, WithWorkerRelocator(&fakeRelocator{err: errors.New("boom")}))

	d, err := svc.EditOffice(context.Background(), "ADM", "Administracion", "ADMIN")
	if err == nil {
		t.Fatal("expected relocation error")
	}
	if !d.Dirty() {
		t.Fatal("expected the edit to stay pending after a failed commit")
	}
}

func TestService_Apply_DiscardsOnFailedEdit(t *testing.T) {
	t.Parallel()

	repo := newFakeOfficeRepo(Office{ID: "1", Name: "Administracion", Code: "ADM", Position: 0})
	svc := NewService(repo, nil, nil)

	d, err := svc.Apply(context.Background(), func(d *Directory) error {
		if err := d.Add("Tecnologia", "OTI"); err != nil {
			return err
		}
		return d.Add("Otra Tecnologia", "OTI")
	})
	if kind, _ := DuplicateKindOf(err); kind != DuplicateCode {
		t.Fatalf("expected DuplicateCode, got %v", err)
	}
	if d.Dirty() || d.Len() != 1 {
		t.Fatalf("expected pending changes discarded, got %d entries dirty=%v", d.Len(), d.Dirty())
	}
	if len(repo.offices) != 1 {
		t.Fatalf("expected nothing persisted, got %d offices", len(repo.offices))
	}

	d, err = svc.Apply(context.Background(), func(d *Directory) error {
		if err := d.Add("Tecnologia", "OTI"); err != nil {
			return err
		}
		d.Remove("ADM")
		return nil
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if d.Len() != 1 || len(repo.offices) != 1 {
		t.Fatalf("expected both changes committed together, got %+v", d.List())
	}
	if _, ok := repo.offices["OTI"]; !ok {
		t.Fatal("expected OTI persisted")
	}
}
