package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/ogurasousui/carnet-craft/internal/core/office"
)

type stubDirectoryLoader struct {
	dir   *office.Directory
	err   error
	loads int
}

func (s *stubDirectoryLoader) Load(context.Context) (*office.Directory, error) {
	s.loads++
	return s.dir, s.err
}

func TestService_Import(t *testing.T) {
	t.Parallel()

	repo := newFakeWorkerRepo()
	loader := &stubDirectoryLoader{dir: testDirectory()}
	svc := NewService(repo, loader)

	summary, err := svc.Import(context.Background(), []ImportRow{
		{Name: "Ana", Surname: "Diaz", NationalID: "1234567", Office: "Oficina Dos"},
	}, PolicyConfirmer{})
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if summary.Inserted != 1 || loader.loads != 1 {
		t.Fatalf("unexpected result: %s loads=%d", summary, loader.loads)
	}
	if got := repo.workers["1234567"].Office; got != "OF2" {
		t.Fatalf("expected office name resolved to OF2, got %s", got)
	}
}

func TestService_Import_LoadError(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("db down")
	svc := NewService(newFakeWorkerRepo(), &stubDirectoryLoader{err: loadErr})

	if _, err := svc.Import(context.Background(), nil, PolicyConfirmer{}); !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestService_Import_ConfirmerRequired(t *testing.T) {
	t.Parallel()

	loader := &stubDirectoryLoader{dir: testDirectory()}
	svc := NewService(newFakeWorkerRepo(), loader)

	if _, err := svc.Import(context.Background(), nil, nil); !errors.Is(err, ErrConfirmerRequired) {
		t.Fatalf("expected ErrConfirmerRequired, got %v", err)
	}
	if loader.loads != 0 {
		t.Fatal("directory must not be loaded without a confirmer")
	}
}
