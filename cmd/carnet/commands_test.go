package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/importer"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
)

type fakeWorkers struct {
	found   *worker.Worker
	deleted string
	created worker.CreateWorkerInput
	updated worker.UpdateWorkerInput
	listed  worker.ListWorkersInput
}

func (f *fakeWorkers) CreateWorker(_ context.Context, in worker.CreateWorkerInput) (*worker.Worker, error) {
	f.created = in
	return &worker.Worker{Name: in.Name, Surname: in.Surname, NationalID: in.NationalID, Office: in.Office, BadgeType: worker.BadgeType(in.BadgeType)}, nil
}

func (f *fakeWorkers) UpdateWorker(_ context.Context, in worker.UpdateWorkerInput) (*worker.Worker, error) {
	f.updated = in
	return f.found, nil
}

func (f *fakeWorkers) ListWorkers(_ context.Context, in worker.ListWorkersInput) (*worker.ListWorkersResult, error) {
	f.listed = in
	return &worker.ListWorkersResult{Workers: []*worker.Worker{f.found}, NextPageToken: "50"}, nil
}

func (f *fakeWorkers) GetWorker(_ context.Context, in worker.GetWorkerInput) (*worker.Worker, error) {
	if f.found == nil || f.found.NationalID != in.NationalID {
		return nil, worker.ErrWorkerNotFound
	}
	return f.found, nil
}

func (f *fakeWorkers) DeleteWorker(_ context.Context, in worker.DeleteWorkerInput) error {
	f.deleted = in.NationalID
	return nil
}

type fakeOffices struct {
	dir *office.Directory
}

func (f *fakeOffices) Load(context.Context) (*office.Directory, error) { return f.dir, nil }

func (f *fakeOffices) AddOffice(_ context.Context, name, code string) (*office.Directory, error) {
	if err := f.dir.Add(name, code); err != nil {
		return nil, err
	}
	return f.dir, nil
}

func (f *fakeOffices) EditOffice(_ context.Context, oldCode, name, code string) (*office.Directory, error) {
	if err := f.dir.Edit(oldCode, name, code); err != nil {
		return nil, err
	}
	return f.dir, nil
}

func (f *fakeOffices) RemoveOffice(_ context.Context, code string) (*office.Directory, error) {
	f.dir.Remove(code)
	return f.dir, nil
}

type fakeImporter struct {
	rows      []importer.ImportRow
	confirmer importer.Confirmer
}

func (f *fakeImporter) Import(_ context.Context, rows []importer.ImportRow, confirmer importer.Confirmer) (*importer.Summary, error) {
	f.rows = rows
	f.confirmer = confirmer
	return &importer.Summary{Total: len(rows), Inserted: len(rows)}, nil
}

type fakeIssuer struct {
	input   badge.IssueInput
	history []*badge.Badge
}

func (f *fakeIssuer) History(_ context.Context, workerID string) ([]*badge.Badge, error) {
	if workerID != "w-1" {
		return nil, nil
	}
	return f.history, nil
}

func (f *fakeIssuer) IssueIfNeeded(_ context.Context, in badge.IssueInput) (*badge.IssueResult, error) {
	f.input = in
	issued := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return &badge.IssueResult{
		Badge:  &badge.Badge{SequenceCode: in.OfficeCode + "0001", IssueDate: issued, ExpiryDate: issued.AddDate(1, 0, 0)},
		Issued: true,
	}, nil
}

type fakeGenerator struct {
	single render.GenerateInput
	batch  render.BatchInput
}

func (f *fakeGenerator) Generate(_ context.Context, in render.GenerateInput) (*render.GenerateResult, error) {
	f.single = in
	return &render.GenerateResult{Path: "out/1234567_Professional.png", Badge: &badge.Badge{SequenceCode: "OF10001"}}, nil
}

func (f *fakeGenerator) GenerateBatch(_ context.Context, in render.BatchInput) (*render.BatchSummary, error) {
	f.batch = in
	return &render.BatchSummary{Dir: "out/carnets", Total: len(in.NationalIDs), Generated: len(in.NationalIDs)}, nil
}

func newTestCommands(stdin string) (*commands, *bytes.Buffer) {
	var out bytes.Buffer
	return &commands{
		workers:       &fakeWorkers{found: &worker.Worker{ID: "w-1", NationalID: "1234567", Name: "Ana", Surname: "Diaz", Office: "OF1"}},
		offices:       &fakeOffices{dir: office.NewDirectory([]office.Office{{Name: "Oficina Uno", Code: "OF1"}})},
		importer:      &fakeImporter{},
		tracker:       &fakeIssuer{},
		generator:     &fakeGenerator{},
		defaultPolicy: "ask",
		stdin:         strings.NewReader(stdin),
		stdout:        &out,
	}, &out
}

func TestCommands_Import(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "workers.csv")
	if err := os.WriteFile(path, []byte("Nombre,Apellidos,Cedula\nAna,Diaz,1234567\n"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	c, out := newTestCommands("")
	if err := c.run(context.Background(), []string{"import", path}); err != nil {
		t.Fatalf("import returned error: %v", err)
	}

	imp := c.importer.(*fakeImporter)
	if len(imp.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(imp.rows))
	}
	if _, ok := imp.confirmer.(*promptConfirmer); !ok {
		t.Fatalf("expected prompt confirmer for ask policy, got %T", imp.confirmer)
	}
	if !strings.Contains(out.String(), "inserted=1") {
		t.Fatalf("expected summary in output, got %q", out.String())
	}

	if err := c.run(context.Background(), []string{"import", "-on-duplicate", "skip", path}); err != nil {
		t.Fatalf("import returned error: %v", err)
	}
	if imp.confirmer != (importer.PolicyConfirmer{Update: false}) {
		t.Fatalf("expected skip confirmer, got %#v", imp.confirmer)
	}
}

func TestCommands_UsageErrors(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		{},
		{"unknown"},
		{"import"},
		{"import", "-on-duplicate", "overwrite", "file.csv"},
		{"generate"},
		{"issue"},
		{"offices"},
		{"offices", "add", "only-name"},
		{"worker", "show"},
		{"worker"},
		{"worker", "add", "-name", "Ana"},
		{"worker", "edit", "1234567"},
		{"worker", "list", "extra"},
		{"offices", "edit", "OF1", "Nombre"},
		{"badge", "history"},
		{"badge", "show", "1234567"},
	}
	for _, args := range cases {
		c, _ := newTestCommands("")
		if err := c.run(context.Background(), args); !errors.Is(err, errUsage) {
			t.Fatalf("expected usage error for %v, got %v", args, err)
		}
	}
}

func TestCommands_Generate(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	if err := c.run(context.Background(), []string{"generate", "-out", "out", "1234567"}); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	gen := c.generator.(*fakeGenerator)
	if gen.single.NationalID != "1234567" || gen.single.OutputDir != "out" {
		t.Fatalf("unexpected single input: %+v", gen.single)
	}
	if !strings.Contains(out.String(), "current badge OF10001") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := c.run(context.Background(), []string{"generate", "1", "2", "3"}); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if len(gen.batch.NationalIDs) != 3 {
		t.Fatalf("expected batch of 3, got %+v", gen.batch)
	}
}

func TestCommands_Issue(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	if err := c.run(context.Background(), []string{"issue", "-days", "30", "1234567"}); err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if got := c.tracker.(*fakeIssuer).input; got != (badge.IssueInput{WorkerID: "w-1", OfficeCode: "OF1", ValidityDays: 30}) {
		t.Fatalf("unexpected issue input: %+v", got)
	}
	if !strings.Contains(out.String(), "OF10001 2025-02-01..2026-02-01 (new badge OF10001)") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := c.run(context.Background(), []string{"issue", "999"}); !errors.Is(err, worker.ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
}

func TestCommands_Offices(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	if err := c.run(context.Background(), []string{"offices", "add", "Oficina Dos", "OF2"}); err != nil {
		t.Fatalf("offices add returned error: %v", err)
	}
	if !strings.Contains(out.String(), "OF2") {
		t.Fatalf("expected new office listed, got %q", out.String())
	}

	err := c.run(context.Background(), []string{"offices", "add", "Oficina Uno", "OF1"})
	if !errors.Is(err, office.ErrDuplicate) || !strings.Contains(err.Error(), "name and code duplicated") {
		t.Fatalf("expected duplicate error naming name and code, got %v", err)
	}

	out.Reset()
	if err := c.run(context.Background(), []string{"offices", "remove", "OF1"}); err != nil {
		t.Fatalf("offices remove returned error: %v", err)
	}
	if strings.Contains(out.String(), "OF1 ") {
		t.Fatalf("expected OF1 removed, got %q", out.String())
	}
}

func TestCommands_Worker(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	if err := c.run(context.Background(), []string{"worker", "show", "1234567"}); err != nil {
		t.Fatalf("worker show returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Ana Diaz") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if err := c.run(context.Background(), []string{"worker", "delete", "1234567"}); err != nil {
		t.Fatalf("worker delete returned error: %v", err)
	}
	if c.workers.(*fakeWorkers).deleted != "1234567" {
		t.Fatal("expected worker to be deleted")
	}
}

func TestPromptConfirmer(t *testing.T) {
	t.Parallel()

	existing := &worker.Worker{NationalID: "1234567", Name: "Ana", Surname: "Diaz", Office: "OF1"}
	row := importer.ImportRow{Line: 3, Name: "Ana", Surname: "Diaz", NationalID: "1234567", Office: "OF2"}

	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"SI\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\nyes\n", true},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		got, err := newPromptConfirmer(strings.NewReader(tc.input), &out).ConfirmUpdate(context.Background(), existing, row)
		if err != nil {
			t.Fatalf("ConfirmUpdate(%q) returned error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ConfirmUpdate(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "line 3") {
			t.Fatalf("expected prompt to mention the line, got %q", out.String())
		}
	}
}

func TestCommands_WorkerAddEditList(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	fw := c.workers.(*fakeWorkers)

	err := c.run(context.Background(), []string{"worker", "add",
		"-name", "Luis", "-surname", "Rojas", "-office", "Oficina Uno", "-title", "Chofer", "-photo", "/fotos/luis.png",
		"7654321",
	})
	if err != nil {
		t.Fatalf("worker add returned error: %v", err)
	}
	want := worker.CreateWorkerInput{
		Name:           "Luis",
		Surname:        "Rojas",
		NationalID:     "7654321",
		Office:         "Oficina Uno",
		Title:          "Chofer",
		PhotoReference: "/fotos/luis.png",
		BadgeType:      "Professional",
	}
	if fw.created != want {
		t.Fatalf("unexpected create input: %+v", fw.created)
	}
	if !strings.Contains(out.String(), "Luis Rojas") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := c.run(context.Background(), []string{"worker", "edit", "-title", "Supervisor", "-type", "Security", "1234567"}); err != nil {
		t.Fatalf("worker edit returned error: %v", err)
	}
	up := fw.updated
	if up.NationalID != "1234567" || up.Name != nil || up.Office != nil || up.PhotoReference != nil {
		t.Fatalf("expected only title and type set, got %+v", up)
	}
	if up.Title == nil || *up.Title != "Supervisor" || up.BadgeType == nil || *up.BadgeType != "Security" {
		t.Fatalf("unexpected edited fields: %+v", up)
	}

	out.Reset()
	if err := c.run(context.Background(), []string{"worker", "list", "-office", "OF1", "-page-size", "50"}); err != nil {
		t.Fatalf("worker list returned error: %v", err)
	}
	if fw.listed != (worker.ListWorkersInput{Office: "OF1", PageSize: 50}) {
		t.Fatalf("unexpected list input: %+v", fw.listed)
	}
	if !strings.Contains(out.String(), "1234567") || !strings.Contains(out.String(), "-page-token 50") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCommands_OfficesEdit(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	if err := c.run(context.Background(), []string{"offices", "edit", "OF1", "Oficina Central", "OFC"}); err != nil {
		t.Fatalf("offices edit returned error: %v", err)
	}
	if !strings.Contains(out.String(), "OFC") || !strings.Contains(out.String(), "Oficina Central") {
		t.Fatalf("expected edited office listed, got %q", out.String())
	}

	if err := c.run(context.Background(), []string{"offices", "edit", "NOPE", "X", "Y"}); !errors.Is(err, office.ErrOfficeNotFound) {
		t.Fatalf("expected ErrOfficeNotFound, got %v", err)
	}
}

func TestCommands_BadgeHistory(t *testing.T) {
	t.Parallel()

	c, out := newTestCommands("")
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c.tracker.(*fakeIssuer).history = []*badge.Badge{
		{SequenceCode: "OF10002", IssueDate: issued.AddDate(1, 0, 0), ExpiryDate: issued.AddDate(2, 0, 0)},
		{SequenceCode: "OF10001", IssueDate: issued, ExpiryDate: issued.AddDate(1, 0, 0)},
	}

	if err := c.run(context.Background(), []string{"badge", "history", "1234567"}); err != nil {
		t.Fatalf("badge history returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[0] != "OF10002 2025-03-01..2026-03-01" || lines[1] != "OF10001 2024-03-01..2025-03-01" {
		t.Fatalf("unexpected output %q", out.String())
	}

	c.tracker.(*fakeIssuer).history = nil
	out.Reset()
	if err := c.run(context.Background(), []string{"badge", "history", "1234567"}); err != nil {
		t.Fatalf("badge history returned error: %v", err)
	}
	if !strings.Contains(out.String(), "no badges issued") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
