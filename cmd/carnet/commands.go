package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ogurasousui/carnet-craft/internal/adapters/importsource"
	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/importer"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
)

type officeUseCase interface {
	Load(ctx context.Context) (*office.Directory, error)
	AddOffice(ctx context.Context, name, code string) (*office.Directory, error)
	EditOffice(ctx context.Context, oldCode, name, code string) (*office.Directory, error)
	RemoveOffice(ctx context.Context, code string) (*office.Directory, error)
}

type importUseCase interface {
	Import(ctx context.Context, rows []importer.ImportRow, confirmer importer.Confirmer) (*importer.Summary, error)
}

type issuer interface {
	IssueIfNeeded(ctx context.Context, in badge.IssueInput) (*badge.IssueResult, error)
	History(ctx context.Context, workerID string) ([]*badge.Badge, error)
}

type generator interface {
	Generate(ctx context.Context, in render.GenerateInput) (*render.GenerateResult, error)
	GenerateBatch(ctx context.Context, in render.BatchInput) (*render.BatchSummary, error)
}

type commands struct {
	workers       worker.UseCase
	offices       officeUseCase
	importer      importUseCase
	tracker       issuer
	generator     generator
	defaultPolicy string
	stdin         io.Reader
	stdout        io.Writer
}

func (c *commands) importCmd(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	policy := fs.String("on-duplicate", c.defaultPolicy, "ask, update or skip")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import expects one file", errUsage)
	}

	var confirmer importer.Confirmer
	switch p := strings.ToLower(*policy); p {
	case "", "ask":
		confirmer = newPromptConfirmer(c.stdin, c.stdout)
	default:
		cf, ok := importer.ConfirmerForPolicy(p)
		if !ok {
			return fmt.Errorf("%w: unknown duplicate policy %q", errUsage, *policy)
		}
		confirmer = cf
	}

	rows, err := importsource.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	summary, err := c.importer.Import(ctx, rows, confirmer)
	if summary != nil {
		printSummary(c.stdout, summary)
	}
	return err
}

func printSummary(w io.Writer, s *importer.Summary) {
	fmt.Fprintln(w, s.String())
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if hidden := s.Errored - len(s.Errors); hidden > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", hidden)
	}
}

func (c *commands) generateCmd(ctx context.Context, args []string) error {
	fs := newFlagSet("generate")
	out := fs.String("out", "", "output directory")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	ids := fs.Args()
	if len(ids) == 0 {
		return fmt.Errorf("%w: generate expects at least one national id", errUsage)
	}

	if len(ids) == 1 {
		res, err := c.generator.Generate(ctx, render.GenerateInput{NationalID: ids[0], OutputDir: *out})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%s (%s)\n", res.Path, issuedLabel(res.Issued, res.Badge))
		return nil
	}

	summary, err := c.generator.GenerateBatch(ctx, render.BatchInput{NationalIDs: ids, OutputDir: *out})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s: total=%d generated=%d failed=%d\n", summary.Dir, summary.Total, summary.Generated, summary.Failed)
	for _, e := range summary.Errors {
		fmt.Fprintf(c.stdout, "  %s\n", e)
	}
	return nil
}

func (c *commands) issueCmd(ctx context.Context, args []string) error {
	fs := newFlagSet("issue")
	days := fs.Int("days", 0, "validity in days (0 uses the configured default)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: issue expects one national id", errUsage)
	}

	w, err := c.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: fs.Arg(0)})
	if err != nil {
		return err
	}
	res, err := c.tracker.IssueIfNeeded(ctx, badge.IssueInput{WorkerID: w.ID, OfficeCode: w.Office, ValidityDays: *days})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s %s..%s (%s)\n",
		res.Badge.SequenceCode,
		res.Badge.IssueDate.Format("2006-01-02"),
		res.Badge.ExpiryDate.Format("2006-01-02"),
		issuedLabel(res.Issued, res.Badge),
	)
	return nil
}

func issuedLabel(issued bool, b *badge.Badge) string {
	if issued {
		return "new badge " + b.SequenceCode
	}
	return "current badge " + b.SequenceCode
}

func (c *commands) badgeCmd(ctx context.Context, args []string) error {
	if len(args) != 2 || args[0] != "history" {
		return fmt.Errorf("%w: badge expects history <national-id>", errUsage)
	}

	w, err := c.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: args[1]})
	if err != nil {
		return err
	}
	badges, err := c.tracker.History(ctx, w.ID)
	if err != nil {
		return err
	}
	if len(badges) == 0 {
		fmt.Fprintf(c.stdout, "no badges issued for %s\n", w.NationalID)
		return nil
	}
	for _, b := range badges {
		fmt.Fprintf(c.stdout, "%s %s..%s\n", b.SequenceCode, b.IssueDate.Format("2006-01-02"), b.ExpiryDate.Format("2006-01-02"))
	}
	return nil
}

func (c *commands) officesCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: offices expects list, add, edit or remove", errUsage)
	}

	var (
		dir *office.Directory
		err error
	)
	switch args[0] {
	case "list":
		dir, err = c.offices.Load(ctx)
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("%w: offices add expects <name> <code>", errUsage)
		}
		dir, err = c.offices.AddOffice(ctx, args[1], args[2])
	case "edit":
		if len(args) != 4 {
			return fmt.Errorf("%w: offices edit expects <old-code> <name> <code>", errUsage)
		}
		dir, err = c.offices.EditOffice(ctx, args[1], args[2], args[3])
	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("%w: offices remove expects <code>", errUsage)
		}
		dir, err = c.offices.RemoveOffice(ctx, args[1])
	default:
		return fmt.Errorf("%w: unknown offices command %q", errUsage, args[0])
	}
	if err != nil {
		if kind, ok := office.DuplicateKindOf(err); ok {
			return fmt.Errorf("office already exists (%s duplicated): %w", kind, err)
		}
		return err
	}

	for _, o := range dir.List() {
		fmt.Fprintf(c.stdout, "%-10s %s\n", o.Code, o.Name)
	}
	return nil
}

func (c *commands) workerCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: worker expects add, edit, list, show or delete", errUsage)
	}

	switch args[0] {
	case "add":
		return c.workerAddCmd(ctx, args[1:])
	case "edit":
		return c.workerEditCmd(ctx, args[1:])
	case "list":
		return c.workerListCmd(ctx, args[1:])
	case "show", "delete":
		if len(args) != 2 {
			return fmt.Errorf("%w: worker %s expects <national-id>", errUsage, args[0])
		}
	default:
		return fmt.Errorf("%w: unknown worker command %q", errUsage, args[0])
	}

	if args[0] == "delete" {
		if err := c.workers.DeleteWorker(ctx, worker.DeleteWorkerInput{NationalID: args[1]}); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "deleted %s\n", args[1])
		return nil
	}

	w, err := c.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: args[1]})
	if err != nil {
		return err
	}
	printWorker(c.stdout, w)
	return nil
}

// workerFlags は add と edit で共通の項目です。
type workerFlags struct {
	fs        *flag.FlagSet
	name      *string
	surname   *string
	office    *string
	title     *string
	photo     *string
	badgeType *string
}

func newWorkerFlags(name string) *workerFlags {
	fs := newFlagSet(name)
	return &workerFlags{
		fs:        fs,
		name:      fs.String("name", "", "given names"),
		surname:   fs.String("surname", "", "surnames"),
		office:    fs.String("office", "", "office code or name"),
		title:     fs.String("title", "", "job title"),
		photo:     fs.String("photo", "", "path to the photo"),
		badgeType: fs.String("type", string(worker.DefaultBadgeType()), "badge type"),
	}
}

// set は明示的に指定されたフラグの値だけを返します。
func (f *workerFlags) set(flagName string, value *string) *string {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == flagName {
			found = true
		}
	})
	if !found {
		return nil
	}
	return value
}

func (c *commands) workerAddCmd(ctx context.Context, args []string) error {
	f := newWorkerFlags("worker add")
	if err := f.fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.fs.NArg() != 1 {
		return fmt.Errorf("%w: worker add expects one national id", errUsage)
	}

	w, err := c.workers.CreateWorker(ctx, worker.CreateWorkerInput{
		Name:           *f.name,
		Surname:        *f.surname,
		NationalID:     f.fs.Arg(0),
		Office:         *f.office,
		Title:          *f.title,
		PhotoReference: *f.photo,
		BadgeType:      *f.badgeType,
	})
	if err != nil {
		return err
	}
	printWorker(c.stdout, w)
	return nil
}

func (c *commands) workerEditCmd(ctx context.Context, args []string) error {
	f := newWorkerFlags("worker edit")
	if err := f.fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.fs.NArg() != 1 {
		return fmt.Errorf("%w: worker edit expects one national id", errUsage)
	}
	if f.fs.NFlag() == 0 {
		return fmt.Errorf("%w: worker edit expects at least one field flag", errUsage)
	}

	w, err := c.workers.UpdateWorker(ctx, worker.UpdateWorkerInput{
		NationalID:     f.fs.Arg(0),
		Name:           f.set("name", f.name),
		Surname:        f.set("surname", f.surname),
		Office:         f.set("office", f.office),
		Title:          f.set("title", f.title),
		PhotoReference: f.set("photo", f.photo),
		BadgeType:      f.set("type", f.badgeType),
	})
	if err != nil {
		return err
	}
	printWorker(c.stdout, w)
	return nil
}

func (c *commands) workerListCmd(ctx context.Context, args []string) error {
	fs := newFlagSet("worker list")
	officeCode := fs.String("office", "", "only workers of this office code")
	pageSize := fs.Int("page-size", 0, "workers per page (0 uses the default)")
	pageToken := fs.String("page-token", "", "token printed by the previous page")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: worker list takes no arguments", errUsage)
	}

	result, err := c.workers.ListWorkers(ctx, worker.ListWorkersInput{
		Office:    *officeCode,
		PageSize:  *pageSize,
		PageToken: *pageToken,
	})
	if err != nil {
		return err
	}
	for _, w := range result.Workers {
		fmt.Fprintf(c.stdout, "%-10s %-24s %-24s %-8s %s\n", w.NationalID, w.Surname, w.Name, w.Office, w.BadgeType)
	}
	if result.NextPageToken != "" {
		fmt.Fprintf(c.stdout, "next page: -page-token %s\n", result.NextPageToken)
	}
	return nil
}

func printWorker(out io.Writer, w *worker.Worker) {
	fmt.Fprintf(out, "%s %s\nid: %s\noffice: %s\ntitle: %s\nbadge type: %s\n",
		w.Name, w.Surname, w.NationalID, w.Office, w.Title, w.BadgeType)
}

// promptConfirmer は重複行ごとに端末で y/n を尋ねます。入力が尽きた場合は更新しません。
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) ConfirmUpdate(ctx context.Context, existing *worker.Worker, row importer.ImportRow) (bool, error) {
	fmt.Fprintf(p.out, "\nline %d: national id %s already exists\n", row.Line, existing.NationalID)
	fmt.Fprintf(p.out, "  stored:   %s %s, office %s, title %s\n", existing.Name, existing.Surname, existing.Office, existing.Title)
	fmt.Fprintf(p.out, "  incoming: %s %s, office %s, title %s\n", row.Name, row.Surname, row.Office, row.Title)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprint(p.out, "update this worker? [y/N]: ")

		line, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes", "s", "si":
			return true, nil
		case "", "n", "no":
			if err != nil && err != io.EOF {
				return false, err
			}
			return false, nil
		}
		if err != nil {
			return false, nil
		}
		fmt.Fprintln(p.out, "please answer y or n")
	}
}
