package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/carnet-craft/internal/platform/app"
	"github.com/ogurasousui/carnet-craft/internal/platform/config"
	"github.com/ogurasousui/carnet-craft/internal/platform/logging"
)

const usage = `usage: carnet [-config path] <command> [args]

commands:
  import [-on-duplicate ask|update|skip] <file>
  generate [-out dir] <national-id>...
  issue [-days n] <national-id>
  offices list
  offices add <name> <code>
  offices edit <old-code> <name> <code>
  offices remove <code>
  worker add -name n -surname s -office o -title t -photo path [-type t] <national-id>
  worker edit [-name n] [-surname s] [-office o] [-title t] [-photo path] [-type t] <national-id>
  worker list [-office code] [-page-size n] [-page-token t]
  worker show <national-id>
  worker delete <national-id>
  badge history <national-id>
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := app.LoadEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load(app.ConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer a.Close()

	cli := &commands{
		workers:       a.Workers,
		offices:       a.Offices,
		importer:      a.Importer,
		tracker:       a.Tracker,
		generator:     a.Generator,
		defaultPolicy: cfg.Import.OnDuplicate,
		stdin:         os.Stdin,
		stdout:        os.Stdout,
	}
	if err := cli.run(ctx, flag.Args()); err != nil {
		a.Close()
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "carnet: %v\n", err)
		os.Exit(1)
	}
}

func (c *commands) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "import":
		return c.importCmd(ctx, args[1:])
	case "generate":
		return c.generateCmd(ctx, args[1:])
	case "issue":
		return c.issueCmd(ctx, args[1:])
	case "offices":
		return c.officesCmd(ctx, args[1:])
	case "worker":
		return c.workerCmd(ctx, args[1:])
	case "badge":
		return c.badgeCmd(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
