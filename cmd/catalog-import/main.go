// Command catalog-import loads a YAML catalog into the SQLite static data
// store used by the calculation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/scenecalc/internal/adapters/repository"
	"github.com/okian/scenecalc/pkg/logger"
)

const defaultDSN = "data/game_data.sqlite"

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			os.Stderr.WriteString("catalog-import: " + err.Error() + "\n")
		}
		stop()
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		catalogFile = fs.String("catalog", "", "YAML catalog to import (required)")
		dsn         = fs.String("db", defaultDSN, "SQLite static data store path")
		dryRun      = fs.Bool("dry-run", false, "Validate the catalog without writing")
		verbose     = fs.Bool("verbose", false, "Enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *catalogFile == "" {
		fs.Usage()
		return fmt.Errorf("%w: -catalog is required", errUsage)
	}

	if err := logger.InitWithWriter(os.Stderr, logger.FormatText); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("catalog-import")

	start := time.Now()
	cf, err := repository.LoadCatalogFile(*catalogFile)
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Fprintf(out, "%s is valid: %s tags, %s viewer groups, %s policies, %s config keys\n",
			*catalogFile,
			humanize.Comma(int64(len(cf.Tags))),
			humanize.Comma(int64(len(cf.ViewerGroups))),
			humanize.Comma(int64(len(cf.OnSetPolicies))),
			humanize.Comma(int64(len(cf.GameConfig))))
		return nil
	}

	store, err := repository.Open(ctx, *dsn, repository.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := repository.Import(ctx, store, cf)
	if err != nil {
		return fmt.Errorf("import %s: %w", *catalogFile, err)
	}
	log.Info(ctx, "catalog imported",
		logger.String("catalog", *catalogFile),
		logger.String("db", *dsn),
		logger.Duration("took", time.Since(start)))

	fmt.Fprintf(out, "imported %s tags, %s viewer groups, %s production tiers, %s policies, %s config keys\n",
		humanize.Comma(int64(stats.Tags)),
		humanize.Comma(int64(stats.ViewerGroups)),
		humanize.Comma(int64(stats.Tiers)),
		humanize.Comma(int64(stats.Policies)),
		humanize.Comma(int64(stats.ConfigKeys)))
	if fi, err := os.Stat(*dsn); err == nil {
		fmt.Fprintf(out, "%s is now %s\n", *dsn, humanize.Bytes(uint64(fi.Size())))
	}
	return nil
}
