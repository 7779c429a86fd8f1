// Воркфлоу:
// 1. Найти каталог biblio корпуса idp.data
// 2. Прочитать все записи и привязать к ним рецензии
// 3. Разобрать строки C.R. и сопоставить их с рецензиями
// 4. Создать недостающие записи, заметки для BP и отчёт
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"example.com/crcheck/biblio"
	"example.com/crcheck/config"
	"example.com/crcheck/journals"
	"example.com/crcheck/ledger"
	"example.com/crcheck/logging"
	"example.com/crcheck/parser"
	"example.com/crcheck/reconcile"
	"example.com/crcheck/report"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Config load error: %v\n", err)
		os.Exit(1)
	}

	logger, session, err := logging.New(cfg.LogMode, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if session != "" {
		logger.Info("log session started", zap.String("dir", session))
	}

	start := cfg.StartDir
	if start == "" {
		if start, err = os.Getwd(); err != nil {
			logger.Fatal("Cannot determine working directory", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, start, logger, os.Stdin, os.Stdout); err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}
}

// run performs one batch pass over the corpus found above start. Output
// files with relative names are placed in start.
func run(ctx context.Context, cfg *config.Config, start string, logger *zap.Logger, in io.Reader, out io.Writer) error {
	biblioDir, err := biblio.FindBiblioDirectory(start, cfg.CorpusMarker, cfg.BiblioDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Biblio directory: %s\n", biblioDir)

	tablePath := locate(cfg.JournalTable, start, filepath.Dir(biblioDir))
	resolver := journals.NewResolver(journals.FileLoader{Path: tablePath}, logger)
	if err := resolver.Preload(); err != nil {
		return fmt.Errorf("journal table %s: %w", tablePath, err)
	}

	entries, err := biblio.NewGatherer(biblioDir, cfg.FolderStart, cfg.FolderEnd, logger).Gather()
	if err != nil {
		return err
	}
	attached := biblio.AttachReviews(entries, logger)
	fmt.Fprintf(out, "✓ Gathered %d entries, %d reviews attached\n", len(entries), attached)

	citations := parser.New(resolver, logger).ParseAll(entries)
	fmt.Fprintf(out, "✓ Parsed %d CR citations\n", citations)

	led, err := ledger.Open(under(start, cfg.StateFile))
	if err != nil {
		return err
	}
	seed := max(biblio.MaxID(entries), led.LastID)

	policy, err := reconcile.PolicyFor(cfg.Confirm, in, out)
	if err != nil {
		return err
	}

	driver := reconcile.NewDriver(
		reconcile.NewIDCounter(seed),
		policy,
		reconcile.DirWriter{Dir: filepath.Join(biblioDir, cfg.OutputFolder)},
		reconcile.FileNotes{Path: under(start, cfg.UpdatesFile)},
		led,
		reconcile.Options{BaseURL: cfg.BiblioBaseURL, SyncMatched: cfg.SyncMatched},
		out,
		logger,
	)
	sum, err := driver.Reconcile(ctx, entries)
	if err != nil {
		return err
	}

	reportPath := under(start, cfg.ReportFile)
	if err := report.Write(reportPath, sum.Rows); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Report saved to %s\n", reportPath)
	fmt.Fprintf(out, "%d entries compared, %d matched pairs, %d CR texts synced\n", sum.Entries, sum.Pairs, sum.Synced)
	fmt.Fprintf(out, "%d records created, %d declined, %d update notes\n", sum.Written, sum.Rejected, sum.Notes)
	fmt.Fprintf(out, "%d had no journal match\n", resolver.Unresolved())
	fmt.Fprintln(out, "Finished processing.")
	logger.Info("run finished",
		zap.Int("entries", sum.Entries),
		zap.Int("pairs", sum.Pairs),
		zap.Int("written", sum.Written),
		zap.Int("rejected", sum.Rejected),
		zap.Int("notes", sum.Notes),
		zap.Int("unresolved_records", sum.Unresolved),
		zap.Int("unresolved_lookups", resolver.Unresolved()),
	)
	return nil
}

func under(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// locate returns name under the first dir where it exists, or under the
// first dir when none has it.
func locate(name string, dirs ...string) string {
	if filepath.IsAbs(name) {
		return name
	}
	for _, d := range dirs {
		p := filepath.Join(d, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dirs[0], name)
}
