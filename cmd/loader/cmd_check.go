package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

var (
	checkCategory string
	checkWatch    bool
	checkList     bool
)

var errCheckFailed = errors.New("one or more archives failed validation")

// checkCmd validates archive structure without building a payload
var checkCmd = &cobra.Command{
	Use:   "check [archive.zip]...",
	Short: "Inspect archives and validate their folder structure",
	Long: `Lists every archive's entries and checks that the folder the category
needs is present. Archives are checked concurrently.

With --watch a single archive is re-checked every time it changes on disk;
only the most recent change is ever reported.

Example:
  loader check -c coding_questions week1.zip week2.zip
  loader check -c code_analysis --watch export.zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkCategory, "category", "c", string(content.CodingQuestions), "Content category")
	checkCmd.Flags().BoolVarP(&checkWatch, "watch", "w", false, "Re-check the archive whenever it changes")
	checkCmd.Flags().BoolVarP(&checkList, "list", "l", false, "Print archive entries")
}

type checkResult struct {
	path    string
	entries []archive.Entry
	outcome archive.Outcome
}

func runCheck(cmd *cobra.Command, args []string) error {
	cat, err := content.ParseCategory(checkCategory)
	if err != nil {
		return err
	}
	if !cat.RequiresArchive() {
		return fmt.Errorf("%s content has no archive to check", cat.Title())
	}

	if checkWatch {
		if len(args) != 1 {
			return errors.New("--watch takes exactly one archive")
		}
		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchArchive(ctx, args[0], cat, cmd.OutOrStdout())
	}

	results, err := checkArchives(cmdContext(cmd), args, cat)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := false
	for _, r := range results {
		printOutcome(out, r.path, r.outcome)
		if checkList {
			for _, e := range r.entries {
				fmt.Fprintf(out, "    %s\n", e.Path)
			}
		}
		if !r.outcome.Success {
			failed = true
		}
	}
	if failed {
		return errCheckFailed
	}
	return nil
}

// checkArchives inspects every path concurrently. Results keep argument order.
func checkArchives(ctx context.Context, paths []string, cat content.Category) ([]checkResult, error) {
	results := make([]checkResult, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, p := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			entries, err := archive.InspectFile(p)
			r := checkResult{path: p, entries: entries}
			if err != nil {
				r.outcome = archive.ReadFailure(err)
			} else {
				r.outcome = archive.Validate(entries, cat)
			}
			logger.Debug("archive checked",
				zap.String("path", p),
				zap.Int("entries", len(entries)),
				zap.String("reason", string(r.outcome.Reason)))
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printOutcome(w io.Writer, path string, o archive.Outcome) {
	mark := "ok  "
	if !o.Success {
		mark = "FAIL"
	}
	fmt.Fprintf(w, "%s %s: %s\n", mark, path, o.Message)
}

// watchArchive re-selects path in one session whenever it changes. A change
// that lands while the previous inspection is still running supersedes it.
func watchArchive(ctx context.Context, path string, cat content.Category, out io.Writer) error {
	env, err := environment()
	if err != nil {
		return err
	}
	scfg, err := sessionConfig()
	if err != nil {
		return err
	}
	s, err := session.New(cat, env, scfg)
	if err != nil {
		return err
	}
	defer s.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	// watch the directory: editors and exporters often replace the file
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	results := make(chan archive.Outcome, 1)
	var pending sync.WaitGroup
	defer pending.Wait()

	selectFile := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			printOutcome(out, path, archive.ReadFailure(err))
			return
		}
		in, err := s.SelectArchive(filepath.Base(path), data)
		if err != nil {
			printOutcome(out, path, archive.ReadFailure(err))
			return
		}
		pending.Add(1)
		go func() {
			defer pending.Done()
			outcome, stale, err := in.Wait(ctx)
			if err != nil || stale {
				return
			}
			select {
			case results <- outcome:
			case <-ctx.Done():
			}
		}()
	}

	selectFile()
	const debounce = 200 * time.Millisecond
	var fire <-chan time.Time
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-results:
			printOutcome(out, path, o)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fire = time.After(debounce)
		case <-fire:
			fire = nil
			selectFile()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}
