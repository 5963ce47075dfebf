package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/audit"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/handoff"
	"github.com/mind-engage/mindengage-loader/internal/payload"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

var (
	payloadCopy bool

	mcqSheet     string
	mcqSubsheets []string

	codingCategory   string
	codingArchive    string
	codingURL        string
	codingConverted  bool
	codingScore      int
	codingOpenUpload bool
)

// payloadCmd groups the per-category payload builders
var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Walk a category form and print its payload",
	Long: `Fills a form from flags, step by step, and prints the resulting JSON.
If a step is not satisfied the pending step is reported and nothing is printed.

With --copy the payload is put on the clipboard and the environment's admin
page is opened.`,
}

var payloadMCQCmd = &cobra.Command{
	Use:   "mcq",
	Short: "Build an MCQ spreadsheet payload",
	Long: `Example:
  loader payload mcq --sheet "Week 3" --subsheet Questions --subsheet Options`,
	Args: cobra.NoArgs,
	RunE: runPayloadMCQ,
}

var payloadCodingCmd = &cobra.Command{
	Use:   "coding",
	Short: "Build a code analysis or coding questions payload",
	Long: `Verifies the archive, acknowledges the upload, then applies the destination
URL and metadata.

Example:
  loader payload coding -c coding_questions --archive set.zip \
      --url https://files.example/set --score 5 --open-upload`,
	Args: cobra.NoArgs,
	RunE: runPayloadCoding,
}

func init() {
	payloadCmd.PersistentFlags().BoolVar(&payloadCopy, "copy", false, "Copy the payload and open the admin page")

	payloadMCQCmd.Flags().StringVar(&mcqSheet, "sheet", "", "Spreadsheet name")
	payloadMCQCmd.Flags().StringArrayVar(&mcqSubsheets, "subsheet", nil, "Sub-sheet to load (repeatable)")

	payloadCodingCmd.Flags().StringVarP(&codingCategory, "category", "c", string(content.CodingQuestions), "code_analysis or coding_questions")
	payloadCodingCmd.Flags().StringVar(&codingArchive, "archive", "", "Content archive (.zip)")
	payloadCodingCmd.Flags().StringVar(&codingURL, "url", "", "Destination URL of the uploaded JSON")
	payloadCodingCmd.Flags().BoolVar(&codingConverted, "json-converted", false, "Content is already JSON-converted")
	payloadCodingCmd.Flags().IntVar(&codingScore, "score", form.DefaultQuestionScore, "Question score (ignored when JSON-converted)")
	payloadCodingCmd.Flags().BoolVar(&codingOpenUpload, "open-upload", false, "Open the upload page once the archive is verified")
	_ = payloadCodingCmd.MarkFlagRequired("archive")

	payloadCmd.AddCommand(payloadMCQCmd)
	payloadCmd.AddCommand(payloadCodingCmd)
}

func newSession(cat content.Category) (*session.Session, error) {
	env, err := environment()
	if err != nil {
		return nil, err
	}
	scfg, err := sessionConfig()
	if err != nil {
		return nil, err
	}
	return session.New(cat, env, scfg)
}

func runPayloadMCQ(cmd *cobra.Command, args []string) error {
	s, err := newSession(content.MCQ)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SetSheetName(mcqSheet); err != nil {
		return err
	}
	// flags select; toggling a repeated name would drop it again
	seen := make(map[string]bool, len(mcqSubsheets))
	for _, name := range mcqSubsheets {
		if seen[name] {
			continue
		}
		seen[name] = true
		err := s.ToggleSubsheet(name)
		if errors.Is(err, form.ErrStepLocked) {
			break
		}
		if err != nil {
			return fmt.Errorf("sub-sheet %q: %w", name, err)
		}
	}
	return emit(cmdContext(cmd), cmd.OutOrStdout(), s)
}

func runPayloadCoding(cmd *cobra.Command, args []string) error {
	cat, err := content.ParseCategory(codingCategory)
	if err != nil {
		return err
	}
	if !cat.RequiresArchive() {
		return fmt.Errorf("use \"loader payload mcq\" for %s content", cat.Title())
	}
	s, err := newSession(cat)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmdContext(cmd)
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(codingArchive)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	in, err := s.SelectArchive(filepath.Base(codingArchive), data)
	if err != nil {
		return err
	}
	outcome, _, err := in.Wait(ctx)
	if err != nil {
		return err
	}
	printOutcome(out, codingArchive, outcome)
	if !outcome.Success {
		return outcome.Err()
	}

	uploadURL, err := s.AcknowledgeUpload()
	if err != nil {
		return err
	}
	if codingOpenUpload {
		newOpener().Open(uploadURL)
	} else {
		fmt.Fprintf(out, "upload the archive at %s\n", uploadURL)
	}

	if err := s.SetDestinationURL(codingURL); err != nil {
		return err
	}
	// a bad URL keeps metadata locked; emit reports which step is pending
	score := codingScore
	if err := s.SetMetadata(codingConverted, &score); err != nil && !errors.Is(err, form.ErrStepLocked) {
		return err
	}
	return emit(ctx, out, s)
}

// emit prints the payload of a ready form, or hands it off with --copy.
func emit(ctx context.Context, out io.Writer, s *session.Session) error {
	cat, p, pending := s.Payload()
	if pending != nil {
		fmt.Fprintf(out, "not ready: %s\n", pending.Message)
		return pending
	}
	if !payloadCopy {
		if err := payload.Check(cat, p); err != nil {
			return err
		}
		b, err := payload.Marshal(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	res, err := handoff.Prepare(cat, p, pending, s.Targets())
	if err != nil {
		return err
	}
	if err := handoff.CopyAndOpen(newClipboard(), newOpener(), res); err != nil {
		return err
	}
	fmt.Fprintf(out, "payload copied; paste it at %s\n", res.AdminURL)

	hist, closeHist, err := openHistory(ctx, false)
	if err != nil {
		logger.Warn("handoff not recorded", zap.Error(err))
		return nil
	}
	defer closeHist()
	if _, err := hist.Append(ctx, audit.Entry{
		Operator:    os.Getenv("USER"),
		Category:    string(cat),
		Environment: string(s.Environment()),
		Payload:     res.Text,
		AdminURL:    res.AdminURL,
	}); err != nil {
		logger.Warn("handoff not recorded", zap.Error(err))
	}
	return nil
}
