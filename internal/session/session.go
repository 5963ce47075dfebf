package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/metrics"
	"github.com/mind-engage/mindengage-loader/internal/payload"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrWrongCategory = errors.New("operation does not apply to this category")
)

// InspectFunc lists the entries of a ZIP buffer.
type InspectFunc func(ctx context.Context, data []byte) ([]archive.Entry, error)

// Config carries the collaborators every session of a store shares.
type Config struct {
	Targets        content.TargetTable
	Form           form.Options
	Inspect        InspectFunc
	InspectTimeout time.Duration
	Logger         *zap.Logger
	Metrics        metrics.Metrics
}

func (c Config) withDefaults() Config {
	if c.Targets == nil {
		c.Targets = content.DefaultTargets()
	}
	if c.Inspect == nil {
		c.Inspect = archive.InspectContext
	}
	if c.InspectTimeout <= 0 {
		c.InspectTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	return c
}

// Session owns the form of one category+environment selection.
type Session struct {
	ID string

	cfg Config

	mu       sync.Mutex
	category content.Category
	env      content.Environment
	form     form.Form
	archive  string // name of the selected archive
	entries  []archive.Entry
	current  *Inspection
	gen      uint64
	updated  time.Time
}

// New starts a session with an empty form for cat in env.
func New(cat content.Category, env content.Environment, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{ID: uuid.NewString(), cfg: cfg}
	if err := s.reset(cat, env); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) reset(cat content.Category, env content.Environment) error {
	if _, err := s.cfg.Targets.For(env); err != nil {
		return err
	}
	f, err := form.New(cat, s.cfg.Form)
	if err != nil {
		return err
	}
	if s.current != nil {
		s.current.cancel()
	}
	s.gen++
	s.category, s.env, s.form = cat, env, f
	s.archive, s.entries, s.current = "", nil, nil
	s.updated = time.Now()
	return nil
}

// Switch changes the selection. Any change of category or environment
// discards the form; selecting the same pair keeps it.
func (s *Session) Switch(cat content.Category, env content.Environment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cat == s.category && env == s.env {
		return false, nil
	}
	if err := s.reset(cat, env); err != nil {
		return false, err
	}
	s.cfg.Logger.Debug("session reset", zap.String("session", s.ID),
		zap.String("category", string(cat)), zap.String("environment", string(env)))
	return true, nil
}

func (s *Session) Category() content.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

func (s *Session) Environment() content.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env
}

func (s *Session) Targets() content.Targets {
	s.mu.Lock()
	defer s.mu.Unlock()
	tg, _ := s.cfg.Targets.For(s.env)
	return tg
}

func (s *Session) coding() (*form.Coding, error) {
	c, ok := s.form.(*form.Coding)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWrongCategory, s.category)
	}
	return c, nil
}

func (s *Session) mcq() (*form.MCQ, error) {
	m, ok := s.form.(*form.MCQ)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWrongCategory, s.category)
	}
	return m, nil
}

func (s *Session) touch() { s.updated = time.Now() }

// Inspection is one in-flight archive check.
type Inspection struct {
	gen     uint64
	name    string
	cancel  context.CancelFunc
	done    chan struct{}
	outcome archive.Outcome
	stale   bool
}

func (i *Inspection) Done() <-chan struct{} { return i.done }

// Wait blocks until the inspection finishes or ctx ends. Stale reports
// whether a newer selection superseded this one; its outcome was not applied.
func (i *Inspection) Wait(ctx context.Context) (outcome archive.Outcome, stale bool, err error) {
	select {
	case <-i.done:
		return i.outcome, i.stale, nil
	case <-ctx.Done():
		return archive.Outcome{}, false, ctx.Err()
	}
}

// SelectArchive makes data the current archive and inspects it in the
// background. A previous inspection still running is cancelled and its
// result is never applied.
func (s *Session) SelectArchive(name string, data []byte) (*Inspection, error) {
	s.mu.Lock()
	c, err := s.coding()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.current != nil {
		s.current.cancel()
	}
	s.gen++
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.InspectTimeout)
	in := &Inspection{gen: s.gen, name: name, cancel: cancel, done: make(chan struct{})}
	s.current = in
	s.archive, s.entries = name, nil
	c.ArchiveSelected()
	cat := s.category
	s.touch()
	s.mu.Unlock()

	go s.inspect(ctx, in, cat, data)
	return in, nil
}

func (s *Session) inspect(ctx context.Context, in *Inspection, cat content.Category, data []byte) {
	defer close(in.done)
	defer in.cancel()

	start := time.Now()
	entries, err := s.cfg.Inspect(ctx, data)
	var outcome archive.Outcome
	switch {
	case err == nil:
		outcome = archive.Validate(entries, cat)
	case errors.Is(err, context.DeadlineExceeded):
		outcome = archive.Outcome{Message: "Unable to read archive: inspection timed out.", Reason: archive.ReasonUnreadable}
	case errors.Is(err, context.Canceled):
		outcome = archive.Outcome{Message: "Archive inspection was cancelled.", Reason: archive.ReasonUnreadable}
	default:
		outcome = archive.ReadFailure(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	in.outcome = outcome
	if in.gen != s.gen || s.current != in {
		in.stale = true
		s.cfg.Logger.Debug("discarding stale inspection",
			zap.String("session", s.ID), zap.String("archive", in.name))
		return
	}
	if c, ok := s.form.(*form.Coding); ok {
		c.ArchiveValidated(outcome)
	}
	s.entries = entries
	s.current = nil
	s.touch()
	s.cfg.Metrics.ObserveInspection(string(cat), string(outcome.Reason), time.Since(start).Seconds())
	s.cfg.Logger.Info("archive inspected",
		zap.String("session", s.ID),
		zap.String("archive", in.name),
		zap.Int("entries", len(entries)),
		zap.Bool("success", outcome.Success),
		zap.String("reason", string(outcome.Reason)))
}

// AcknowledgeUpload records that the operator is uploading the verified
// archive and returns the upload page to open.
func (s *Session) AcknowledgeUpload() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.coding()
	if err != nil {
		return "", err
	}
	if err := c.AcknowledgeUpload(); err != nil {
		return "", err
	}
	s.touch()
	tg, _ := s.cfg.Targets.For(s.env)
	return tg.UploadURL, nil
}

func (s *Session) SetDestinationURL(u string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.coding()
	if err != nil {
		return err
	}
	if err := c.SetDestinationURL(u); err != nil {
		return err
	}
	s.touch()
	return nil
}

// SetMetadata applies the JSON-converted flag and, when given, the score.
func (s *Session) SetMetadata(jsonConverted bool, score *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.coding()
	if err != nil {
		return err
	}
	if err := c.SetMetadata(jsonConverted, score); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Session) SetSheetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.mcq()
	if err != nil {
		return err
	}
	m.SetSheetName(name)
	s.touch()
	return nil
}

func (s *Session) ToggleSubsheet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.mcq()
	if err != nil {
		return err
	}
	if err := m.ToggleSubsheet(name); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Payload returns the current payload and, when the form is not ready, the
// gate still pending.
func (s *Session) Payload() (content.Category, payload.Payload, *form.Incomplete) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category, s.form.Payload(), s.form.Pending()
}

// View is a read-only snapshot for display.
type View struct {
	ID          string              `json:"id"`
	Category    content.Category    `json:"category"`
	Environment content.Environment `json:"environment"`
	Targets     content.Targets     `json:"targets"`
	Steps       []form.StepStatus   `json:"steps"`
	Ready       bool                `json:"ready"`
	Pending     *form.Incomplete    `json:"pending,omitempty"`
	Payload     payload.Payload     `json:"payload"`

	MCQ    *form.MCQState    `json:"mcq,omitempty"`
	Coding *form.CodingState `json:"coding,omitempty"`

	Archive    string           `json:"archive,omitempty"`
	Inspecting bool             `json:"inspecting"`
	Outcome    *archive.Outcome `json:"outcome,omitempty"`
	Entries    []archive.Entry  `json:"entries,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	tg, _ := s.cfg.Targets.For(s.env)
	v := View{
		ID:          s.ID,
		Category:    s.category,
		Environment: s.env,
		Targets:     tg,
		Steps:       s.form.Steps(),
		Ready:       s.form.Ready(),
		Pending:     s.form.Pending(),
		Payload:     s.form.Payload(),
		Archive:     s.archive,
		Inspecting:  s.current != nil,
		Entries:     append([]archive.Entry(nil), s.entries...),
		UpdatedAt:   s.updated,
	}
	switch f := s.form.(type) {
	case *form.MCQ:
		st := f.State()
		v.MCQ = &st
	case *form.Coding:
		st := f.State()
		v.Coding = &st
		if o, ok := f.ArchiveOutcome(); ok {
			v.Outcome = &o
		}
	}
	return v
}

// Close cancels any inspection still running.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
	s.gen++
}
