package form

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/payload"
)

// DefaultQuestionScore is the score a fresh coding form starts with.
const DefaultQuestionScore = 1

// CodingState is a snapshot of a coding-family form.
type CodingState struct {
	ArchiveVerified    bool   `json:"archive_verified"`
	UploadAcknowledged bool   `json:"upload_acknowledged"`
	DestinationURL     string `json:"destination_url"`
	IsJSONConverted    bool   `json:"is_json_converted"`
	QuestionScore      int    `json:"question_score"`
}

// Coding sequences archive check, external upload, destination URL and
// metadata for the Coding Questions and Code Analysis categories.
type Coding struct {
	cat  content.Category
	opts Options

	archiveVerified bool
	archiveOutcome  *archive.Outcome
	uploadAcked     bool
	destinationURL  string
	metadataDone    bool
	jsonConverted   bool
	score           int
}

func NewCoding(cat content.Category, opts Options) *Coding {
	return &Coding{cat: cat, opts: opts, score: DefaultQuestionScore}
}

func (c *Coding) Category() content.Category { return c.cat }

// ArchiveSelected records that a new archive was chosen; step 1 stays
// incomplete until that archive is validated.
func (c *Coding) ArchiveSelected() {
	c.archiveVerified = false
	c.archiveOutcome = nil
}

// ArchiveValidated applies the validator's verdict for the current archive.
func (c *Coding) ArchiveValidated(o archive.Outcome) {
	c.archiveVerified = o.Success
	c.archiveOutcome = &o
}

// ArchiveOutcome returns the latest validation result, if any.
func (c *Coding) ArchiveOutcome() (archive.Outcome, bool) {
	if c.archiveOutcome == nil {
		return archive.Outcome{}, false
	}
	return *c.archiveOutcome, true
}

// AcknowledgeUpload records that the operator opened the external upload
// page. It only counts while the current archive is verified.
func (c *Coding) AcknowledgeUpload() error {
	if !c.archiveVerified {
		return fmt.Errorf("%w: verify the archive before uploading", ErrStepLocked)
	}
	c.uploadAcked = true
	return nil
}

func (c *Coding) SetDestinationURL(u string) error {
	if !c.uploadUnlocked() {
		return fmt.Errorf("%w: open the upload page first", ErrStepLocked)
	}
	c.destinationURL = u
	if c.urlStep() {
		c.metadataDone = true
	}
	return nil
}

func (c *Coding) SetJSONConverted(v bool) error {
	if !c.metadataUnlocked() {
		return fmt.Errorf("%w: paste a valid destination URL first", ErrStepLocked)
	}
	c.jsonConverted = v
	return nil
}

func (c *Coding) SetQuestionScore(n int) error {
	if !c.metadataUnlocked() {
		return fmt.Errorf("%w: paste a valid destination URL first", ErrStepLocked)
	}
	if n < 0 {
		return ErrNegativeScore
	}
	c.score = n
	return nil
}

// SetMetadata applies the JSON-converted flag and, when score is given, the
// question score. Nothing changes unless both are accepted.
func (c *Coding) SetMetadata(jsonConverted bool, score *int) error {
	if !c.metadataUnlocked() {
		return fmt.Errorf("%w: paste a valid destination URL first", ErrStepLocked)
	}
	if score != nil && *score < 0 {
		return ErrNegativeScore
	}
	c.jsonConverted = jsonConverted
	if score != nil {
		c.score = *score
	}
	return nil
}

func (c *Coding) urlFormatValid() bool {
	return strings.HasPrefix(strings.TrimSpace(c.destinationURL), "http")
}

func (c *Coding) uploadStep() bool {
	if c.opts.Strict {
		return c.archiveVerified && c.uploadAcked
	}
	return c.uploadAcked
}

func (c *Coding) urlStep() bool { return c.uploadStep() && c.urlFormatValid() }

func (c *Coding) metadataStep() bool {
	if c.opts.Strict {
		return c.urlStep()
	}
	return c.metadataDone
}

func (c *Coding) uploadUnlocked() bool { return c.uploadStep() }

func (c *Coding) metadataUnlocked() bool {
	if c.opts.Strict {
		return c.urlStep()
	}
	return c.metadataDone
}

func (c *Coding) Steps() []StepStatus {
	return []StepStatus{
		{Step: StepArchiveVerified, Completed: c.archiveVerified, Unlocked: true},
		{Step: StepUploadAcknowledged, Completed: c.uploadStep(), Unlocked: c.archiveVerified},
		{Step: StepDestinationURL, Completed: c.urlStep(), Unlocked: c.uploadUnlocked()},
		{Step: StepMetadata, Completed: c.metadataStep(), Unlocked: c.metadataUnlocked()},
	}
}

// Ready holds once metadata latched and the URL currently in the form still
// passes the link check.
func (c *Coding) Ready() bool { return c.metadataStep() && c.urlFormatValid() }

func (c *Coding) Pending() *Incomplete {
	if c.Ready() {
		return nil
	}
	switch {
	case !c.archiveVerified && !c.uploadStep():
		msg := fmt.Sprintf("Archive with a %q folder is not verified yet", c.cat.RequiredFolder())
		if c.archiveOutcome != nil {
			msg = c.archiveOutcome.Message
		}
		return &Incomplete{Step: StepArchiveVerified, Message: msg}
	case !c.uploadStep():
		return &Incomplete{Step: StepUploadAcknowledged, Message: "JSON is not uploaded yet"}
	case strings.TrimSpace(c.destinationURL) == "":
		return &Incomplete{Step: StepDestinationURL, Message: "JSON link is missing"}
	case !c.urlFormatValid():
		return &Incomplete{Step: StepDestinationURL, Message: "JSON link is invalid"}
	}
	return &Incomplete{Step: StepMetadata, Message: "Metadata is incomplete"}
}

func (c *Coding) State() CodingState {
	return CodingState{
		ArchiveVerified:    c.archiveVerified,
		UploadAcknowledged: c.uploadAcked,
		DestinationURL:     c.destinationURL,
		IsJSONConverted:    c.jsonConverted,
		QuestionScore:      c.score,
	}
}

func (c *Coding) Payload() payload.Payload {
	return payload.BuildCoding(c.destinationURL, c.jsonConverted, c.score)
}
