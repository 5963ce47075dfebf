package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/payload"
)

var (
	passed = archive.Outcome{Success: true, Message: "ok", Reason: archive.ReasonOK}
	failed = archive.Outcome{Message: "missing folder", Reason: archive.ReasonStructureMismatch}
)

func completed(steps []StepStatus) []bool {
	out := make([]bool, len(steps))
	for i, s := range steps {
		out[i] = s.Completed
	}
	return out
}

func TestNewForm(t *testing.T) {
	f, err := New(content.MCQ, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MCQ{}, f)

	f, err = New(content.CodeAnalysis, Options{})
	require.NoError(t, err)
	assert.Equal(t, content.CodeAnalysis, f.Category())

	_, err = New("ESSAY", Options{})
	assert.ErrorIs(t, err, content.ErrUnknownCategory)
}

func TestMCQGate(t *testing.T) {
	m := NewMCQ()
	assert.Equal(t, "Spreadsheet name is missing", m.Pending().Message)
	assert.ErrorIs(t, m.ToggleSubsheet("Questions"), ErrStepLocked)

	m.SetSheetName("   ")
	assert.False(t, m.Ready())

	m.SetSheetName("Authentication- theory")
	assert.Equal(t, StepSubsheets, m.Pending().Step)
	assert.Equal(t, "No sub-sheets selected", m.Pending().Message)

	require.NoError(t, m.ToggleSubsheet("Options"))
	require.NoError(t, m.ToggleSubsheet("Questions"))
	assert.ErrorIs(t, m.ToggleSubsheet("Answers"), ErrUnknownSubsheet)
	assert.True(t, m.Ready())
	assert.Nil(t, m.Pending())

	assert.Equal(t, payload.MCQ{
		SpreadSheetName:    "Authentication- theory",
		DataSetsToBeLoaded: []string{"Options", "Questions"},
	}, m.Payload())
}

func TestMCQToggleRemoves(t *testing.T) {
	m := NewMCQ()
	m.SetSheetName("S")
	require.NoError(t, m.ToggleSubsheet("Questions"))
	require.NoError(t, m.ToggleSubsheet("Options"))
	require.NoError(t, m.ToggleSubsheet("Metadata"))
	require.NoError(t, m.ToggleSubsheet("Options"))

	assert.Equal(t, []string{"Questions", "Metadata"}, m.State().Subsheets)
	assert.True(t, m.Selected("Metadata"))
	assert.False(t, m.Selected("Options"))
}

func TestMCQClearingSheetKeepsSelection(t *testing.T) {
	m := NewMCQ()
	m.SetSheetName("S")
	require.NoError(t, m.ToggleSubsheet("Questions"))

	m.SetSheetName("")
	assert.False(t, m.Ready())
	assert.Equal(t, []string{"Questions"}, m.State().Subsheets)
	assert.ErrorIs(t, m.ToggleSubsheet("Questions"), ErrStepLocked)
}

// walk drives a coding form through every step.
func walk(t *testing.T, c *Coding) {
	t.Helper()
	c.ArchiveSelected()
	c.ArchiveValidated(passed)
	require.NoError(t, c.AcknowledgeUpload())
	require.NoError(t, c.SetDestinationURL(" https://bucket.example/Coding Questions/q1 "))
}

func TestCodingProgression(t *testing.T) {
	c := NewCoding(content.CodingQuestions, Options{})
	assert.Equal(t, []bool{false, false, false, false}, completed(c.Steps()))
	assert.Equal(t, StepArchiveVerified, c.Pending().Step)

	assert.ErrorIs(t, c.AcknowledgeUpload(), ErrStepLocked)
	assert.ErrorIs(t, c.SetDestinationURL("http://x"), ErrStepLocked)
	assert.ErrorIs(t, c.SetJSONConverted(true), ErrStepLocked)
	assert.ErrorIs(t, c.SetQuestionScore(3), ErrStepLocked)

	c.ArchiveSelected()
	c.ArchiveValidated(failed)
	assert.Equal(t, "missing folder", c.Pending().Message)
	assert.ErrorIs(t, c.AcknowledgeUpload(), ErrStepLocked)

	c.ArchiveValidated(passed)
	require.NoError(t, c.AcknowledgeUpload())
	assert.Equal(t, "JSON link is missing", c.Pending().Message)

	require.NoError(t, c.SetDestinationURL("ftp://x"))
	assert.Equal(t, "JSON link is invalid", c.Pending().Message)
	assert.ErrorIs(t, c.SetQuestionScore(3), ErrStepLocked)

	require.NoError(t, c.SetDestinationURL("  http://x  "))
	assert.Equal(t, []bool{true, true, true, true}, completed(c.Steps()))
	assert.True(t, c.Ready())
	assert.Nil(t, c.Pending())

	require.NoError(t, c.SetQuestionScore(5))
	assert.ErrorIs(t, c.SetQuestionScore(-1), ErrNegativeScore)
	score := 5
	assert.Equal(t, payload.Coding{InputDirPathURL: "http://x", QuestionScore: &score}, c.Payload())

	require.NoError(t, c.SetJSONConverted(true))
	assert.Equal(t, payload.Coding{InputDirPathURL: "http://x", IsJSONConverted: true}, c.Payload())
}

func TestCodingDefaults(t *testing.T) {
	c := NewCoding(content.CodeAnalysis, Options{})
	assert.Equal(t, CodingState{QuestionScore: DefaultQuestionScore}, c.State())
	assert.Contains(t, c.Pending().Message, "Code Analysis MCQs")
	_, ok := c.ArchiveOutcome()
	assert.False(t, ok)
}

func TestCodingEarlierEditsDoNotCascade(t *testing.T) {
	c := NewCoding(content.CodingQuestions, Options{})
	walk(t, c)
	require.True(t, c.Ready())

	c.ArchiveSelected()
	c.ArchiveValidated(failed)
	require.NoError(t, c.SetDestinationURL(""))

	assert.Equal(t, []bool{false, true, false, true}, completed(c.Steps()))
	require.NoError(t, c.SetQuestionScore(2))

	require.NoError(t, c.SetDestinationURL("http://y"))
	assert.True(t, c.Ready())
}

func TestCodingLatchedURLEditedAway(t *testing.T) {
	c := NewCoding(content.CodingQuestions, Options{})
	walk(t, c)
	require.True(t, c.Ready())

	require.NoError(t, c.SetDestinationURL(""))
	assert.False(t, c.Ready())
	require.NotNil(t, c.Pending())
	assert.Equal(t, StepDestinationURL, c.Pending().Step)
	assert.Equal(t, "JSON link is missing", c.Pending().Message)

	require.NoError(t, c.SetDestinationURL("file:///tmp/x"))
	assert.False(t, c.Ready())
	assert.Equal(t, "JSON link is invalid", c.Pending().Message)

	// metadata stays latched; a valid link is all that is missing
	require.NoError(t, c.SetJSONConverted(true))
	require.NoError(t, c.SetDestinationURL("https://files.example/set"))
	assert.True(t, c.Ready())
	assert.Nil(t, c.Pending())
}

func TestCodingStrictCascades(t *testing.T) {
	c := NewCoding(content.CodingQuestions, Options{Strict: true})
	walk(t, c)
	require.True(t, c.Ready())

	c.ArchiveSelected()
	assert.Equal(t, []bool{false, false, false, false}, completed(c.Steps()))
	assert.False(t, c.Ready())
	assert.Equal(t, StepArchiveVerified, c.Pending().Step)
	assert.ErrorIs(t, c.SetDestinationURL("http://y"), ErrStepLocked)

	c.ArchiveValidated(passed)
	assert.True(t, c.Ready())

	require.NoError(t, c.SetDestinationURL("nope"))
	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.SetJSONConverted(true), ErrStepLocked)
}

func TestCodingPayloadIsPureFunctionOfState(t *testing.T) {
	a := NewCoding(content.CodingQuestions, Options{})
	walk(t, a)
	require.NoError(t, a.SetQuestionScore(9))
	require.NoError(t, a.SetQuestionScore(4))

	b := NewCoding(content.CodingQuestions, Options{})
	walk(t, b)
	require.NoError(t, b.SetQuestionScore(4))

	assert.Equal(t, a.Payload(), b.Payload())
}

func TestIncompleteIsError(t *testing.T) {
	var err error = NewMCQ().Pending()
	assert.EqualError(t, err, "Spreadsheet name is missing")
}

func TestStepText(t *testing.T) {
	b, err := StepDestinationURL.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "destination_url_valid", string(b))
	assert.Equal(t, "step(42)", Step(42).String())
}

func TestCodingSetMetadataIsAllOrNothing(t *testing.T) {
	c := NewCoding(content.CodingQuestions, Options{})
	assert.ErrorIs(t, c.SetMetadata(true, nil), ErrStepLocked)

	walk(t, c)
	neg := -1
	assert.ErrorIs(t, c.SetMetadata(true, &neg), ErrNegativeScore)
	assert.Equal(t, CodingState{
		ArchiveVerified:    true,
		UploadAcknowledged: true,
		DestinationURL:     " https://bucket.example/Coding Questions/q1 ",
		QuestionScore:      DefaultQuestionScore,
	}, c.State())

	score := 7
	require.NoError(t, c.SetMetadata(false, &score))
	assert.Equal(t, 7, c.State().QuestionScore)
	require.NoError(t, c.SetMetadata(true, nil))
	assert.True(t, c.State().IsJSONConverted)
	assert.Equal(t, 7, c.State().QuestionScore)
}
