package payload

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Payload is the JSON object handed to the admin page.
type Payload interface {
	payload()
}

// MCQ loads datasets from one spreadsheet.
type MCQ struct {
	SpreadSheetName    string   `json:"spread_sheet_name"`
	DataSetsToBeLoaded []string `json:"data_sets_to_be_loaded"`
}

// Coding points the admin task at an uploaded input directory.
type Coding struct {
	InputDirPathURL string `json:"input_dir_path_url"`
	IsJSONConverted bool   `json:"is_json_converted"`
	QuestionScore   *int   `json:"question_score,omitempty"`
}

func (MCQ) payload()    {}
func (Coding) payload() {}

// BuildMCQ never returns a nil dataset list so the JSON always carries an array.
func BuildMCQ(sheetName string, subsheets []string) MCQ {
	sets := make([]string, len(subsheets))
	copy(sets, subsheets)
	return MCQ{
		SpreadSheetName:    strings.TrimSpace(sheetName),
		DataSetsToBeLoaded: sets,
	}
}

// BuildCoding includes question_score only for content that is not JSON-converted.
func BuildCoding(url string, jsonConverted bool, score int) Coding {
	p := Coding{
		InputDirPathURL: strings.TrimSpace(url),
		IsJSONConverted: jsonConverted,
	}
	if !jsonConverted {
		s := score
		p.QuestionScore = &s
	}
	return p
}

// Marshal renders p the way it is copied to the clipboard: two-space
// indented JSON with no HTML escaping.
func Marshal(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
