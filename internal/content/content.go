package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCategory    = errors.New("unknown content category")
	ErrUnknownEnvironment = errors.New("unknown environment")
)

type Category string

const (
	MCQ             Category = "MCQ"
	CodeAnalysis    Category = "CODE_ANALYSIS"
	CodingQuestions Category = "CODING_QUESTIONS"
)

// Categories lists every category in display order.
var Categories = []Category{MCQ, CodeAnalysis, CodingQuestions}

func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mcq":
		return MCQ, nil
	case "code_analysis", "code-analysis", "codeanalysis":
		return CodeAnalysis, nil
	case "coding_questions", "coding-questions", "coding":
		return CodingQuestions, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// RequiresArchive reports whether the category goes through the archive step.
func (c Category) RequiresArchive() bool {
	return c == CodeAnalysis || c == CodingQuestions
}

// RequiredFolder is the folder an archive of this category must carry.
func (c Category) RequiredFolder() string {
	switch c {
	case CodingQuestions:
		return "Coding Questions"
	case CodeAnalysis:
		return "Code Analysis MCQs"
	}
	return ""
}

func (c Category) Title() string {
	switch c {
	case MCQ:
		return "MCQ Loading"
	case CodeAnalysis:
		return "Code Analysis"
	case CodingQuestions:
		return "Coding Questions"
	}
	return string(c)
}

type Environment string

const (
	Prod Environment = "PROD"
	Beta Environment = "BETA"
)

var Environments = []Environment{Prod, Beta}

func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PROD", "PRODUCTION":
		return Prod, nil
	case "BETA":
		return Beta, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// SubsheetOptions are the datasets an MCQ spreadsheet can load, in display order.
var SubsheetOptions = []string{
	"Questions",
	"Question Tags",
	"Options",
	"Explanations",
	"Metadata",
}

func IsSubsheet(name string) bool {
	for _, s := range SubsheetOptions {
		if s == name {
			return true
		}
	}
	return false
}
