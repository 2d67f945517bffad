package mirror

import (
	"fmt"
	"regexp"
)

// Kind is how a bookmark is materialized.
type Kind int

const (
	// KindLink is written as a shortcut file.
	KindLink Kind = iota
	// KindDocument is downloaded.
	KindDocument
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// DocumentExt is the extension given to downloaded documents.
const DocumentExt = ".pdf"

// DefaultDocumentPatterns match URLs ending in .pdf and arXiv PDF paths.
var DefaultDocumentPatterns = []string{
	`\.pdf$`,
	`^https://arxiv\.org/pdf/`,
}

// Classifier decides whether a URL points at a document.
type Classifier struct {
	patterns []*regexp.Regexp
}

// NewClassifier compiles patterns, in order, as case-insensitive regular expressions.
func NewClassifier(patterns []string) (*Classifier, error) {
	c := &Classifier{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid document pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// MustClassifier is like NewClassifier but panics on an invalid pattern.
func MustClassifier(patterns []string) *Classifier {
	c, err := NewClassifier(patterns)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns KindDocument for the first matching pattern and KindLink otherwise.
func (c *Classifier) Classify(url string) Kind {
	for _, re := range c.patterns {
		if re.MatchString(url) {
			return KindDocument
		}
	}
	return KindLink
}
