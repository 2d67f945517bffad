package mirror

import "testing"

func TestClassify(t *testing.T) {
	c := MustClassifier(DefaultDocumentPatterns)

	tests := []struct {
		url  string
		want Kind
	}{
		{"https://example.com/paper.pdf", KindDocument},
		{"https://example.com/PAPER.PDF", KindDocument},
		{"https://example.com/Paper.Pdf", KindDocument},
		{"https://arxiv.org/pdf/1234.5678", KindDocument},
		{"HTTPS://ARXIV.ORG/PDF/1234", KindDocument},
		{"https://arxiv.org/abs/1234.5678", KindLink},
		{"https://example.com/a", KindLink},
		{"https://example.com/paper.pdf?download=1", KindLink},
		{"https://example.com/pdf/", KindLink},
		{"", KindLink},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestNewClassifier_Invalid(t *testing.T) {
	if _, err := NewClassifier([]string{`(`}); err == nil {
		t.Error("NewClassifier() should reject an invalid pattern")
	}
}

func TestClassifier_Empty(t *testing.T) {
	c, err := NewClassifier(nil)
	if err != nil {
		t.Fatalf("NewClassifier() failed: %v", err)
	}
	if got := c.Classify("https://example.com/a.pdf"); got != KindLink {
		t.Errorf("Classify() = %v, want link with no patterns", got)
	}
}
