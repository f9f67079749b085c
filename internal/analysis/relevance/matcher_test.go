package relevance

import "testing"

func TestAnalyzeMatchesVocabulary(t *testing.T) {
	m := NewMatcher()

	cases := map[string]bool{
		"summarize the file":          true,
		"What does the DOCUMENT say?": true,
		"I uploaded my notes":         true,
		"can you read this":           true,
		"What is a pointer?":          false,
		"":                            false,
	}
	for msg, want := range cases {
		if got := m.Analyze(msg).Related; got != want {
			t.Fatalf("Analyze(%q).Related = %v, want %v", msg, got, want)
		}
	}
}

func TestAnalyzeReportsMatches(t *testing.T) {
	decision := NewMatcher().Analyze("read the uploaded file")
	if len(decision.Matches) != 3 {
		t.Fatalf("expected three matches, got %v", decision.Matches)
	}
}

func TestCustomVocabulary(t *testing.T) {
	m := NewMatcher(" Slides ", "")
	if !m.Analyze("explain slide 3 of the slides").Related {
		t.Fatal("expected custom keyword to match")
	}
	if m.Analyze("summarize the file").Related {
		t.Fatal("default vocabulary must not apply when custom keywords are given")
	}
}
