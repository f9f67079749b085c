package persona

import "testing"

func TestMentorIsComplete(t *testing.T) {
	m := Mentor()
	if m.ID == "" || m.Title == "" || m.OpeningLine == "" {
		t.Fatalf("mentor persona missing identity fields: %+v", m)
	}
	if len(m.Rules) == 0 {
		t.Fatal("mentor persona should carry conversation rules")
	}
}
