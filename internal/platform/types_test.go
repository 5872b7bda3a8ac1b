package platform

import (
	"encoding/json"
	"testing"
)

func TestQuestionIdentity(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLib string
		wantVer string
		wantOK  bool
	}{
		{
			name:    "camel spelling",
			content: `{"LibraryID":"lib-9","Version":"3"}`,
			wantLib: "lib-9", wantVer: "3", wantOK: true,
		},
		{
			name:    "snake spelling",
			content: `{"library_id":"lib-9","Version":"3"}`,
			wantLib: "lib-9", wantVer: "3", wantOK: true,
		},
		{
			name:    "numeric ids",
			content: `{"LibraryID":90210,"Version":2}`,
			wantLib: "90210", wantVer: "2", wantOK: true,
		},
		{
			name:    "missing version",
			content: `{"LibraryID":"lib-9"}`,
			wantOK:  false,
		},
		{
			name:    "missing both spellings",
			content: `{"Version":"3"}`,
			wantOK:  false,
		},
		{
			name:    "empty content",
			content: `{}`,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Question
			if err := json.Unmarshal([]byte(`{"id":1,"content":`+tt.content+`}`), &q); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			lib, ver, ok := q.Identity()
			if ok != tt.wantOK {
				t.Fatalf("Identity() ok = %v; want %v", ok, tt.wantOK)
			}
			if ok && (lib != tt.wantLib || ver != tt.wantVer) {
				t.Errorf("Identity() = (%q, %q); want (%q, %q)", lib, ver, tt.wantLib, tt.wantVer)
			}
		})
	}
}

func TestQuestionProblem(t *testing.T) {
	q := Question{ID: 7, ProblemID: 11}
	if id, ok := q.Problem(); !ok || id != 11 {
		t.Errorf("Problem() = (%d, %v); want (11, true)", id, ok)
	}

	q = Question{ID: 7}
	if id, ok := q.Problem(); !ok || id != 7 {
		t.Errorf("Problem() = (%d, %v); want (7, true)", id, ok)
	}

	q = Question{}
	if _, ok := q.Problem(); ok {
		t.Error("Problem() ok = true; want false for empty question")
	}
}

func TestQuestionMaxRetryOr(t *testing.T) {
	var q Question
	if got := q.MaxRetryOr(1); got != 1 {
		t.Errorf("MaxRetryOr(1) = %d; want default 1", got)
	}

	two := 2
	q.MaxRetry = &two
	if got := q.MaxRetryOr(1); got != 2 {
		t.Errorf("MaxRetryOr(1) = %d; want 2", got)
	}

	zero := 0
	q.MaxRetry = &zero
	if got := q.MaxRetryOr(1); got != 0 {
		t.Errorf("MaxRetryOr(1) = %d; want reported 0", got)
	}
}

func TestQuestionOptionKeys(t *testing.T) {
	q := Question{Content: QuestionContent{Options: []Option{{Key: "A"}, {Key: "B"}}}}
	got := q.OptionKeys()
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("OptionKeys() = %v; want [A B]", got)
	}

	q = Question{}
	got = q.OptionKeys()
	if len(got) != 4 || got[0] != "A" || got[3] != "D" {
		t.Errorf("OptionKeys() = %v; want default [A B C D]", got)
	}

	q = Question{Content: QuestionContent{Options: []Option{{Key: " "}}}}
	got = q.OptionKeys()
	if len(got) != 4 {
		t.Errorf("OptionKeys() = %v; want default set for blank keys", got)
	}
}

func TestAnswerListUnmarshal(t *testing.T) {
	var a AnswerList
	if err := json.Unmarshal([]byte(`"A"`), &a); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(a) != 1 || a[0] != "A" {
		t.Errorf("AnswerList = %v; want [A]", a)
	}

	if err := json.Unmarshal([]byte(`["A","C"]`), &a); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(a) != 2 || a[1] != "C" {
		t.Errorf("AnswerList = %v; want [A C]", a)
	}

	if err := json.Unmarshal([]byte(`null`), &a); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if a != nil {
		t.Errorf("AnswerList = %v; want nil", a)
	}
}

func TestFlexFloatUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`0.5`, 0.5},
		{`"0.95"`, 0.95},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var f FlexFloat
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("unmarshal %q: %v", tt.in, err)
		}
		if float64(f) != tt.want {
			t.Errorf("FlexFloat(%q) = %v; want %v", tt.in, float64(f), tt.want)
		}
	}

	var f FlexFloat
	if err := json.Unmarshal([]byte(`"fast"`), &f); err == nil {
		t.Error("expected error for non-numeric string")
	}
}
