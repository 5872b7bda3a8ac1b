package platform

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Leaf types as reported by the chapter tree.
const (
	LeafVideo    = 0
	LeafArticle  = 3
	LeafHomework = 6
)

// UserInfo identifies the authenticated user.
type UserInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	School string `json:"school"`
}

// Course is one enrolled course as listed by the platform.
type Course struct {
	Name         string
	ClassroomID  int64
	UniversityID int64
	CourseID     int64
}

// ClassroomContext carries the per-course identifiers required by every
// submission call. Resolved once per course and treated as read-only.
type ClassroomContext struct {
	ClassroomID int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	CourseSign  string `json:"course_sign"`
	FreeSkuID   int64  `json:"free_sku_id"`
}

// Leaf is a flattened node of the course chapter tree: a video, an article
// or a homework, depending on LeafType.
type Leaf struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LeafType      int    `json:"leaf_type"`
	ChapterID     int64  `json:"chapter_id"`
	StartTime     int64  `json:"start_time"`
	ScoreDeadline int64  `json:"score_deadline"`
}

// FlexString decodes a JSON string, number or null into its string form.
// The platform is not consistent about whether identifiers arrive quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

// FlexFloat decodes a JSON number, numeric string or null into a float.
// Progress rates arrive in all three forms.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// AnswerList decodes a JSON string or array of strings into a list.
type AnswerList []string

func (a *AnswerList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AnswerList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*a = AnswerList(list)
	return nil
}

// Option is one selectable choice of a question.
type Option struct {
	Key string `json:"key"`
}

// QuestionUser is the user-scoped state attached to a question: how often it
// was attempted, whether it was answered correctly and with what answer.
type QuestionUser struct {
	MyCount int        `json:"my_count"`
	IsRight bool       `json:"is_right"`
	Answer  AnswerList `json:"answer"`
}

// QuestionContent carries the content identity of a question. The library id
// arrives under two field spellings depending on the platform variant.
type QuestionContent struct {
	LibraryID      FlexString `json:"LibraryID"`
	LibraryIDSnake FlexString `json:"library_id"`
	Version        FlexString `json:"Version"`
	Options        []Option   `json:"Options"`
}

// Question is an immutable snapshot of one homework question.
type Question struct {
	ID        int64           `json:"id"`
	ProblemID int64           `json:"problem_id"`
	MaxRetry  *int            `json:"max_retry"`
	User      QuestionUser    `json:"user"`
	Content   QuestionContent `json:"content"`
}

// Identity returns the (library id, version) cache key of the question's
// content, trying both field spellings. ok is false when either part is
// missing, in which case the question cannot be matched against the store.
func (q Question) Identity() (libraryID, version string, ok bool) {
	libraryID = string(q.Content.LibraryID)
	if libraryID == "" {
		libraryID = string(q.Content.LibraryIDSnake)
	}
	version = string(q.Content.Version)
	if libraryID == "" || version == "" {
		return "", "", false
	}
	return libraryID, version, true
}

// Problem returns the id to submit against, preferring problem_id over the
// question id, and false when neither is present.
func (q Question) Problem() (int64, bool) {
	if q.ProblemID != 0 {
		return q.ProblemID, true
	}
	if q.ID != 0 {
		return q.ID, true
	}
	return 0, false
}

// MaxRetryOr returns the question's retry ceiling, or def when the platform
// did not report one.
func (q Question) MaxRetryOr(def int) int {
	if q.MaxRetry == nil {
		return def
	}
	return *q.MaxRetry
}

// OptionKeys returns the declared option keys, or a default A-D guess set
// when the platform did not enumerate options.
func (q Question) OptionKeys() []string {
	keys := make([]string, 0, len(q.Content.Options))
	for _, opt := range q.Content.Options {
		if strings.TrimSpace(opt.Key) != "" {
			keys = append(keys, opt.Key)
		}
	}
	if len(keys) == 0 {
		return []string{"A", "B", "C", "D"}
	}
	return keys
}

// WatchProgress is the platform's view of how much of a video was watched.
type WatchProgress struct {
	Rate        float64
	WatchLength int64
	Completed   bool
}

// HeartbeatEvent is one synthetic playback event. The constant fields mirror
// what the web player emits; only CP, TS, PG and SQ vary within a batch.
type HeartbeatEvent struct {
	I           int     `json:"i"`
	ET          string  `json:"et"`
	P           string  `json:"p"`
	N           string  `json:"n"`
	LOB         string  `json:"lob"`
	CP          int64   `json:"cp"`
	FP          int     `json:"fp"`
	TP          int     `json:"tp"`
	SP          int     `json:"sp"`
	TS          string  `json:"ts"`
	U           int64   `json:"u"`
	UIP         string  `json:"uip"`
	C           int64   `json:"c"`
	V           int64   `json:"v"`
	SkuID       int64   `json:"skuid"`
	ClassroomID string  `json:"classroomid"`
	CC          string  `json:"cc"`
	D           float64 `json:"d"`
	PG          string  `json:"pg"`
	SQ          int     `json:"sq"`
	T           string  `json:"t"`
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
