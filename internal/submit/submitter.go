// Package submit funnels every POST the tool issues (answer submissions and
// playback heartbeats) through one rate-limit-aware path: detect the throttle
// marker, back off for the announced window, retry the identical payload,
// and pace successful submissions so they do not land at superhuman speed.
package submit

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/studyflow/studyflow/internal/platform"
)

// Pacing after an accepted answer submission: uniform 3.0-4.0 s.
const (
	submitPaceMin    = 3 * time.Second
	submitPaceJitter = time.Second
)

// Result is the outcome of one answer submission. It is never persisted.
type Result struct {
	Accepted      bool
	Correct       bool
	CorrectAnswer []string
}

// Submitter performs throttle-aware POSTs against the platform. Safe for
// concurrent use; each call sleeps only its own goroutine.
type Submitter struct {
	client *platform.Client
	logger *slog.Logger

	// Injection points for tests.
	sleep     func(time.Duration)
	randFloat func() float64
}

// New creates a submitter on top of a platform client.
func New(client *platform.Client, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		client:    client,
		logger:    logger,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// applyEnvelope is the structured part of a submission response, consulted
// only after the body was cleared of throttle markers.
type applyEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		IsRight   *bool               `json:"is_right"`
		IsCorrect *bool               `json:"is_correct"`
		Answer    platform.AnswerList `json:"answer"`
	} `json:"data"`
}

// SubmitAnswer submits one answer, absorbing throttle windows by sleeping and
// resending the identical payload until the server lets it through. Transport
// errors and explicit rejections are terminal for this call.
func (s *Submitter) SubmitAnswer(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, problemID int64, answer []string) Result {
	for {
		body, err := s.client.SubmitAnswer(ctx, course, cctx, problemID, answer)
		if err != nil {
			s.logger.Warn("submit transport failure", "problem", problemID, "error", err)
			return Result{}
		}

		if wait, ok := ThrottleWait(body); ok {
			s.logger.Info("throttled, backing off", "problem", problemID, "wait", wait)
			s.sleep(wait)
			continue
		}

		var env applyEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			s.logger.Warn("submit response undecodable", "problem", problemID, "error", err)
			return Result{}
		}
		if !env.Success {
			return Result{}
		}

		// Human-paced: never answer faster than a few seconds apart.
		s.sleep(submitPaceMin + time.Duration(s.randFloat()*float64(submitPaceJitter)))

		correct := false
		switch {
		case env.Data.IsRight != nil:
			correct = *env.Data.IsRight
		case env.Data.IsCorrect != nil:
			correct = *env.Data.IsCorrect
		}
		return Result{
			Accepted:      true,
			Correct:       correct,
			CorrectAnswer: []string(env.Data.Answer),
		}
	}
}

// Heartbeat posts one batch of playback events. A detected throttle window
// triggers a single best-effort resend of the same batch; the resend's
// outcome is not verified. The returned error covers the initial transport
// attempt only.
func (s *Submitter) Heartbeat(ctx context.Context, course platform.Course, batch []platform.HeartbeatEvent) error {
	body, err := s.client.Heartbeat(ctx, course, batch)
	if err != nil {
		return err
	}

	if wait, ok := ThrottleWait(body); ok {
		s.logger.Info("heartbeat throttled, backing off", "wait", wait)
		s.sleep(wait)
		if _, err := s.client.Heartbeat(ctx, course, batch); err != nil {
			s.logger.Warn("heartbeat resend failed", "error", err)
		}
	}
	return nil
}
