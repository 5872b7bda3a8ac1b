// Package watch simulates progressive video playback: it polls the reported
// watch progress and emits synthetic heartbeat batches until the platform
// considers the video watched.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/studyflow/studyflow/internal/platform"
)

const (
	// The platform counts a video as complete past this reported rate.
	completionThreshold = 0.95

	// Each batch carries three events, each advancing the playhead by a
	// fixed step, matching what the web player reports.
	eventsPerBatch = 3
	playheadStep   = 8

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength   = 4
)

// Status is the terminal state of one video task.
type Status int

const (
	// StatusFailed: the initial progress poll could not be made.
	StatusFailed Status = iota
	// StatusSkipped: the platform already reports the video complete.
	StatusSkipped
	// StatusCompleted: the simulated session drove the rate past the
	// completion threshold.
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusCompleted:
		return "completed"
	default:
		return "failed"
	}
}

// HeartbeatSender is the throttle-aware path heartbeat batches go through;
// satisfied by *submit.Submitter.
type HeartbeatSender interface {
	Heartbeat(ctx context.Context, course platform.Course, batch []platform.HeartbeatEvent) error
}

// Simulator drives the per-video watching state machine. One Simulator is
// shared across workers; all per-video state lives in the Watch call.
type Simulator struct {
	client    *platform.Client
	submitter HeartbeatSender
	logger    *slog.Logger

	userID       int64
	pollInterval time.Duration

	// Injection points for tests.
	sleep   func(time.Duration)
	randInt func(n int) int
	now     func() time.Time
}

// New creates a simulator. pollInterval is the pacing sleep between a
// heartbeat batch and the following progress poll.
func New(client *platform.Client, submitter HeartbeatSender, userID int64, pollInterval time.Duration, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 1500 * time.Millisecond
	}
	return &Simulator{
		client:       client,
		submitter:    submitter,
		logger:       logger,
		userID:       userID,
		pollInterval: pollInterval,
		sleep:        time.Sleep,
		randInt:      rand.Intn,
		now:          time.Now,
	}
}

// Watch runs the state machine for one video until the platform reports it
// watched. The loop is unbounded on purpose: a stalled server-side rate
// stalls the task the same way it would stall a real playback session.
func (s *Simulator) Watch(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, video platform.Leaf) (Status, error) {
	progress, err := s.client.WatchProgress(ctx, course, s.userID, video.ID)
	switch {
	case errors.Is(err, platform.ErrNoProgress):
		// Never-watched videos have no progress record yet; seed the
		// session from zero and start watching.
		progress = platform.WatchProgress{}
	case err != nil:
		return StatusFailed, fmt.Errorf("initial progress poll: %w", err)
	}
	if progress.Completed {
		s.logger.Info("video already complete, skipping", "video", video.Name)
		return StatusSkipped, nil
	}

	s.logger.Info("watching video", "video", video.Name)

	rate := progress.Rate
	playhead := progress.WatchLength
	timestamp := s.now().UnixMilli()

	for rate <= completionThreshold {
		batch := s.buildBatch(course, cctx, video.ID, playhead, timestamp)
		playhead += playheadStep * eventsPerBatch

		if err := s.submitter.Heartbeat(ctx, course, batch); err != nil {
			s.logger.Warn("heartbeat failed", "video", video.Name, "error", err)
		}

		s.sleep(s.pollInterval)

		progress, err := s.client.WatchProgress(ctx, course, s.userID, video.ID)
		if err != nil {
			// Keep the last known rate; a single bad poll must not
			// abort the session.
			s.logger.Warn("progress poll failed", "video", video.Name, "error", err)
			continue
		}
		rate = progress.Rate
		s.logger.Info("progress", "video", video.Name, "rate", fmt.Sprintf("%.1f%%", rate*100))
	}

	s.logger.Info("video complete", "video", video.Name)
	return StatusCompleted, nil
}

// buildBatch assembles one heartbeat batch. All events share the per-video
// timestamp and a fresh 4-character session token; only the playhead and
// sequence number vary.
func (s *Simulator) buildBatch(course platform.Course, cctx platform.ClassroomContext, videoID, playhead, timestamp int64) []platform.HeartbeatEvent {
	vid := fmt.Sprintf("%d", videoID)
	token := vid + "_" + s.sessionToken()

	batch := make([]platform.HeartbeatEvent, eventsPerBatch)
	for i := range batch {
		batch[i] = platform.HeartbeatEvent{
			I:           5,
			ET:          "heartbeat",
			P:           "web",
			N:           "ali-cdn.xuetangx.com",
			LOB:         "ykt",
			CP:          playhead + playheadStep*int64(i),
			SP:          2,
			TS:          fmt.Sprintf("%d", timestamp),
			U:           s.userID,
			C:           cctx.CourseID,
			V:           videoID,
			SkuID:       cctx.FreeSkuID,
			ClassroomID: fmt.Sprintf("%d", cctx.ClassroomID),
			CC:          vid,
			D:           4976.5,
			PG:          token,
			SQ:          i,
			T:           "video",
		}
	}
	return batch
}

func (s *Simulator) sessionToken() string {
	buf := make([]byte, tokenLength)
	for i := range buf {
		buf[i] = tokenAlphabet[s.randInt(len(tokenAlphabet))]
	}
	return string(buf)
}
