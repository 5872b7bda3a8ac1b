// Package homework resolves, answers and harvests graded exercises. The
// pipeline replays cached answers (or probes with random guesses) through the
// throttled submitter; the harvester feeds previously-seen answers back into
// the store.
package homework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"

	"github.com/studyflow/studyflow/internal/platform"
	"github.com/studyflow/studyflow/internal/store"
	"github.com/studyflow/studyflow/internal/submit"
)

// Mode selects how the pipeline answers questions.
type Mode int

const (
	// ModeReplay submits only cached, previously-harvested answers.
	ModeReplay Mode = iota
	// ModeProbe submits random guesses to discover correct answers.
	ModeProbe
)

func (m Mode) String() string {
	if m == ModeProbe {
		return "probe"
	}
	return "replay"
}

// AnswerSubmitter is the submission path the pipeline funnels every answer
// through; satisfied by *submit.Submitter.
type AnswerSubmitter interface {
	SubmitAnswer(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, problemID int64, answer []string) submit.Result
}

// Retry ceilings assumed when the platform does not report max_retry.
// Replay is conservative; probe deliberately is not.
const (
	defaultReplayRetry = 1
	defaultProbeRetry  = 999
)

// Pacing between consecutive probe submissions: uniform 2.0-3.0 s.
const (
	probePaceMin    = 2 * time.Second
	probePaceJitter = time.Second
)

// Summary aggregates one homework run. Partial progress is always reported,
// even when individual questions failed.
type Summary struct {
	Name      string
	Total     int
	Attempted int
	Correct   int
}

// outcome is the structured result one question worker reports back. No
// failure crosses a worker boundary as anything else.
type outcome struct {
	attempted bool
	correct   bool
}

// Pipeline processes one homework at a time; a single Pipeline is shared by
// all homework workers of a batch.
type Pipeline struct {
	client    *platform.Client
	submitter AnswerSubmitter
	answers   store.Store
	logger    *slog.Logger
	workers   int

	// Injection points for tests.
	sleep     func(time.Duration)
	randInt   func(n int) int
	randFloat func() float64
}

// New creates a pipeline. workers bounds the per-homework question fan-out
// in replay mode.
func New(client *platform.Client, submitter AnswerSubmitter, answers store.Store, workers int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 5
	}
	return &Pipeline{
		client:    client,
		submitter: submitter,
		answers:   answers,
		logger:    logger,
		workers:   workers,
		sleep:     time.Sleep,
		randInt:   rand.Intn,
		randFloat: rand.Float64,
	}
}

// Run processes one homework in the given mode. Errors abort only this
// homework; sibling homeworks proceed.
func (p *Pipeline) Run(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, hw platform.Leaf, mode Mode) (Summary, error) {
	summary := Summary{Name: hw.Name}

	p.logger.Info("processing homework", "homework", hw.Name, "mode", mode.String())

	detailID, err := p.client.LeafTypeID(ctx, course, hw.ID)
	if err != nil {
		return summary, fmt.Errorf("resolve detail id: %w", err)
	}

	questions, err := p.client.ExerciseList(ctx, course, detailID)
	if err != nil {
		return summary, fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		return summary, errors.New("no questions returned")
	}
	summary.Total = len(questions)
	p.logger.Info("questions fetched", "homework", hw.Name, "count", len(questions))

	var outcomes []outcome
	if mode == ModeProbe {
		outcomes = p.probeAll(ctx, course, cctx, questions)
	} else {
		outcomes = p.replayAll(ctx, course, cctx, questions)
	}

	for _, o := range outcomes {
		if o.attempted {
			summary.Attempted++
		}
		if o.correct {
			summary.Correct++
		}
	}
	p.logger.Info("homework done", "homework", hw.Name,
		"attempted", fmt.Sprintf("%d/%d", summary.Attempted, summary.Total),
		"correct", fmt.Sprintf("%d/%d", summary.Correct, summary.Attempted))
	return summary, nil
}

// replayAll fans the questions of one homework across a bounded worker set.
// The batch is fully drained before returning; order of completion is not
// significant because outcomes are indexed.
func (p *Pipeline) replayAll(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, questions []platform.Question) []outcome {
	bh := bulkhead.New[outcome](bulkhead.Config{
		MaxConcurrent: p.workers,
		MaxQueue:      len(questions),
		QueueTimeout:  time.Hour,
	})

	outcomes := make([]outcome, len(questions))
	var wg sync.WaitGroup
	for i, q := range questions {
		wg.Add(1)
		go func(i int, q platform.Question) {
			defer wg.Done()
			o, err := bh.Execute(ctx, func(ctx context.Context) (outcome, error) {
				return p.replayOne(ctx, course, cctx, i+1, q), nil
			})
			if err != nil {
				p.logger.Warn("question not dispatched", "question", i+1, "reason", err)
			}
			outcomes[i] = o
		}(i, q)
	}
	wg.Wait()
	return outcomes
}

// replayOne resolves and submits a single question from the answer store.
func (p *Pipeline) replayOne(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, idx int, q platform.Question) outcome {
	libraryID, version, ok := q.Identity()
	if !ok {
		p.logger.Info("question skipped", "question", idx, "reason", "no content identity")
		return outcome{}
	}

	answer, err := p.answers.Get(libraryID, version)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			// Storage trouble reads as a cache miss.
			p.logger.Warn("answer lookup failed", "question", idx, "error", err)
		}
		p.logger.Info("question skipped", "question", idx, "reason", "no cached answer",
			"library", libraryID, "version", version)
		return outcome{}
	}

	problemID, ok := q.Problem()
	if !ok {
		p.logger.Info("question skipped", "question", idx, "reason", "no problem id")
		return outcome{}
	}

	if q.User.MyCount >= q.MaxRetryOr(defaultReplayRetry) {
		p.logger.Info("question skipped", "question", idx, "reason", "retry budget exhausted")
		return outcome{}
	}

	res := p.submitter.SubmitAnswer(ctx, course, cctx, problemID, answer)
	switch {
	case res.Accepted && res.Correct:
		p.logger.Info("question answered", "question", idx, "correct", true)
	case res.Accepted:
		p.logger.Info("question answered", "question", idx, "correct", false,
			"revealed", strings.Join(res.CorrectAnswer, ", "))
	default:
		p.logger.Warn("question submission rejected", "question", idx)
	}
	return outcome{attempted: res.Accepted, correct: res.Correct}
}

// probeAll guesses through the questions sequentially, pacing submissions so
// they look human. Probe mode ignores the cache on purpose: its job is to
// reveal correct answers, not to score.
func (p *Pipeline) probeAll(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, questions []platform.Question) []outcome {
	outcomes := make([]outcome, len(questions))
	for i, q := range questions {
		idx := i + 1
		if q.User.IsRight {
			p.logger.Info("question skipped", "question", idx, "reason", "already correct")
			continue
		}
		if q.User.MyCount >= q.MaxRetryOr(defaultProbeRetry) {
			p.logger.Info("question skipped", "question", idx, "reason", "retry budget exhausted")
			continue
		}
		problemID, ok := q.Problem()
		if !ok {
			p.logger.Info("question skipped", "question", idx, "reason", "no problem id")
			continue
		}

		options := q.OptionKeys()
		guess := []string{options[p.randInt(len(options))]}

		res := p.submitter.SubmitAnswer(ctx, course, cctx, problemID, guess)
		if res.Accepted {
			p.logger.Info("question probed", "question", idx, "guess", guess[0], "correct", res.Correct)
			if !res.Correct && len(res.CorrectAnswer) > 0 {
				p.logger.Info("correct answer revealed", "question", idx,
					"answer", strings.Join(res.CorrectAnswer, ", "))
			}
		} else {
			p.logger.Warn("question submission rejected", "question", idx)
		}
		outcomes[i] = outcome{attempted: res.Accepted, correct: res.Correct}

		p.sleep(probePaceMin + time.Duration(p.randFloat()*float64(probePaceJitter)))
	}
	return outcomes
}
