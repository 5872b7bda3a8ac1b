// Package orchestrator fans the per-video and per-homework pipelines across
// bounded worker pools and folds their outcomes into per-course summaries.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyflow/studyflow/internal/homework"
	"github.com/studyflow/studyflow/internal/platform"
	"github.com/studyflow/studyflow/internal/reading"
	"github.com/studyflow/studyflow/internal/store"
	"github.com/studyflow/studyflow/internal/submit"
	"github.com/studyflow/studyflow/internal/watch"
)

// Config sizes the worker pools and paces the watch loop.
type Config struct {
	VideoWorkers    int
	HomeworkWorkers int
	QuestionWorkers int
	HarvestWorkers  int
	PollInterval    time.Duration
}

// DefaultConfig returns the pool sizes the tool has always run with.
func DefaultConfig() Config {
	return Config{
		VideoWorkers:    5,
		HomeworkWorkers: 5,
		QuestionWorkers: 5,
		HarvestWorkers:  10,
		PollInterval:    1500 * time.Millisecond,
	}
}

// CourseSummary aggregates one batch over one course. Counts are reported
// even when individual units failed.
type CourseSummary struct {
	RunID  string
	Course string

	VideosCompleted int
	VideosSkipped   int
	VideosFailed    int

	HomeworksProcessed int
	HomeworksFailed    int
	QuestionsTotal     int
	QuestionsAttempted int
	QuestionsCorrect   int

	AnswersHarvested int

	ArticlesFinished int
	ArticlesUnread   int
}

// Orchestrator owns the answer store and the platform client for the
// lifetime of the process and wires them into the pipelines.
type Orchestrator struct {
	client    *platform.Client
	answers   store.Store
	submitter *submit.Submitter
	simulator *watch.Simulator
	pipeline  *homework.Pipeline
	harvester *homework.Harvester
	reader    *reading.Checker
	logger    *slog.Logger
	cfg       Config
}

// New wires the full pipeline stack for one authenticated user.
func New(client *platform.Client, answers store.Store, user platform.UserInfo, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.VideoWorkers <= 0 {
		cfg.VideoWorkers = 5
	}
	if cfg.HomeworkWorkers <= 0 {
		cfg.HomeworkWorkers = 5
	}
	if cfg.QuestionWorkers <= 0 {
		cfg.QuestionWorkers = 5
	}
	if cfg.HarvestWorkers <= 0 {
		cfg.HarvestWorkers = 10
	}

	submitter := submit.New(client, logger)
	return &Orchestrator{
		client:    client,
		answers:   answers,
		submitter: submitter,
		simulator: watch.New(client, submitter, user.ID, cfg.PollInterval, logger),
		pipeline:  homework.New(client, submitter, answers, cfg.QuestionWorkers, logger),
		harvester: homework.NewHarvester(client, answers, logger),
		reader:    reading.NewChecker(client, logger),
		logger:    logger,
		cfg:       cfg,
	}
}

// WatchVideos simulates watching the selected videos, fanning them across a
// bounded pool and draining it before returning.
func (o *Orchestrator) WatchVideos(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, videos []platform.Leaf) CourseSummary {
	summary := o.newSummary(course)

	statuses := fanOut(ctx, o.cfg.VideoWorkers, o.logger, videos, func(ctx context.Context, video platform.Leaf) watch.Status {
		status, err := o.simulator.Watch(ctx, course, cctx, video)
		if err != nil {
			o.logger.Warn("video abandoned", "video", video.Name, "error", err)
		}
		return status
	})

	for _, status := range statuses {
		switch status {
		case watch.StatusCompleted:
			summary.VideosCompleted++
		case watch.StatusSkipped:
			summary.VideosSkipped++
		default:
			summary.VideosFailed++
		}
	}
	o.logSummary(summary)
	return summary
}

// RunHomeworks processes the selected homeworks in the given mode.
func (o *Orchestrator) RunHomeworks(ctx context.Context, course platform.Course, cctx platform.ClassroomContext, homeworks []platform.Leaf, mode homework.Mode) CourseSummary {
	summary := o.newSummary(course)

	results := fanOut(ctx, o.cfg.HomeworkWorkers, o.logger, homeworks, func(ctx context.Context, hw platform.Leaf) homework.Summary {
		s, err := o.pipeline.Run(ctx, course, cctx, hw, mode)
		if err != nil {
			o.logger.Warn("homework abandoned", "homework", hw.Name, "error", err)
			return homework.Summary{Name: hw.Name, Total: -1}
		}
		return s
	})

	for _, s := range results {
		if s.Total < 0 {
			summary.HomeworksFailed++
			continue
		}
		summary.HomeworksProcessed++
		summary.QuestionsTotal += s.Total
		summary.QuestionsAttempted += s.Attempted
		summary.QuestionsCorrect += s.Correct
	}
	o.logSummary(summary)
	return summary
}

// HarvestCourse scans the given homeworks for previously recorded answers and
// stores them.
func (o *Orchestrator) HarvestCourse(ctx context.Context, course platform.Course, homeworks []platform.Leaf) CourseSummary {
	summary := o.newSummary(course)

	counts := fanOut(ctx, o.cfg.HarvestWorkers, o.logger, homeworks, func(ctx context.Context, hw platform.Leaf) int {
		n, err := o.harvester.Harvest(ctx, course, hw)
		if err != nil {
			o.logger.Warn("harvest abandoned", "homework", hw.Name, "error", err)
			return 0
		}
		return n
	})

	for _, n := range counts {
		summary.AnswersHarvested += n
	}
	if summary.AnswersHarvested == 0 {
		o.logger.Info("no answers discovered", "course", course.Name)
	}
	o.logSummary(summary)
	return summary
}

// CheckArticles reports read status for the selected article leaves.
func (o *Orchestrator) CheckArticles(ctx context.Context, course platform.Course, articles []platform.Leaf) CourseSummary {
	summary := o.newSummary(course)

	results := fanOut(ctx, o.cfg.HomeworkWorkers, o.logger, articles, func(ctx context.Context, article platform.Leaf) int {
		finished, err := o.reader.Check(ctx, course, article)
		if err != nil {
			o.logger.Warn("article status unavailable", "article", article.Name, "error", err)
			return -1
		}
		if finished {
			return 1
		}
		return 0
	})

	for _, r := range results {
		switch r {
		case 1:
			summary.ArticlesFinished++
		case 0:
			summary.ArticlesUnread++
		}
	}
	o.logSummary(summary)
	return summary
}

func (o *Orchestrator) newSummary(course platform.Course) CourseSummary {
	return CourseSummary{
		RunID:  uuid.NewString(),
		Course: course.Name,
	}
}

func (o *Orchestrator) logSummary(s CourseSummary) {
	o.logger.Info("batch summary",
		"run", s.RunID,
		"course", s.Course,
		"videos_completed", s.VideosCompleted,
		"videos_skipped", s.VideosSkipped,
		"videos_failed", s.VideosFailed,
		"homeworks", s.HomeworksProcessed,
		"homeworks_failed", s.HomeworksFailed,
		"attempted", s.QuestionsAttempted,
		"total", s.QuestionsTotal,
		"correct", s.QuestionsCorrect,
		"harvested", s.AnswersHarvested,
	)
}
