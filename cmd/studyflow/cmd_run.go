package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/studyflow/studyflow/internal/config"
	"github.com/studyflow/studyflow/internal/homework"
	"github.com/studyflow/studyflow/internal/orchestrator"
	"github.com/studyflow/studyflow/internal/platform"
	"github.com/studyflow/studyflow/internal/store"
)

// idList collects repeated -leaf flags.
type idList []int64

func (l *idList) String() string {
	parts := make([]string, len(*l))
	for i, id := range *l {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (l *idList) Set(v string) error {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid leaf id %q", v)
	}
	*l = append(*l, id)
	return nil
}

// target is the parsed selection flags shared by all batch commands.
type target struct {
	courseNum int
	leafIDs   idList
}

func parseTarget(name string, args []string) (target, error) {
	var t target
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.IntVar(&t.courseNum, "course", 0, "1-based course number (0 = all courses)")
	fs.Var(&t.leafIDs, "leaf", "leaf id to process (repeatable; default all)")
	if err := fs.Parse(args); err != nil {
		return t, err
	}
	return t, nil
}

// app holds everything a batch command needs: configuration, the
// authenticated client, the open answer store and the orchestrator on top.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *platform.Client
	user    platform.UserInfo
	answers store.Store
	orch    *orchestrator.Orchestrator
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	sess, err := config.LoadSession()
	if err != nil {
		return nil, err
	}
	client := platform.NewClient(cfg.BaseURL, platform.NewSession(sess.Headers))

	user, err := client.UserInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve user identity: %w", err)
	}
	logger.Info("logged in", "name", user.Name, "school", user.School)

	answers, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open answer store: %w", err)
	}

	orch := orchestrator.New(client, answers, user, orchestrator.Config{
		VideoWorkers:    cfg.Workers.Videos,
		HomeworkWorkers: cfg.Workers.Homeworks,
		QuestionWorkers: cfg.Workers.Questions,
		HarvestWorkers:  cfg.Workers.Harvest,
		PollInterval:    time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		user:    user,
		answers: answers,
		orch:    orch,
	}, nil
}

func (a *app) Close() {
	if err := a.answers.Close(); err != nil {
		a.logger.Warn("answer store close failed", "error", err)
	}
}

// selectCourses narrows the course list to the -course flag.
func selectCourses(courses []platform.Course, courseNum int) ([]platform.Course, error) {
	if courseNum == 0 {
		return courses, nil
	}
	if courseNum < 1 || courseNum > len(courses) {
		return nil, fmt.Errorf("course number %d out of range (have %d courses)", courseNum, len(courses))
	}
	return courses[courseNum-1 : courseNum], nil
}

// selectLeaves filters leaves by type and the -leaf flags.
func selectLeaves(leaves []platform.Leaf, leafType int, ids idList) []platform.Leaf {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []platform.Leaf
	for _, leaf := range leaves {
		if leaf.LeafType != leafType {
			continue
		}
		if len(want) > 0 && !want[leaf.ID] {
			continue
		}
		out = append(out, leaf)
	}
	return out
}

// runBatch resolves the selected courses and hands each course's filtered
// leaves to op. An in-flight course batch always runs to completion.
func runBatch(args []string, name string, leafType int, op func(ctx context.Context, a *app, course platform.Course, cctx platform.ClassroomContext, leaves []platform.Leaf) error) error {
	t, err := parseTarget(name, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	courses, err := a.client.Courses(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	selected, err := selectCourses(courses, t.courseNum)
	if err != nil {
		return err
	}

	for _, course := range selected {
		a.logger.Info("processing course", "course", course.Name)
		cctx, err := a.client.ClassroomInfo(ctx, course)
		if err != nil {
			a.logger.Warn("course skipped", "course", course.Name, "error", err)
			continue
		}
		leaves, err := a.client.CourseLeaves(ctx, course, cctx)
		if err != nil {
			a.logger.Warn("course skipped", "course", course.Name, "error", err)
			continue
		}
		targets := selectLeaves(leaves, leafType, t.leafIDs)
		if len(targets) == 0 {
			a.logger.Info("nothing to do", "course", course.Name)
			continue
		}
		if err := op(ctx, a, course, cctx, targets); err != nil {
			return err
		}
	}
	return nil
}

func cmdWatch(args []string) error {
	return runBatch(args, "watch", platform.LeafVideo, func(ctx context.Context, a *app, course platform.Course, cctx platform.ClassroomContext, leaves []platform.Leaf) error {
		a.orch.WatchVideos(ctx, course, cctx, leaves)
		return nil
	})
}

func cmdReplay(args []string) error {
	return runBatch(args, "replay", platform.LeafHomework, func(ctx context.Context, a *app, course platform.Course, cctx platform.ClassroomContext, leaves []platform.Leaf) error {
		a.orch.RunHomeworks(ctx, course, cctx, leaves, homework.ModeReplay)
		return nil
	})
}

func cmdProbe(args []string) error {
	return runBatch(args, "probe", platform.LeafHomework, func(ctx context.Context, a *app, course platform.Course, cctx platform.ClassroomContext, leaves []platform.Leaf) error {
		a.orch.RunHomeworks(ctx, course, cctx, leaves, homework.ModeProbe)
		return nil
	})
}

func cmdHarvest(args []string) error {
	return runBatch(args, "harvest", platform.LeafHomework, func(ctx context.Context, a *app, course platform.Course, cctx platform.ClassroomContext, leaves []platform.Leaf) error {
		summary := a.orch.HarvestCourse(ctx, course, leaves)
		total, err := a.answers.Count()
		if err == nil {
			a.logger.Info("answer store size", "cached", total, "new", summary.AnswersHarvested)
		}
		return nil
	})
}

func cmdRead(args []string) error {
	return runBatch(args, "read", platform.LeafArticle, func(ctx context.Context, a *app, course platform.Course, cctx platform.ClassroomContext, leaves []platform.Leaf) error {
		a.orch.CheckArticles(ctx, course, leaves)
		return nil
	})
}
