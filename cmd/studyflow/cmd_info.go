package main

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/studyflow/studyflow/internal/config"
	"github.com/studyflow/studyflow/internal/platform"
)

// cmdCourses lists enrolled courses; with -course N it also lists that
// course's leaves so their ids can be fed to -leaf.
func cmdCourses(args []string) error {
	t, err := parseTarget("courses", args)
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
	if len(courses) == 0 {
		fmt.Println("No enrolled courses.")
		return nil
	}

	fmt.Println("Enrolled courses:")
	for i, course := range courses {
		fmt.Printf("  [%d] %s\n", i+1, course.Name)
	}

	if t.courseNum == 0 {
		return nil
	}
	selected, err := selectCourses(courses, t.courseNum)
	if err != nil {
		return err
	}
	course := selected[0]

	cctx, err := a.client.ClassroomInfo(ctx, course)
	if err != nil {
		return fmt.Errorf("classroom info: %w", err)
	}
	leaves, err := a.client.CourseLeaves(ctx, course, cctx)
	if err != nil {
		return fmt.Errorf("course leaves: %w", err)
	}

	printLeaves("Videos", selectLeaves(leaves, platform.LeafVideo, nil))
	printLeaves("Articles", selectLeaves(leaves, platform.LeafArticle, nil))
	printLeaves("Homeworks", selectLeaves(leaves, platform.LeafHomework, nil))
	return nil
}

func printLeaves(title string, leaves []platform.Leaf) {
	if len(leaves) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, leaf := range leaves {
		line := fmt.Sprintf("  %-12d %s", leaf.ID, leaf.Name)
		if leaf.ScoreDeadline > 0 {
			deadline := time.UnixMilli(leaf.ScoreDeadline).Format("2006-01-02 15:04")
			line += fmt.Sprintf("  (due %s)", deadline)
		}
		fmt.Println(line)
	}
}

// cmdConfig prints the active configuration.
func cmdConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
