// Package reading reports completion status for article (text) leaves.
package reading

import (
	"context"
	"log/slog"

	"github.com/studyflow/studyflow/internal/platform"
)

// Checker queries per-article finish status.
type Checker struct {
	client *platform.Client
	logger *slog.Logger
}

// NewChecker creates a checker.
func NewChecker(client *platform.Client, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{client: client, logger: logger}
}

// Check reports whether the user finished reading one article.
func (c *Checker) Check(ctx context.Context, course platform.Course, article platform.Leaf) (bool, error) {
	finished, err := c.client.ArticleStatus(ctx, course, article.ID)
	if err != nil {
		return false, err
	}
	if finished {
		c.logger.Info("article finished", "article", article.Name)
	} else {
		c.logger.Info("article unread", "article", article.Name)
	}
	return finished, nil
}
