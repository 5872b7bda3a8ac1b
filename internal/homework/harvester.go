package homework

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studyflow/studyflow/internal/platform"
	"github.com/studyflow/studyflow/internal/store"
)

// Harvester scans already-attempted homeworks and writes the user's recorded
// answers into the store for later replay.
type Harvester struct {
	client  *platform.Client
	answers store.Store
	logger  *slog.Logger
}

// NewHarvester creates a harvester writing into the given store.
func NewHarvester(client *platform.Client, answers store.Store, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{client: client, answers: answers, logger: logger}
}

// Harvest collects all (library id, version, answer) triples of one homework
// into the store and returns the number of records written. Zero discovered
// answers is a no-op, not an error; a failed write is logged and the rest of
// the homework continues.
func (h *Harvester) Harvest(ctx context.Context, course platform.Course, hw platform.Leaf) (int, error) {
	detailID, err := h.client.LeafTypeID(ctx, course, hw.ID)
	if err != nil {
		return 0, fmt.Errorf("resolve detail id: %w", err)
	}

	questions, err := h.client.ExerciseList(ctx, course, detailID)
	if err != nil {
		return 0, fmt.Errorf("fetch questions: %w", err)
	}

	written := 0
	for _, q := range questions {
		libraryID, version, ok := q.Identity()
		if !ok {
			continue
		}
		if len(q.User.Answer) == 0 {
			continue
		}
		if err := h.answers.Save(libraryID, version, store.Answer(q.User.Answer)); err != nil {
			h.logger.Warn("answer not saved", "homework", hw.Name,
				"library", libraryID, "version", version, "error", err)
			continue
		}
		written++
	}
	return written, nil
}
