package service

import (
	"context"

	"InsightHub/internal/domain/models"
)

// Harvester fetches raw insights from one source. Each call is isolated:
// the engine applies its own timeout and never lets one harvester affect another.
type Harvester interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Insight, error)
}
