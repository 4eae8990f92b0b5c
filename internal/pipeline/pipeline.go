// Package pipeline runs the table-level batch jobs: address splitting,
// geocoding and the certified-lab scrape.
package pipeline

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runLogger returns the global logger tagged with a fresh run ID and the job name.
func runLogger(job string) *zap.Logger {
	return zap.L().With(zap.String("run_id", uuid.NewString()), zap.String("job", job))
}
