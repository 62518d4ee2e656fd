package convert

import (
	"context"

	"osm-fixsync/internal/job"
)

type Converter interface {
	Convert(ctx context.Context, task job.Task) job.Result
}
