package runner

import "osm-fixsync/internal/job"

type Summary struct {
	Total        int
	SuccessCount int
	FailureCount int
	WarningCount int
	Results      []job.Result
}
