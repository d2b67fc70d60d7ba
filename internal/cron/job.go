package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is one unit of scheduled work. Every job in a cycle receives the same
// instant so that cutoffs line up.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

func checkJobs(jobs []Job) ([]Job, error) {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]Job, 0, len(jobs))
	for i, job := range jobs {
		if job == nil {
			return nil, fmt.Errorf("job %d is nil", i)
		}
		name := job.Name()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("job %q registered twice", name)
		}
		seen[name] = struct{}{}
		out = append(out, job)
	}
	return out, nil
}
