package queue

import (
	"sync"

	"github.com/go-scripts/wordstat/pkg/common"
)

// Job is one (query, variant) lookup. Position indexes the result table.
type Job struct {
	Position int
	Query    string
	Variant  common.Variant
}

// Queue hands out lookup jobs in input order, every variant of a query
// before the next query.
type Queue struct {
	jobs []Job
	done int
	mu   sync.Mutex
}

// New expands queries into their jobs.
func New(queries []string) *Queue {
	jobs := make([]Job, 0, len(queries)*len(common.Variants()))
	for i, q := range queries {
		for _, v := range common.Variants() {
			jobs = append(jobs, Job{Position: i, Query: q, Variant: v})
		}
	}
	return &Queue{jobs: jobs}
}

// Next returns the next job.
func (q *Queue) Next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return Job{}, false
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.done++

	return job, true
}

// Taken returns the number of jobs handed out so far.
func (q *Queue) Taken() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

// Total is the number of jobs left plus Taken.
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) + q.done
}
