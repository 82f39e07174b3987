package models

import "time"

type Bucket string

const (
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketThisWeek Bucket = "this_week"
)

// Plan is the result of a scheduling run: three ordered time buckets
// plus the ids of tasks that could not be placed anywhere. The bucket
// set is closed, so the plan is a fixed struct rather than a map.
type Plan struct {
	Date     time.Time `json:"date"`
	Today    []*Task   `json:"today"`
	Tomorrow []*Task   `json:"tomorrow"`
	ThisWeek []*Task   `json:"this_week"`
	Dropped  []string  `json:"dropped"`
}

// Scheduled returns every placed task in bucket order.
func (p *Plan) Scheduled() []*Task {
	out := make([]*Task, 0, len(p.Today)+len(p.Tomorrow)+len(p.ThisWeek))
	out = append(out, p.Today...)
	out = append(out, p.Tomorrow...)
	out = append(out, p.ThisWeek...)
	return out
}

// TotalMinutes sums the estimates of the tasks in the given bucket.
func (p *Plan) TotalMinutes(b Bucket) int {
	var tasks []*Task
	switch b {
	case BucketToday:
		tasks = p.Today
	case BucketTomorrow:
		tasks = p.Tomorrow
	case BucketThisWeek:
		tasks = p.ThisWeek
	}
	total := 0
	for _, t := range tasks {
		total += t.EstimatedTimeMinutes
	}
	return total
}
