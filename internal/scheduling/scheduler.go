package scheduling

import (
	"sort"
	"time"

	"github.com/ldi/pwoa/pkg/models"
)

// Per-bucket capacities in minutes. The weekly capacity is a rolling
// budget: every allocation, including ones to today or tomorrow, debits
// it, which caps total weekly load at 40 hours.
const (
	TodayCapacityMinutes    = 8 * 60
	TomorrowCapacityMinutes = 8 * 60
	WeekCapacityMinutes     = 40 * 60
)

// Scheduler partitions tasks into today/tomorrow/this_week buckets by
// priority under the capacity limits above.
type Scheduler struct {
	now func() time.Time
}

func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

type availability struct {
	today    int
	tomorrow int
	week     int
}

// ScheduleTasks allocates tasks into the three buckets. Tasks with a
// deadline are routed to the first bucket whose boundary covers the
// deadline, bypassing the capacity check. Tasks that fit nowhere are
// dropped from the plan; their ids are recorded on Plan.Dropped so the
// caller can observe the backlog overflow.
//
// The input tasks are not mutated; persisting status changes is the
// caller's responsibility.
func (s *Scheduler) ScheduleTasks(tasks []*models.Task) *models.Plan {
	now := s.now()

	sorted := make([]*models.Task, len(tasks))
	copy(sorted, tasks)
	// Stable: equal scores keep their input order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriorityScore > sorted[j].PriorityScore
	})

	plan := &models.Plan{
		Date:     now,
		Today:    []*models.Task{},
		Tomorrow: []*models.Task{},
		ThisWeek: []*models.Task{},
		Dropped:  []string{},
	}

	avail := availability{
		today:    TodayCapacityMinutes,
		tomorrow: TomorrowCapacityMinutes,
		week:     WeekCapacityMinutes,
	}

	// Boundaries are computed once per call, not per task.
	todayEOD := endOfDay(now)
	tomorrowEOD := todayEOD.AddDate(0, 0, 1)
	weekEOD := todayEOD.AddDate(0, 0, daysUntilEndOfWeek(now))

	for _, task := range sorted {
		// Explicit deadlines route first, regardless of remaining capacity.
		// A deadline beyond the end of the week falls through to the
		// capacity-based path below.
		if task.Deadline != nil {
			switch {
			case !task.Deadline.After(todayEOD):
				plan.Today = append(plan.Today, task)
				avail.debit(&avail.today, task)
				continue
			case !task.Deadline.After(tomorrowEOD):
				plan.Tomorrow = append(plan.Tomorrow, task)
				avail.debit(&avail.tomorrow, task)
				continue
			case !task.Deadline.After(weekEOD):
				plan.ThisWeek = append(plan.ThisWeek, task)
				avail.debit(&avail.week, task)
				continue
			}
		}

		switch {
		case avail.today >= task.EstimatedTimeMinutes:
			plan.Today = append(plan.Today, task)
			avail.debit(&avail.today, task)
		case avail.tomorrow >= task.EstimatedTimeMinutes:
			plan.Tomorrow = append(plan.Tomorrow, task)
			avail.debit(&avail.tomorrow, task)
		case avail.week >= task.EstimatedTimeMinutes:
			plan.ThisWeek = append(plan.ThisWeek, task)
			avail.debit(&avail.week, task)
		default:
			plan.Dropped = append(plan.Dropped, task.ID)
		}
	}

	return plan
}

// debit subtracts the task's estimate from the given bucket and always
// from the shared weekly budget as well. An allocation to the this_week
// bucket therefore debits the weekly budget twice.
func (a *availability) debit(bucket *int, task *models.Task) {
	*bucket -= task.EstimatedTimeMinutes
	a.week -= task.EstimatedTimeMinutes
}

// BucketDate returns the advisory scheduled date for a bucket relative
// to the plan date.
func (s *Scheduler) BucketDate(planDate time.Time, b models.Bucket) time.Time {
	switch b {
	case models.BucketTomorrow:
		return planDate.AddDate(0, 0, 1)
	case models.BucketThisWeek:
		return endOfDay(planDate).AddDate(0, 0, daysUntilEndOfWeek(planDate))
	default:
		return planDate
	}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// daysUntilEndOfWeek uses a Monday-based week, so the week ends on the
// following Monday's end of day.
func daysUntilEndOfWeek(t time.Time) int {
	weekday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return 7 - weekday
}
