package workflow

import (
	"sort"
	"time"
)

const (
	escalationWeight  = 25
	overdueBase       = 50
	overduePerHour    = 2
	overdueCap        = 150
	dueVerySoonWindow = 4 * time.Hour
	dueVerySoonBonus  = 20
	dueSoonWindow     = 24 * time.Hour
	dueSoonBonus      = 10
)

// UrgencyScore ranks a pending item: priority weight, plus 25 per
// escalation level, plus an SLA term that grows once the item is overdue.
func UrgencyScore(p Priority, escalationLevel int, due, now time.Time) int {
	score := p.Weight() + escalationWeight*escalationLevel

	if now.After(due) {
		hours := int(now.Sub(due) / time.Hour)
		score += min(overdueBase+overduePerHour*hours, overdueCap)
		return score
	}

	switch left := due.Sub(now); {
	case left <= dueVerySoonWindow:
		score += dueVerySoonBonus
	case left <= dueSoonWindow:
		score += dueSoonBonus
	}
	return score
}

// scoreQueue fills Urgency and Overdue on every item.
func scoreQueue(items []*QueueItem, now time.Time) {
	for _, it := range items {
		it.Urgency = UrgencyScore(it.Priority, it.EscalationLevel, it.DueAt, now)
		it.Overdue = now.After(it.DueAt)
	}
}

// SortQueue orders scored items. Ties always fall back to due date,
// then assignment time, then ID, so the order is total.
func SortQueue(items []*QueueItem, by QueueSort) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch by {
		case SortDue:
			// fall through to the shared tiebreak
		case SortPriority:
			if a.Priority.Weight() != b.Priority.Weight() {
				return a.Priority.Weight() > b.Priority.Weight()
			}
		case SortAssigned:
			if !a.AssignedAt.Equal(b.AssignedAt) {
				return a.AssignedAt.Before(b.AssignedAt)
			}
		default:
			if a.Urgency != b.Urgency {
				return a.Urgency > b.Urgency
			}
		}
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		if !a.AssignedAt.Equal(b.AssignedAt) {
			return a.AssignedAt.Before(b.AssignedAt)
		}
		return a.ID < b.ID
	})
}

// paginate applies offset and limit. Limit 0 means all.
func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
