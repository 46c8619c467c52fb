package engine

import (
	"sort"
	"time"

	"activation-analytics/internal/models"
)

type historyKey struct {
	matchKey string
	userID   string
}

// UserHistory maps (location, user) to the user's globally-first transaction
// instant at that location, independent of any reporting period. Built once,
// read-only thereafter.
type UserHistory struct {
	first map[historyKey]time.Time
}

// BuildUserHistory scans all transactions in ascending timestamp order and
// records the first occurrence per (location, user). Records with an unset
// timestamp are dropped.
func BuildUserHistory(transactions []models.Transaction) *UserHistory {
	sorted := make([]models.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.CreatedAt.IsZero() {
			continue
		}
		sorted = append(sorted, txn)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	first := make(map[historyKey]time.Time, len(sorted))
	for _, txn := range sorted {
		k := historyKey{txn.MatchKey(), txn.UserID}
		if _, seen := first[k]; !seen {
			first[k] = txn.CreatedAt
		}
	}
	return &UserHistory{first: first}
}

// FirstSeen returns the user's first-ever transaction instant at the
// location. ok is false when the user has no recorded history there.
func (h *UserHistory) FirstSeen(matchKey, userID string) (time.Time, bool) {
	t, ok := h.first[historyKey{matchKey, userID}]
	return t, ok
}

// Len returns the number of (location, user) pairs tracked.
func (h *UserHistory) Len() int {
	return len(h.first)
}
