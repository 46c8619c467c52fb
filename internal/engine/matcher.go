package engine

import (
	"sort"
	"time"

	"activation-analytics/internal/models"
)

// RedemptionEvent is one greedy time-window of a single user's transactions
// whose summed value cleared the spend threshold, charging one reward.
type RedemptionEvent struct {
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
	Consumed    []int // indices into the matcher's input slice
	WindowSum   float64
}

// MatchResult is the outcome of scoring one transaction scope against a
// spend threshold.
type MatchResult struct {
	Events        []RedemptionEvent
	RedeemedUsers map[string]bool
}

// MarketingSpend is the reward charge accrued by the matched events.
func (r MatchResult) MarketingSpend(reward float64) float64 {
	return float64(len(r.Events)) * reward
}

// MatchRedemptions runs the greedy redemption-window algorithm over a
// transaction scope. Per user, in ascending timestamp order (ties broken by
// stable input order):
//
//  1. The earliest unconsumed transaction anchors a window
//     [anchor, anchor+window], boundary inclusive.
//  2. Every not-yet-consumed transaction of that user inside the window is
//     summed. If the sum clears minSpend, one event is materialized and the
//     whole window is consumed together, including amounts beyond the
//     threshold.
//  3. Otherwise the anchor alone stays unconsumed and the scan advances; a
//     failed anchor may still fold into a later anchor's window.
//
// The packing is greedy left-to-right, not globally optimal. Budget figures
// downstream are defined relative to this exact algorithm, so it must not
// be "improved" into an optimal cover.
func MatchRedemptions(transactions []models.Transaction, minSpend float64, window time.Duration) MatchResult {
	byUser := make(map[string][]int)
	var users []string
	for i, txn := range transactions {
		if txn.CreatedAt.IsZero() {
			continue
		}
		if _, ok := byUser[txn.UserID]; !ok {
			users = append(users, txn.UserID)
		}
		byUser[txn.UserID] = append(byUser[txn.UserID], i)
	}
	sort.Strings(users)

	result := MatchResult{RedeemedUsers: make(map[string]bool)}

	for _, user := range users {
		idxs := byUser[user]
		sort.SliceStable(idxs, func(a, b int) bool {
			return transactions[idxs[a]].CreatedAt.Before(transactions[idxs[b]].CreatedAt)
		})

		consumed := make(map[int]bool)
		for _, anchor := range idxs {
			if consumed[anchor] {
				continue
			}

			windowStart := transactions[anchor].CreatedAt
			windowEnd := windowStart.Add(window)

			var inWindow []int
			var sum float64
			for _, i := range idxs {
				if consumed[i] {
					continue
				}
				t := transactions[i].CreatedAt
				// Boundary inclusive: a transaction exactly at
				// windowEnd belongs to this window.
				if t.Before(windowStart) || t.After(windowEnd) {
					continue
				}
				inWindow = append(inWindow, i)
				sum += transactions[i].Amount
			}

			if sum < minSpend {
				// Anchor stays unconsumed; it may fold into a later window.
				continue
			}

			for _, i := range inWindow {
				consumed[i] = true
			}
			result.Events = append(result.Events, RedemptionEvent{
				UserID:      user,
				WindowStart: windowStart,
				WindowEnd:   windowEnd,
				Consumed:    inWindow,
				WindowSum:   sum,
			})
			result.RedeemedUsers[user] = true
		}
	}

	return result
}
