// Package progression derives levels and badges from cumulative XP.
package progression

import "sort"

// XPPerLevel is the XP span of one level.
const XPPerLevel = 1000

// Badge is a static milestone unlocked at MinXP.
type Badge struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	MinXP int64  `json:"minXP"`
	Icon  string `json:"icon"`
}

// catalog is ordered by MinXP ascending.
var catalog = []Badge{
	{ID: "novice", Name: "Novice Coder", MinXP: 0, Icon: "🌱"},
	{ID: "contributor", Name: "Active Contributor", MinXP: 100, Icon: "🔨"},
	{ID: "pro", Name: "Pro Developer", MinXP: 500, Icon: "🚀"},
	{ID: "master", Name: "Code Master", MinXP: 1000, Icon: "👑"},
	{ID: "legend", Name: "Open Source Legend", MinXP: 5000, Icon: "🦄"},
}

// Catalog returns a copy of the badge catalog, ascending by MinXP.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Level returns floor(totalXP/1000)+1. Negative totals are treated as zero.
func Level(totalXP int64) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return int(totalXP/XPPerLevel) + 1
}

// BadgesEarned returns every badge with MinXP <= totalXP, most prestigious first.
func BadgesEarned(totalXP int64) []Badge {
	earned := make([]Badge, 0, len(catalog))
	for _, b := range catalog {
		if b.MinXP <= totalXP {
			earned = append(earned, b)
		}
	}
	sort.SliceStable(earned, func(i, j int) bool { return earned[i].MinXP > earned[j].MinXP })
	return earned
}

// NextBadge returns the badge with the smallest MinXP above totalXP, or nil
// once every threshold is met.
func NextBadge(totalXP int64) *Badge {
	for _, b := range catalog {
		if b.MinXP > totalXP {
			next := b
			return &next
		}
	}
	return nil
}

// ProgressFraction is the share of the way from the highest earned badge to
// the next one, clamped to [0, 1]. It is 1 at the top tier.
func ProgressFraction(totalXP int64) float64 {
	next := NextBadge(totalXP)
	if next == nil {
		return 1
	}
	var baseline int64
	if earned := BadgesEarned(totalXP); len(earned) > 0 {
		baseline = earned[0].MinXP
	}
	span := next.MinXP - baseline
	if span <= 0 {
		return 1
	}
	f := float64(totalXP-baseline) / float64(span)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// State is the derived progression of one owner.
type State struct {
	TotalXP   int64   `json:"xp"`
	Level     int     `json:"level"`
	Badges    []Badge `json:"badges"`
	NextBadge *Badge  `json:"nextBadge"`
	Progress  float64 `json:"progress"`
}

// Derive computes the full progression state for totalXP.
func Derive(totalXP int64) State {
	return State{
		TotalXP:   totalXP,
		Level:     Level(totalXP),
		Badges:    BadgesEarned(totalXP),
		NextBadge: NextBadge(totalXP),
		Progress:  ProgressFraction(totalXP),
	}
}
