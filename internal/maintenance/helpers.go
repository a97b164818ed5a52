package maintenance

import (
	"fmt"
	"math"
	"sort"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// sortByLastSynced orders projects oldest-synced-first, ties broken by
// project ID ascending for determinism (mirrors the LRU ordering rule
// documented in internal/reposcache for EnforceQuota, §9 Open Questions:
// tie-break by ID since the spec leaves "most-recently-synced" tie
// ordering unspecified).
func sortByLastSynced(projects []*model.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].LastSyncedAt.Equal(projects[j].LastSyncedAt) {
			return projects[i].LastSyncedAt.Before(projects[j].LastSyncedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func panicMessage(r any) string {
	return fmt.Sprintf("panic: %v", r)
}
