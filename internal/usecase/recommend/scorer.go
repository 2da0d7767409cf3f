package recommend

import (
	"github.com/tablematch/tablematch/internal/domain/history"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
)

// Weights maps a cluster label to its signed preference weight.
type Weights map[int]int

// ScoreClusters converts a user's like/dislike history into per-cluster
// weights: every observed cluster starts at 0, each liked row adds 1 to its
// cluster, each disliked row subtracts 1. A cluster with mixed signal nets
// toward zero, which is intentional. Ids absent from the table change
// nothing, and an empty history yields all-zero weights.
func ScoreClusters(clustered *cluster.Table, hist history.History) Weights {
	weights := make(Weights, clustered.K)
	for _, label := range clustered.Labels {
		if _, ok := weights[label]; !ok {
			weights[label] = 0
		}
	}

	for i, row := range clustered.Features.Rows {
		label := clustered.Labels[i]
		if hist.Liked[row.PlaceID] {
			weights[label]++
		}
		if hist.Disliked[row.PlaceID] {
			weights[label]--
		}
	}

	return weights
}
