package recommend

import (
	"testing"

	"github.com/tablematch/tablematch/internal/domain/history"
)

func TestScoreClusters_LikesAndDislikes(t *testing.T) {
	clustered := clusteredTable(t,
		[]string{"a", "b", "c", "d"},
		[]int{0, 0, 1, 1},
		[]string{"", "", "", ""},
	)

	hist := history.FromSets([]string{"a", "b"}, []string{"c"})
	weights := ScoreClusters(&clustered, hist)

	if weights[0] != 2 {
		t.Errorf("weights[0] = %d, want 2", weights[0])
	}
	if weights[1] != -1 {
		t.Errorf("weights[1] = %d, want -1", weights[1])
	}
}

func TestScoreClusters_EveryObservedClusterInitialized(t *testing.T) {
	clustered := clusteredTable(t,
		[]string{"a", "b", "c"},
		[]int{0, 1, 2},
		[]string{"", "", ""},
	)

	weights := ScoreClusters(&clustered, history.New())

	for _, label := range []int{0, 1, 2} {
		w, ok := weights[label]
		if !ok {
			t.Errorf("cluster %d missing from weights", label)
		}
		if w != 0 {
			t.Errorf("weights[%d] = %d, want 0", label, w)
		}
	}
}

func TestScoreClusters_MixedSignalNetsTowardZero(t *testing.T) {
	clustered := clusteredTable(t,
		[]string{"a", "b", "c", "d"},
		[]int{0, 0, 0, 0},
		[]string{"", "", "", ""},
	)

	hist := history.FromSets([]string{"a", "b"}, []string{"c", "d"})
	weights := ScoreClusters(&clustered, hist)

	if weights[0] != 0 {
		t.Errorf("weights[0] = %d, want 0", weights[0])
	}
}

func TestScoreClusters_UnknownIDsIgnored(t *testing.T) {
	clustered := clusteredTable(t,
		[]string{"a"},
		[]int{0},
		[]string{""},
	)

	hist := history.FromSets([]string{"not-in-batch"}, []string{"also-missing"})
	weights := ScoreClusters(&clustered, hist)

	if weights[0] != 0 {
		t.Errorf("weights[0] = %d, want 0", weights[0])
	}
}

// Sum of weights equals liked-found minus disliked-found when the sets are
// disjoint and contained in the table.
func TestScoreClusters_SumProperty(t *testing.T) {
	clustered := clusteredTable(t,
		[]string{"a", "b", "c", "d", "e"},
		[]int{0, 1, 1, 2, 2},
		[]string{"", "", "", "", ""},
	)

	hist := history.FromSets([]string{"a", "b", "d"}, []string{"c"})
	weights := ScoreClusters(&clustered, hist)

	sum := 0
	for _, w := range weights {
		sum += w
	}
	if sum != 3-1 {
		t.Errorf("sum of weights = %d, want 2", sum)
	}
}
