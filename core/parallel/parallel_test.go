package parallel

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversAllItems(t *testing.T) {
	for _, items := range []int{0, 1, 7, 100} {
		t.Run(fmt.Sprintf("items=%d", items), func(t *testing.T) {
			seen := make([]int32, items)
			Parallelize(items, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, n := range seen {
				assert.Equal(t, int32(1), n, "index %d", i)
			}
		})
	}
}

func TestForEachReturnsLowestIndexError(t *testing.T) {
	var calls int32
	err := ForEach(10, 3, func(i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 4 || i == 8 {
			return fmt.Errorf("candidate %d failed", i)
		}
		return nil
	})

	assert.EqualError(t, err, "candidate 4 failed")
	assert.Equal(t, int32(10), calls)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var ranges [][2]int
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		ranges = append(ranges, [2]int{start, end})
	})
	assert.Equal(t, [][2]int{{0, 5}}, ranges)
}
