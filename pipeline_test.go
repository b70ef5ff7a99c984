package anvil

import (
	"sync/atomic"
	"testing"
)

func TestTask_VisitsEveryItemOnce(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		items   int
	}{
		{"empty", 4, 0},
		{"single item", 4, 1},
		{"fewer items than workers", 8, 3},
		{"uneven chunks", 3, 100},
		{"single worker", 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(tt.workers)
			defer d.Close()

			data := make([]int, tt.items)
			for i := range data {
				data[i] = i * 2
			}
			visits := make([]int32, tt.items)

			task(d, data, func(i int, item int) {
				if item != i*2 {
					t.Errorf("item %d = %d, want %d", i, item, i*2)
				}
				atomic.AddInt32(&visits[i], 1)
			})

			for i, v := range visits {
				if v != 1 {
					t.Errorf("item %d visited %d times", i, v)
				}
			}
		})
	}
}

func TestDispatcher_Reused(t *testing.T) {
	d := NewDispatcher(2)
	defer d.Close()

	var total atomic.Int64
	for range 10 {
		task(d, []int{1, 2, 3, 4, 5}, func(_ int, item int) {
			total.Add(int64(item))
		})
	}
	if got := total.Load(); got != 150 {
		t.Errorf("total = %d, want 150", got)
	}
}

func TestDispatcher_CloseTwice(t *testing.T) {
	d := NewDispatcher(0)
	if d.Workers() != 1 {
		t.Errorf("Workers() = %d, want 1", d.Workers())
	}
	d.Close()
	d.Close()
}
