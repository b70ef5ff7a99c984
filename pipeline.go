package anvil

import "sync"

// Dispatcher is a fixed pool of worker goroutines shared by every parallel
// phase of a step.
type Dispatcher struct {
	workers int
	jobs    chan func()
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDispatcher(workers int) *Dispatcher {
	workers = max(1, workers)
	d := &Dispatcher{
		workers: workers,
		jobs:    make(chan func(), workers),
	}

	d.wg.Add(workers)
	for range workers {
		go func() {
			defer d.wg.Done()
			for job := range d.jobs {
				job()
			}
		}()
	}
	return d
}

func (d *Dispatcher) Workers() int {
	return d.workers
}

// Close stops the workers once queued jobs are done
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.jobs)
		d.wg.Wait()
	})
}

// task splits data into one contiguous chunk per worker and blocks until
// every item is processed. The partition only depends on len(data) and the
// worker count, and fn gets the item index so results can be written to
// per-index slots. fn must not call task.
func task[T any](d *Dispatcher, data []T, fn func(i int, item T)) {
	dataSize := len(data)
	workersCount := min(d.workers, dataSize)
	if workersCount <= 1 {
		for i, item := range data {
			fn(i, item)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount
	for start := 0; start < dataSize; start += chunkSize {
		end := min(start+chunkSize, dataSize)
		wg.Add(1)
		d.jobs <- func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i, data[i])
			}
		}
	}
	wg.Wait()
}
