package images

import (
	"runtime"
	"sync"
)

// Clamp restricts a value to the range [min, max].
//
// Arguments:
//   - value: The value to clamp.
//   - min: The minimum allowed value.
//   - max: The maximum allowed value.
//
// Returns:
//   - The clamped value.
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Parallel splits [0, dataSize) into one partition per CPU core and runs fn on each
// partition concurrently, returning once every partition is done.
//
// Small inputs are processed serially on the calling goroutine.
//
// Arguments:
//   - dataSize: The number of rows (or items) to process.
//   - fn: Called with a half-open range [partStart, partEnd).
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	numGoroutines := runtime.NumCPU()

	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets the remainder.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}

	wg.Wait()
}
