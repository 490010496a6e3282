package core

// SplitBatches splits items into contiguous batches of at most size items.
// Concatenating the batches in order yields items again. The batches share
// items' backing array.
func SplitBatches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	if len(items) == 0 {
		return nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}
