package comparison

// Batch splits items into contiguous chunks of at most size items.
// A size of zero or less puts everything into one chunk.
func Batch(items []Item, size int) [][]Item {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]Item{items}
	}
	chunks := make([][]Item, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
