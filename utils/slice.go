package utils

// UniqueStrings removes duplicate values, keeping the first occurrence order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]struct{}, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		list = append(list, entry)
	}
	return list
}

// Chunk splits slice into consecutive groups of at most size elements.
func Chunk(slice []string, size int) [][]string {
	if size <= 0 || len(slice) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(slice)+size-1)/size)
	for start := 0; start < len(slice); start += size {
		end := start + size
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[start:end])
	}
	return chunks
}
