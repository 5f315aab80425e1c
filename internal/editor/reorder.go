package editor

// Reorder returns items with items[from] moved to position to. The relative order of
// every other element is kept. Indices must be in range.
func Reorder[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out, moved)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out
}

// RemapSelection returns where the selected element ends up after moving from to to
func RemapSelection(selected, from, to int) int {
	switch {
	case selected == from:
		return to
	case from < selected && to >= selected:
		return selected - 1
	case from > selected && to <= selected:
		return selected + 1
	default:
		return selected
	}
}
