package batch

// rangeGroup is a contiguous byte range of a container holding one or more
// payloads. All items in a group are fetched with a single read.
type rangeGroup struct {
	start uint64 // first payload byte
	end   uint64 // one past the last payload byte
	items []Item
}

// groupAdjacent groups items whose payloads touch.
//
// Items must be sorted by payload start and the slice must be non-empty.
// Payloads separated by alignment padding start new groups.
func groupAdjacent(items []Item) []rangeGroup {
	groups := make([]rangeGroup, 0, len(items))
	first := items[0].Entry
	current := rangeGroup{
		start: first.Start,
		end:   first.Start + first.RawSize,
		items: []Item{items[0]},
	}

	for _, it := range items[1:] {
		end := it.Entry.Start + it.Entry.RawSize
		if it.Entry.Start == current.end {
			current.end = end
			current.items = append(current.items, it)
			continue
		}
		groups = append(groups, current)
		current = rangeGroup{start: it.Entry.Start, end: end, items: []Item{it}}
	}
	return append(groups, current)
}
