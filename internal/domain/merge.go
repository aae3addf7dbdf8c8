package domain

// MergeSave resolves a partial save against the stored card list and
// returns the list to persist. All returned cards are normalized. Rules,
// in priority order:
//
//  1. Incoming length equals stored length: full replace.
//  2. An explicit cardIndex is given and exactly one card is incoming:
//     replace only that index.
//  3. Otherwise merge by grid position: each incoming card replaces the
//     stored card at the same position; stored cards whose position is not
//     in the incoming set are kept unchanged. Incoming cards with no
//     matching stored position are dropped - there is no insert-by-position
//     path.
func MergeSave(stored, incoming []CardRecord, cardIndex *int) ([]CardRecord, error) {
	incoming = CloneCards(incoming)
	NormalizeCards(incoming)

	if len(incoming) == len(stored) {
		return incoming, nil
	}

	if cardIndex != nil && len(incoming) == 1 {
		if *cardIndex < 0 || *cardIndex >= len(stored) {
			return nil, ErrCardIndexOutOfRange
		}
		merged := CloneCards(stored)
		merged[*cardIndex] = incoming[0]
		return merged, nil
	}

	byPosition := make(map[int]CardRecord, len(incoming))
	for i := range incoming {
		if pos, ok := incoming[i].Position(); ok {
			byPosition[pos] = incoming[i]
		}
	}
	merged := CloneCards(stored)
	for i := range merged {
		pos, ok := merged[i].Position()
		if !ok {
			continue
		}
		if replacement, found := byPosition[pos]; found {
			merged[i] = replacement
		}
	}
	return merged, nil
}

// MergeReprocessed combines freshly re-extracted cards with the existing
// list. Existing cards whose grid position was re-extracted are discarded
// in favor of the new records; everything else is kept. When the
// reprocessed set covers the whole grid the merge is a full replacement,
// so existing cards without a placement are discarded too. The result is
// sorted ascending by grid position, cards without a placement last.
func MergeReprocessed(existing, fresh []CardRecord, reprocessed map[int]bool) []CardRecord {
	fullGrid := true
	for pos := 0; pos < GridPositions; pos++ {
		if !reprocessed[pos] {
			fullGrid = false
			break
		}
	}

	kept := make([]CardRecord, 0, len(existing))
	for i := range existing {
		pos, ok := existing[i].Position()
		if !ok {
			if fullGrid {
				continue
			}
			kept = append(kept, existing[i].Clone())
			continue
		}
		if reprocessed[pos] {
			continue
		}
		kept = append(kept, existing[i].Clone())
	}

	merged := append(kept, CloneCards(fresh)...)
	NormalizeCards(merged)
	SortByPosition(merged)
	return merged
}
