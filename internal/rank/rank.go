// Package rank assigns competition ranks to pre-sorted sequences.
package rank

type Ranked[T any] struct {
	Rank int
	Item T
}

// Sequence ranks items, which must already be sorted by key. Consecutive
// items with equal keys share a rank. After a tie the next rank skips the tied
// positions ("1224"), or with gapless set continues at the following number
// ("1223").
func Sequence[T any, K comparable](items []T, key func(T) K, gapless bool) []Ranked[T] {
	result := make([]Ranked[T], 0, len(items))

	var prev K
	rank := 0
	for i, item := range items {
		k := key(item)
		if i == 0 || k != prev {
			if gapless {
				rank++
			} else {
				rank = i + 1
			}
		}
		prev = k

		result = append(result, Ranked[T]{Rank: rank, Item: item})
	}

	return result
}

// Identity is a key function for sequences of comparable values.
func Identity[T comparable](v T) T {
	return v
}
