package pagination

import (
	"slices"
	"strconv"
)

// MaxBatchSize is the most IDs Marketo accepts in one filter request.
const MaxBatchSize = 30

// IDSet is an ordered list of resource IDs or a single scalar ID. It owns a
// private copy of its IDs.
type IDSet struct {
	ids    []string
	scalar bool
}

// IDs builds an IDSet from string IDs.
func IDs(ids ...string) IDSet {
	return IDSet{ids: slices.Clone(ids)}
}

// IntIDs builds an IDSet from numeric IDs.
func IntIDs[T ~int | ~int32 | ~int64](ids ...T) IDSet {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(int64(id), 10)
	}
	return IDSet{ids: out}
}

// Single builds a scalar IDSet. Scalars are never batched.
func Single(id string) IDSet {
	return IDSet{ids: []string{id}, scalar: true}
}

// Len returns the number of IDs.
func (s IDSet) Len() int {
	return len(s.ids)
}

// IsScalar reports whether the set was built from a single scalar ID.
func (s IDSet) IsScalar() bool {
	return s.scalar
}

// Values returns a copy of the IDs.
func (s IDSet) Values() []string {
	return slices.Clone(s.ids)
}

// Batches splits the set into consecutive batches of at most size IDs,
// preserving order. A scalar or a set of at most size IDs yields one batch,
// and an empty set yields one empty batch. Batches never alias the set's
// storage.
func (s IDSet) Batches(size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}

	ids := slices.Clone(s.ids)
	if s.scalar || len(ids) <= size {
		if ids == nil {
			ids = []string{}
		}
		return [][]string{ids}
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end:end])
	}
	return batches
}
