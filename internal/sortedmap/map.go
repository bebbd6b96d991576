// Package sortedmap provides an ordered map backed by a sorted slice with
// binary search. Iteration is always in key order.
package sortedmap

import (
	"cmp"
	"iter"
	"slices"
)

// Entry is a single key/value pair.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Map is an ordered map. Use New or NewFunc to create one; a nil *Map reads
// as empty.
type Map[K, V any] struct {
	entries []Entry[K, V]
	compare func(a, b K) int
}

// New returns an empty map ordered by the natural order of K.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	return NewFunc[K, V](cmp.Compare[K])
}

// NewFunc returns an empty map ordered by compare.
func NewFunc[K, V any](compare func(a, b K) int) *Map[K, V] {
	return &Map[K, V]{compare: compare}
}

func (m *Map[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(m.entries, key, func(e Entry[K, V], k K) int {
		return m.compare(e.Key, k)
	})
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Insert stores value under key and returns the value it replaced, if any.
func (m *Map[K, V]) Insert(key K, value V) (old V, replaced bool) {
	i, found := m.search(key)
	if found {
		old = m.entries[i].Value
		m.entries[i].Value = value
		return old, true
	}
	m.entries = slices.Insert(m.entries, i, Entry[K, V]{Key: key, Value: value})
	return old, false
}

// InsertNew stores value under key only if key is absent. It reports whether
// the value was stored.
func (m *Map[K, V]) InsertNew(key K, value V) bool {
	i, found := m.search(key)
	if found {
		return false
	}
	m.entries = slices.Insert(m.entries, i, Entry[K, V]{Key: key, Value: value})
	return true
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	i, found := m.search(key)
	if !found {
		var zero V
		return zero, false
	}
	return m.entries[i].Value, true
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove deletes key and returns the value it held.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	i, found := m.search(key)
	if !found {
		var zero V
		return zero, false
	}
	v := m.entries[i].Value
	m.entries = slices.Delete(m.entries, i, i+1)
	return v, true
}

// All iterates over the entries in key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for _, e := range m.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Keys iterates over the keys in order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values iterates over the values in key order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Entries returns a copy of the entries in key order.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	if m == nil {
		return nil
	}
	return slices.Clone(m.entries)
}

// ExtractFunc removes every entry for which match reports true and returns
// them in key order.
func (m *Map[K, V]) ExtractFunc(match func(K, V) bool) []Entry[K, V] {
	if m == nil {
		return nil
	}
	var out []Entry[K, V]
	m.entries = slices.DeleteFunc(m.entries, func(e Entry[K, V]) bool {
		if match(e.Key, e.Value) {
			out = append(out, e)
			return true
		}
		return false
	})
	return out
}

// ExtendPreserve copies every entry of other whose key is not already
// present. Existing values win.
func (m *Map[K, V]) ExtendPreserve(other *Map[K, V]) {
	for k, v := range other.All() {
		m.InsertNew(k, v)
	}
}

// Clone returns a shallow copy.
func (m *Map[K, V]) Clone() *Map[K, V] {
	if m == nil {
		return nil
	}
	return &Map[K, V]{entries: slices.Clone(m.entries), compare: m.compare}
}
