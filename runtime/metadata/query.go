package metadata

import "sync"

// TypeQuery captures a candidate value for a declared-type check. A query
// holds exactly one value; every Set overwrites the previous one.
type TypeQuery struct {
	value any
}

// NewQuery returns a query holding v.
func NewQuery(v any) *TypeQuery {
	return &TypeQuery{value: v}
}

// Set replaces the captured value.
func (q *TypeQuery) Set(v any) {
	q.value = v
}

// Value returns the captured value.
func (q *TypeQuery) Value() any {
	return q.value
}

// Reset drops the captured value so the query does not keep it alive.
func (q *TypeQuery) Reset() {
	q.value = nil
}

// Is reports whether the value captured by q is a T. Member check closures
// instantiate Is with the member's declared type.
func Is[T any](q *TypeQuery) bool {
	if q == nil {
		return false
	}
	_, ok := q.value.(T)
	return ok
}

// As is the type-returning variant of Is: it returns the captured value
// viewed as a T.
func As[T any](q *TypeQuery) (T, bool) {
	var zero T
	if q == nil {
		return zero, false
	}
	v, ok := q.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

var queryPool = sync.Pool{
	New: func() any { return new(TypeQuery) },
}

// AcquireQuery returns a query private to the caller holding v. Concurrent
// resolutions of different objects each get their own instance.
func AcquireQuery(v any) *TypeQuery {
	q := queryPool.Get().(*TypeQuery)
	q.Set(v)
	return q
}

// ReleaseQuery clears q and returns it to the pool. q must not be used
// afterwards.
func ReleaseQuery(q *TypeQuery) {
	if q == nil {
		return
	}
	q.Reset()
	queryPool.Put(q)
}
