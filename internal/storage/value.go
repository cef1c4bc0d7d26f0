package storage

import "errors"

// ErrWrongType is returned when a command touches a key holding an
// incompatible value kind. The text is the exact wire-level reply so the
// dispatcher can encode it verbatim.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ValueKind discriminates the payload held by a Value
type ValueKind uint8

const (
	KindString ValueKind = iota + 1
	KindInteger
	KindSortedSet
)

// Value is a tagged union owning its payload. The sorted-set variant owns
// the *SortedSet outright: it lives exactly as long as the table entry that
// holds the Value and is never shared between entries.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	zset *SortedSet
}

// StringValue builds a string-kind Value
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// IntegerValue builds an integer-kind Value. The command surface does not
// construct these yet; the kind is reserved for numeric commands.
func IntegerValue(n int64) Value {
	return Value{kind: KindInteger, num: n}
}

// SortedSetValue builds a sorted-set Value owning a fresh empty set
func SortedSetValue() Value {
	return Value{kind: KindSortedSet, zset: NewSortedSet()}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Str() string { return v.str }

func (v Value) Int() int64 { return v.num }

// SortedSet returns the owned set, nil for non-set kinds
func (v Value) SortedSet() *SortedSet { return v.zset }
