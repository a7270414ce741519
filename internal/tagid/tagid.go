// Package tagid provides the compact producer identifier that replaces the
// source engine's allocated string tags ("A0", "L1", ...). A Tag packs a
// station category and a slot index into a comparable value so broadcast
// wakeup is a plain equality test.
package tagid

import "strconv"

// Category distinguishes the kind of station/buffer a Tag refers to.
type Category uint8

const (
	IntALU Category = iota
	FPAdd
	FPMul
	Load
	Store
)

func (c Category) String() string {
	switch c {
	case IntALU:
		return "I"
	case FPAdd:
		return "A"
	case FPMul:
		return "M"
	case Load:
		return "L"
	case Store:
		return "S"
	default:
		return "?"
	}
}

// None is the zero value of Tag and never refers to a live station; callers
// must check Valid before comparing against it.
var None = Tag{}

// Tag identifies one reservation-station or buffer slot.
type Tag struct {
	Category Category
	Index    uint8
	valid    bool
}

// New builds a valid Tag for the given category and slot index.
func New(cat Category, index int) Tag {
	return Tag{Category: cat, Index: uint8(index), valid: true}
}

// Valid reports whether t names a live station (as opposed to the zero
// value, meaning "no pending producer").
func (t Tag) Valid() bool { return t.valid }

// String renders a Tag in the source engine's display convention, e.g. "A0".
func (t Tag) String() string {
	if !t.valid {
		return "-"
	}
	return t.Category.String() + strconv.Itoa(int(t.Index))
}
