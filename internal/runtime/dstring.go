package runtime

import "strings"

// Ref is one variable a dynamic string observes.
type Ref struct {
	Name string
	Slot Slot
}

// DString is the record a D"..." literal compiles to: the template,
// the referenced storage locations, the cached rendered text and a
// snapshot of each referenced value as of the last render. Writes to
// referenced variables cost nothing; the price is paid on read, and
// only when something actually changed.
type DString struct {
	Template string
	Refs     []Ref

	cache      string
	snaps      []Value
	rendered   bool
	rerendered bool
}

// NewDString builds the record. Nothing is rendered until first read.
func NewDString(template string, refs []Ref) *DString {
	return &DString{Template: template, Refs: refs, snaps: make([]Value, len(refs))}
}

// Read returns the rendered text, re-rendering first when any
// referenced variable changed since the previous read.
func (d *DString) Read() string {
	if d.rendered && !d.dirty() {
		d.rerendered = false
		return d.cache
	}
	d.render()
	return d.cache
}

// Rerendered reports whether the most recent Read had to re-render.
func (d *DString) Rerendered() bool {
	return d.rerendered
}

func (d *DString) dirty() bool {
	for i, ref := range d.Refs {
		if ref.Slot.Get() != d.snaps[i] {
			return true
		}
	}
	return false
}

func (d *DString) render() {
	out := d.Template
	for i, ref := range d.Refs {
		cur := ref.Slot.Get()
		d.snaps[i] = cur
		out = strings.ReplaceAll(out, "{"+ref.Name+"}", Format(cur))
	}
	d.cache = out
	d.rendered = true
	d.rerendered = true
}
