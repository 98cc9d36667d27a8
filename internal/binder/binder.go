// Package binder tracks the ordered bind values behind numbered SQL
// placeholders. Every $N emitted during SQL assembly must come from the
// same Binder so that placeholder numbers and the argument queue can
// never drift apart.
package binder

import (
	"fmt"
	"strconv"
	"strings"
)

// Binder accumulates typed bind values in placeholder order.
// The zero value is ready to use.
type Binder struct {
	args []interface{}
}

// New returns an empty Binder.
func New() *Binder {
	return &Binder{}
}

// Add appends a value to the queue and returns the placeholder text
// ($1, $2, ...) to interpolate into the SQL under construction.
func (b *Binder) Add(value interface{}) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// AddSmart coerces a raw string to its most specific type before binding.
// Priority order: integer, float, boolean, the literal "null"
// (case-insensitive, bound as SQL NULL), else the string itself.
// Incoming request values are untyped strings; the driver wants typed args.
func (b *Binder) AddSmart(raw string) string {
	return b.Add(CoerceValue(raw))
}

// Next returns the placeholder that the next Add call would produce,
// without consuming it.
func (b *Binder) Next() string {
	return fmt.Sprintf("$%d", len(b.args)+1)
}

// Len reports the number of bound values.
func (b *Binder) Len() int {
	return len(b.args)
}

// Args returns the bound values in placeholder order.
func (b *Binder) Args() []interface{} {
	out := make([]interface{}, len(b.args))
	copy(out, b.args)
	return out
}

// CoerceValue sniffs a raw string's type: integer, float, boolean,
// "null" -> nil, else string.
func CoerceValue(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return raw
}
