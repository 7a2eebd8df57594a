package wire

import "strconv"

// Rule maps one input field to one wire field. Value reports the encoded
// value and whether the field is present in the input.
type Rule[T any] struct {
	Wire  string
	Value func(T) (string, bool)
}

// Policy is an ordered field-presence table for one operation's input type.
type Policy[T any] []Rule[T]

// Fields returns the present fields of in, in table order.
func (p Policy[T]) Fields(in T) []Field {
	out := make([]Field, 0, len(p))
	for _, r := range p {
		if v, ok := r.Value(in); ok {
			out = append(out, Field{Name: r.Wire, Value: v})
		}
	}
	return out
}

// Names lists the wire names the policy can emit.
func (p Policy[T]) Names() []string {
	names := make([]string, len(p))
	for i, r := range p {
		names[i] = r.Wire
	}
	return names
}

// Str is present when the pointer returned by get is non-nil.
func Str[T any](wireName string, get func(T) *string) Rule[T] {
	return Rule[T]{Wire: wireName, Value: func(in T) (string, bool) {
		p := get(in)
		if p == nil {
			return "", false
		}
		return *p, true
	}}
}

// Int is present when the pointer returned by get is non-nil.
func Int[T any](wireName string, get func(T) *int) Rule[T] {
	return Rule[T]{Wire: wireName, Value: func(in T) (string, bool) {
		p := get(in)
		if p == nil {
			return "", false
		}
		return strconv.Itoa(*p), true
	}}
}

// Required is always present.
func Required[T any](wireName string, get func(T) string) Rule[T] {
	return Rule[T]{Wire: wireName, Value: func(in T) (string, bool) {
		return get(in), true
	}}
}
