package auth

import (
	"strings"
	"unicode/utf8"
)

// CodeEntry holds the six independent single-character slots of the
// one-time code input.
type CodeEntry struct {
	slots [CodeLength]string
	focus int
}

// Set writes value into slot i, keeping only its first character, and
// returns the slot that should receive focus next. Focus advances only when
// a character was entered and never past the last slot.
func (e *CodeEntry) Set(i int, value string) (int, error) {
	if i < 0 || i >= CodeLength {
		return e.focus, ErrSlotOutOfRange
	}

	if utf8.RuneCountInString(value) > 1 {
		r, _ := utf8.DecodeRuneInString(value)
		value = string(r)
	}
	e.slots[i] = value

	e.focus = i
	if value != "" && i < CodeLength-1 {
		e.focus = i + 1
	}
	return e.focus, nil
}

// Fill replaces every slot with one character of code. A code that is not
// exactly CodeLength characters leaves the slots untouched.
func (e *CodeEntry) Fill(code string) error {
	if utf8.RuneCountInString(code) != CodeLength {
		return ErrCodeLength
	}

	*e = CodeEntry{}
	i := 0
	for _, r := range code {
		_, _ = e.Set(i, string(r))
		i++
	}
	return nil
}

// Complete reports whether every slot holds a character.
func (e *CodeEntry) Complete() bool {
	for _, s := range e.slots {
		if s == "" {
			return false
		}
	}
	return true
}

// Code returns the concatenated slots.
func (e *CodeEntry) Code() string {
	return strings.Join(e.slots[:], "")
}

// Slots returns a copy of the slot values.
func (e *CodeEntry) Slots() []string {
	out := make([]string, CodeLength)
	copy(out, e.slots[:])
	return out
}

// Focus returns the slot that currently has focus.
func (e *CodeEntry) Focus() int {
	return e.focus
}
