// Package category models a categorical field with a free-text escape
// hatch: the value is either one of a known set of options or an
// operator-supplied "other" text. Several portal forms share this shape
// (destination hospitals, allergens, prior surgeries), so it lives in one
// value type instead of per-field string comparisons.
package category

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is either a Known option or an Other free-text entry.
// The zero value is empty and reports false for both.
type Category struct {
	value   string
	isOther bool
}

// Known returns a category holding a value from a fixed option set.
func Known(value string) Category {
	return Category{value: strings.TrimSpace(value)}
}

// Other returns a category holding operator-supplied free text.
func Other(text string) Category {
	return Category{value: strings.TrimSpace(text), isOther: true}
}

// IsOther reports whether the category carries free text rather than a
// known option.
func (c Category) IsOther() bool { return c.isOther }

// IsEmpty reports whether no value is present.
func (c Category) IsEmpty() bool { return c.value == "" }

// Value returns the option name or free text, trimmed.
func (c Category) Value() string { return c.value }

func (c Category) String() string {
	if c.isOther {
		return fmt.Sprintf("other(%s)", c.value)
	}
	return c.value
}

// MemberOf reports whether a Known category's value appears in the
// allowed set. Other categories are never members.
func (c Category) MemberOf(allowed []string) bool {
	if c.isOther {
		return false
	}
	for _, a := range allowed {
		if c.value == a {
			return true
		}
	}
	return false
}

type categoryJSON struct {
	Value string `json:"value"`
	Other bool   `json:"other,omitempty"`
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(categoryJSON{Value: c.value, Other: c.isOther})
}

func (c *Category) UnmarshalJSON(data []byte) error {
	// Accept both the object form and a bare string (treated as Known).
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Known(s)
		return nil
	}
	var obj categoryJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	if obj.Other {
		*c = Other(obj.Value)
	} else {
		*c = Known(obj.Value)
	}
	return nil
}
