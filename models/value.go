package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// IntOrString holds a card attribute that is usually numeric but that some
// cards render as text (a cost of "X", a power of "－"). It marshals as a
// JSON number when numeric and as the raw string otherwise.
type IntOrString struct {
	Int   int
	Raw   string
	IsInt bool
}

// ParseIntOrString builds an IntOrString from raw attribute text.
func ParseIntOrString(s string) IntOrString {
	t := strings.TrimSpace(s)
	if n, err := strconv.Atoi(t); err == nil {
		return IntOrString{Int: n, IsInt: true}
	}
	return IntOrString{Raw: t}
}

// String returns the numeric text when numeric, the raw text otherwise.
func (v IntOrString) String() string {
	if v.IsInt {
		return strconv.Itoa(v.Int)
	}
	return v.Raw
}

// MarshalJSON implements json.Marshaler.
func (v IntOrString) MarshalJSON() ([]byte, error) {
	if v.IsInt {
		return json.Marshal(v.Int)
	}
	return json.Marshal(v.Raw)
}

// UnmarshalJSON implements json.Unmarshaler, accepting a number or a string.
func (v *IntOrString) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*v = IntOrString{Int: n, IsInt: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = ParseIntOrString(s)
	return nil
}
