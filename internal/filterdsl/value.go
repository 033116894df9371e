// Package filterdsl implements the filter DSL accepted by the search
// endpoints and compiles it into parameterised SQL fragments.
package filterdsl

import (
	"encoding/json"
	"fmt"
)

// Field names a column or association the DSL can filter on.
type Field string

const (
	FieldCollection Field = "collection"
	FieldGallery    Field = "gallery"
	FieldModels     Field = "models"
	FieldTags       Field = "tags"
)

// Op names a filter operator.
type Op string

const (
	OpEq     Op = "eq"
	OpAnyOf  Op = "any_of"
	OpAllOf  Op = "all_of"
	OpExact  Op = "exact"
	OpNoneOf Op = "none_of"
)

// Value is a tagged union: a clause's value is either a single string or a
// list of strings on the wire. It is never switched on via a decoded
// interface{} — the variant is named and JSON decoding picks it explicitly.
type Value struct {
	single   string
	multiple []string
	isSingle bool
}

// SingleValue builds a Value holding one string.
func SingleValue(s string) Value {
	return Value{single: s, isSingle: true}
}

// MultipleValue builds a Value holding a list of strings.
func MultipleValue(ss []string) Value {
	return Value{multiple: ss}
}

// AsList returns the value as a list regardless of how it was supplied: a
// single value becomes a one-element list.
func (v Value) AsList() []string {
	if v.isSingle {
		return []string{v.single}
	}
	return v.multiple
}

// UnmarshalJSON decodes either a bare JSON string (-> Single) or a JSON
// array of strings (-> Multiple).
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = SingleValue(s)
		return nil
	}

	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*v = MultipleValue(ss)
		return nil
	}

	return fmt.Errorf("filter value must be a string or an array of strings")
}

// MarshalJSON encodes a Single value as a bare string and a Multiple value
// as a JSON array, mirroring the wire shape UnmarshalJSON accepts.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isSingle {
		return json.Marshal(v.single)
	}
	return json.Marshal(v.multiple)
}

// Clause is one filter predicate: a field, an operator, and a value.
type Clause struct {
	Field Field `json:"field"`
	Op    Op    `json:"op"`
	Value Value `json:"value"`
}
