package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Variant declares which filter control a column uses.
type Variant string

const (
	VariantText        Variant = "text"
	VariantNumber      Variant = "number"
	VariantRange       Variant = "range"
	VariantDate        Variant = "date"
	VariantDateRange   Variant = "dateRange"
	VariantSelect      Variant = "select"
	VariantMultiSelect Variant = "multiSelect"
)

// Variants lists every supported filter variant.
var Variants = []Variant{
	VariantText, VariantNumber, VariantRange, VariantDate, VariantDateRange, VariantSelect, VariantMultiSelect,
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// Operator is the comparison applied by a filter.
type Operator string

const (
	OpILike      Operator = "iLike"
	OpNotILike   Operator = "notILike"
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpIsBetween  Operator = "isBetween"
	OpIsEmpty    Operator = "isEmpty"
	OpIsNotEmpty Operator = "isNotEmpty"
)

// Valueless reports whether the operator ignores the filter value.
func (o Operator) Valueless() bool {
	return o == OpIsEmpty || o == OpIsNotEmpty
}

// OperatorsFor returns the operators a variant accepts, default first.
func OperatorsFor(v Variant) []Operator {
	switch v {
	case VariantText:
		return []Operator{OpILike, OpNotILike, OpEq, OpNe, OpIsEmpty, OpIsNotEmpty}
	case VariantNumber:
		return []Operator{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIsEmpty, OpIsNotEmpty}
	case VariantRange, VariantDateRange:
		return []Operator{OpIsBetween, OpIsEmpty, OpIsNotEmpty}
	case VariantDate:
		return []Operator{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIsEmpty, OpIsNotEmpty}
	case VariantSelect:
		return []Operator{OpEq, OpNe, OpIsEmpty, OpIsNotEmpty}
	case VariantMultiSelect:
		return []Operator{OpIn, OpNotIn, OpIsEmpty, OpIsNotEmpty}
	default:
		return nil
	}
}

// DefaultOperator returns the operator used when a filter omits one.
func DefaultOperator(v Variant) Operator {
	ops := OperatorsFor(v)
	if len(ops) == 0 {
		return OpEq
	}
	return ops[0]
}

// JoinOperator combines multiple active filters.
type JoinOperator string

const (
	JoinAnd JoinOperator = "and"
	JoinOr  JoinOperator = "or"
)

// ValueKind tags the shape held by a FilterValue.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindScalar
	KindList
	KindRange
)

// RangeValue is an inclusive numeric interval. Date ranges use millisecond epochs.
type RangeValue struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// FilterValue holds a scalar, a list or a {min,max} range.
type FilterValue struct {
	kind   ValueKind
	scalar string
	list   []string
	rng    RangeValue
}

// Scalar builds a single-valued filter value.
func Scalar(s string) FilterValue {
	return FilterValue{kind: KindScalar, scalar: s}
}

// List builds a multi-valued filter value.
func List(items ...string) FilterValue {
	var list []string
	if len(items) > 0 {
		list = append(list, items...)
	}
	return FilterValue{kind: KindList, list: list}
}

// Range builds a range value; either bound may be nil.
func Range(min, max *float64) FilterValue {
	return FilterValue{kind: KindRange, rng: RangeValue{Min: copyFloat(min), Max: copyFloat(max)}}
}

// Between is a convenience for a closed range.
func Between(min, max float64) FilterValue {
	return Range(&min, &max)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Kind returns the shape of the value.
func (v FilterValue) Kind() ValueKind { return v.kind }

// String returns the scalar text; empty for other shapes.
func (v FilterValue) String() string { return v.scalar }

// Items returns a copy of the list items.
func (v FilterValue) Items() []string {
	if len(v.list) == 0 {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// Bounds returns the range bounds.
func (v FilterValue) Bounds() RangeValue {
	return RangeValue{Min: copyFloat(v.rng.Min), Max: copyFloat(v.rng.Max)}
}

// IsEmpty reports whether the value carries nothing to filter on.
func (v FilterValue) IsEmpty() bool {
	switch v.kind {
	case KindScalar:
		return v.scalar == ""
	case KindList:
		return len(v.list) == 0
	case KindRange:
		return v.rng.Min == nil && v.rng.Max == nil
	default:
		return true
	}
}

// Equal compares two values structurally. An unset value equals the empty
// scalar it encodes to.
func (v FilterValue) Equal(o FilterValue) bool {
	if v.kind == KindNone {
		v = Scalar("")
	}
	if o.kind == KindNone {
		o = Scalar("")
	}
	if v.IsEmpty() && o.IsEmpty() && v.kind == o.kind {
		return true
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return v.scalar == o.scalar
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case KindRange:
		return floatPtrEqual(v.rng.Min, o.rng.Min) && floatPtrEqual(v.rng.Max, o.rng.Max)
	default:
		return true
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MarshalJSON encodes scalars as strings, lists as arrays and ranges as objects.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindRange:
		return json.Marshal(v.rng)
	default:
		return json.Marshal(v.scalar)
	}
}

// UnmarshalJSON accepts a string, number, bool, array or {min,max} object.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Scalar("")
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Scalar(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			s, err := scalarText(item)
			if err != nil {
				return fmt.Errorf("filter value item: %w", err)
			}
			items = append(items, s)
		}
		*v = List(items...)
	case '{':
		var raw struct {
			Min json.RawMessage `json:"min"`
			Max json.RawMessage `json:"max"`
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("range value: %w", err)
		}
		min, err := boundValue(raw.Min)
		if err != nil {
			return fmt.Errorf("range min: %w", err)
		}
		max, err := boundValue(raw.Max)
		if err != nil {
			return fmt.Errorf("range max: %w", err)
		}
		*v = Range(min, max)
	default:
		s, err := scalarText(data)
		if err != nil {
			return err
		}
		*v = Scalar(s)
	}
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("unsupported value %s", string(raw))
		}
		return n.String(), nil
	}
}

func boundValue(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	text, err := scalarText(raw)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("bound %q is not numeric", text)
	}
	return &f, nil
}

// ActiveFilter is one applied column filter.
type ActiveFilter struct {
	ID       string      `json:"id" validate:"required"`
	Value    FilterValue `json:"value"`
	Operator Operator    `json:"operator,omitempty" validate:"omitempty,oneof=iLike notILike eq ne in notIn lt lte gt gte isBetween isEmpty isNotEmpty"`
	Variant  Variant     `json:"variant,omitempty" validate:"omitempty,oneof=text number range date dateRange select multiSelect"`
	TableID  string      `json:"tableId,omitempty"`
}

// Empty reports whether the filter should be dropped from the query.
func (f ActiveFilter) Empty() bool {
	if f.Operator.Valueless() {
		return false
	}
	return f.Value.IsEmpty()
}

// Equal compares two filters field by field. Values are ignored for
// valueless operators.
func (f ActiveFilter) Equal(o ActiveFilter) bool {
	if f.ID != o.ID || f.Operator != o.Operator || f.Variant != o.Variant || f.TableID != o.TableID {
		return false
	}
	return f.Operator.Valueless() || f.Value.Equal(o.Value)
}

// SameFilters compares two filter lists in order.
func SameFilters(a, b []ActiveFilter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// ConsistentWithVariant checks the value shape against the declared variant.
func (f ActiveFilter) ConsistentWithVariant() bool {
	if f.Operator.Valueless() || f.Variant == "" {
		return true
	}
	switch f.Variant {
	case VariantMultiSelect:
		return f.Value.Kind() == KindList
	case VariantRange, VariantDateRange:
		return f.Value.Kind() == KindRange
	default:
		return f.Value.Kind() == KindScalar
	}
}

// SortItem orders by one column.
type SortItem struct {
	ID   string `json:"id" validate:"required"`
	Desc bool   `json:"desc"`
}

// SearchParams is the complete query state of a table.
type SearchParams struct {
	Page         int            `json:"page" validate:"min=1"`
	PerPage      int            `json:"perPage" validate:"min=1"`
	Sort         []SortItem     `json:"sort" validate:"dive"`
	Filters      []ActiveFilter `json:"filters" validate:"dive"`
	JoinOperator JoinOperator   `json:"joinOperator" validate:"oneof=and or"`
	ViewID       string         `json:"viewId,omitempty"`
}

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// DefaultSearchParams returns the hardcoded table defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{Page: DefaultPage, PerPage: DefaultPerPage, JoinOperator: JoinAnd}
}

// Offset returns the row offset of the current page.
func (p SearchParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Clone returns a deep copy.
func (p SearchParams) Clone() SearchParams {
	out := p
	out.Sort = append([]SortItem(nil), p.Sort...)
	out.Filters = append([]ActiveFilter(nil), p.Filters...)
	return out
}

// Equal compares two params structurally, treating nil and empty slices alike.
func (p SearchParams) Equal(o SearchParams) bool {
	return p.Page == o.Page && p.PerPage == o.PerPage && p.ViewID == o.ViewID && p.ViewParams().Equal(o.ViewParams())
}

// ViewParams extracts the part of the params a saved view snapshots.
func (p SearchParams) ViewParams() ViewParams {
	return ViewParams{
		Sort:         append([]SortItem(nil), p.Sort...),
		Filters:      append([]ActiveFilter(nil), p.Filters...),
		JoinOperator: p.JoinOperator,
	}
}

// WithViewParams overlays a view snapshot, resetting to the first page.
func (p SearchParams) WithViewParams(v ViewParams) SearchParams {
	out := p.Clone()
	out.Page = DefaultPage
	out.Sort = append([]SortItem(nil), v.Sort...)
	out.Filters = append([]ActiveFilter(nil), v.Filters...)
	out.JoinOperator = v.JoinOperator
	if out.JoinOperator == "" {
		out.JoinOperator = JoinAnd
	}
	return out
}

// ColumnOption is one enumerated choice of a select column.
type ColumnOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Count int    `json:"count,omitempty"`
}

// ColumnDef describes a table column and its filtering capabilities.
type ColumnDef struct {
	ID                 string         `json:"id"`
	Label              string         `json:"label"`
	Variant            Variant        `json:"variant,omitempty"`
	Options            []ColumnOption `json:"options,omitempty"`
	RangeMin           *float64       `json:"rangeMin,omitempty"`
	RangeMax           *float64       `json:"rangeMax,omitempty"`
	Unit               string         `json:"unit,omitempty"`
	Placeholder        string         `json:"placeholder,omitempty"`
	EnableSorting      bool           `json:"enableSorting"`
	EnableHiding       bool           `json:"enableHiding"`
	EnableColumnFilter bool           `json:"enableColumnFilter"`
	Meta               bool           `json:"meta,omitempty"`
}

// FilterOption describes one filterable column for filter builders.
type FilterOption struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Variant Variant        `json:"variant"`
	Value   string         `json:"value"`
	Options []ColumnOption `json:"options,omitempty"`
	IsMulti bool           `json:"isMulti"`
}

// FacetBucket is the row count for one distinct column value.
type FacetBucket struct {
	Value string `db:"value" json:"value"`
	Count int    `db:"count" json:"count"`
}

// Facets maps column ids to their value counts.
type Facets map[string][]FacetBucket

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	PageCount  int `json:"page_count"`
}

// NewPagination derives the page count from the totals.
func NewPagination(page, size, total int) *Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, PageCount: pages}
}
