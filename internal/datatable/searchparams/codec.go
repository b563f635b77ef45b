// Package searchparams converts table query state to and from URL query
// parameters and validates it before use.
package searchparams

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
)

// URL query keys.
const (
	KeyPage         = "page"
	KeyPerPage      = "perPage"
	KeySort         = "sort"
	KeyFilters      = "filters"
	KeyJoinOperator = "joinOperator"
	KeyViewID       = "viewId"
)

// FieldError describes one invalid search parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when decoded params do not match the schema.
type ValidationError struct {
	Issues []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return "invalid search params: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match the error with errors.Is(err, appErrors.ErrInvalidSearchParam).
func (e *ValidationError) Unwrap() error {
	return appErrors.WithDetails(appErrors.ErrInvalidSearchParam, e.Issues)
}

// AppError converts the validation error for HTTP responses.
func (e *ValidationError) AppError() *appErrors.Error {
	return &appErrors.Error{
		Code:    appErrors.ErrInvalidSearchParam.Code,
		Status:  appErrors.ErrInvalidSearchParam.Status,
		Message: appErrors.ErrInvalidSearchParam.Message,
		Details: e.Issues,
		Err:     e,
	}
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Issues = append(e.Issues, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Codec decodes, validates and encodes search params.
type Codec struct {
	validate       *validator.Validate
	defaultPerPage int
	maxPerPage     int
}

// Option configures a Codec.
type Option func(*Codec)

// WithPerPage sets the default and maximum page size.
func WithPerPage(def, max int) Option {
	return func(c *Codec) {
		if def > 0 {
			c.defaultPerPage = def
		}
		if max > 0 {
			c.maxPerPage = max
		}
	}
}

// WithValidator reuses an existing validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(c *Codec) {
		if v != nil {
			c.validate = v
		}
	}
}

// NewCodec constructs a codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		validate:       validator.New(),
		defaultPerPage: models.DefaultPerPage,
		maxPerPage:     100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults returns the params a table starts with.
func (c *Codec) Defaults() models.SearchParams {
	p := models.DefaultSearchParams()
	p.PerPage = c.defaultPerPage
	return p
}

// Decode parses URL values. Nothing is applied when any field is malformed.
func (c *Codec) Decode(values url.Values) (models.SearchParams, error) {
	values = CleanValues(values)
	params := c.Defaults()
	verr := &ValidationError{}

	if raw := values.Get(KeyPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.add(KeyPage, "must be an integer")
		} else {
			params.Page = n
		}
	}
	if raw := values.Get(KeyPerPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.add(KeyPerPage, "must be an integer")
		} else {
			params.PerPage = n
		}
	}
	if raw := values.Get(KeySort); raw != "" {
		var sortItems []models.SortItem
		if err := decodeStrict(raw, &sortItems); err != nil {
			verr.add(KeySort, "must be a JSON array of {id, desc}: %v", err)
		} else {
			params.Sort = sortItems
		}
	}
	if raw := values.Get(KeyFilters); raw != "" {
		var list []models.ActiveFilter
		if err := decodeStrict(raw, &list); err != nil {
			verr.add(KeyFilters, "must be a JSON array of filters: %v", err)
		} else {
			params.Filters = list
		}
	}
	if raw := values.Get(KeyJoinOperator); raw != "" {
		params.JoinOperator = models.JoinOperator(raw)
	}
	params.ViewID = values.Get(KeyViewID)

	if len(verr.Issues) > 0 {
		return c.Defaults(), verr
	}
	params = Clean(params)
	if err := c.Validate(params, nil); err != nil {
		return c.Defaults(), err
	}
	return params, nil
}

// DecodeQuery parses a raw query string.
func (c *Codec) DecodeQuery(raw string) (models.SearchParams, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		verr := &ValidationError{}
		verr.add("query", "malformed query string: %v", err)
		return c.Defaults(), verr
	}
	return c.Decode(values)
}

func decodeStrict(raw string, dest interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}

// Validate checks params against the schema and, when defs is non-nil,
// against the table's filterable and sortable columns.
func (c *Codec) Validate(params models.SearchParams, defs []models.ColumnDef) error {
	verr := &ValidationError{}
	if err := c.validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.add(fieldPath(fe), "failed %s%s", fe.Tag(), paramSuffix(fe.Param()))
			}
		} else {
			verr.add("params", "%s", err.Error())
		}
	}
	if params.PerPage > c.maxPerPage {
		verr.add(KeyPerPage, "must be at most %d", c.maxPerPage)
	}

	var filterable map[string]models.ColumnDef
	var sortable map[string]struct{}
	if defs != nil {
		filterable = columns.Filterable(defs)
		sortable = columns.Sortable(defs)
	}
	for i, f := range params.Filters {
		field := fmt.Sprintf("%s[%d]", KeyFilters, i)
		variant := f.Variant
		if filterable != nil {
			col, ok := filterable[f.ID]
			if !ok {
				verr.add(field, "column %q is not filterable", f.ID)
				continue
			}
			if variant == "" {
				variant = col.Variant
			}
		}
		check := f
		check.Variant = variant
		if !check.ConsistentWithVariant() {
			verr.add(field, "value does not match variant %q", variant)
		}
		if f.Operator != "" && variant != "" && !operatorAllowed(variant, f.Operator) {
			verr.add(field, "operator %q not supported by variant %q", f.Operator, variant)
		}
	}
	seen := make(map[string]struct{}, len(params.Sort))
	for i, s := range params.Sort {
		field := fmt.Sprintf("%s[%d]", KeySort, i)
		if _, dup := seen[s.ID]; dup {
			verr.add(field, "column %q sorted twice", s.ID)
		}
		seen[s.ID] = struct{}{}
		if sortable != nil {
			if _, ok := sortable[s.ID]; !ok {
				verr.add(field, "column %q is not sortable", s.ID)
			}
		}
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

func operatorAllowed(v models.Variant, op models.Operator) bool {
	for _, allowed := range models.OperatorsFor(v) {
		if allowed == op {
			return true
		}
	}
	return false
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return ns
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// Clean drops empty filters and resolves duplicate ids to the last write,
// keeping the position of the first occurrence. Valueless operators carry an
// empty scalar.
func Clean(params models.SearchParams) models.SearchParams {
	out := params.Clone()
	if len(params.Filters) == 0 {
		out.Filters = nil
		return out
	}
	index := make(map[string]int, len(params.Filters))
	cleaned := make([]models.ActiveFilter, 0, len(params.Filters))
	for _, f := range params.Filters {
		if f.Empty() {
			continue
		}
		if f.Operator.Valueless() {
			f.Value = models.Scalar("")
		}
		if i, ok := index[f.ID]; ok {
			cleaned[i] = f
			continue
		}
		index[f.ID] = len(cleaned)
		cleaned = append(cleaned, f)
	}
	if len(cleaned) == 0 {
		cleaned = nil
	}
	out.Filters = cleaned
	return out
}

// CleanValues drops keys whose only values are empty strings or empty arrays.
func CleanValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		kept := make([]string, 0, len(vals))
		for _, v := range vals {
			trimmed := strings.TrimSpace(v)
			if trimmed == "" || trimmed == "[]" {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) > 0 {
			out[key] = kept
		}
	}
	return out
}

// Encode renders params as URL values, omitting defaults.
func (c *Codec) Encode(params models.SearchParams) url.Values {
	values := url.Values{}
	if params.Page > 0 && params.Page != models.DefaultPage {
		values.Set(KeyPage, strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 && params.PerPage != c.defaultPerPage {
		values.Set(KeyPerPage, strconv.Itoa(params.PerPage))
	}
	if len(params.Sort) > 0 {
		if data, err := json.Marshal(params.Sort); err == nil {
			values.Set(KeySort, string(data))
		}
	}
	if len(params.Filters) > 0 {
		if data, err := json.Marshal(params.Filters); err == nil {
			values.Set(KeyFilters, string(data))
		}
	}
	if params.JoinOperator != "" && params.JoinOperator != models.JoinAnd {
		values.Set(KeyJoinOperator, string(params.JoinOperator))
	}
	if params.ViewID != "" {
		values.Set(KeyViewID, params.ViewID)
	}
	return values
}

// EncodeQuery renders params as a query string; url.Values sorts keys so the
// output is stable.
func (c *Codec) EncodeQuery(params models.SearchParams) string {
	return c.Encode(params).Encode()
}
