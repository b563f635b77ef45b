package browse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

const dateLayout = "2006-01-02"

// ParseFilterValue reads what the user typed into the filter prompt.
// Lists are comma separated and ranges use "min..max" with either bound
// optional. Date ranges take YYYY-MM-DD bounds and are stored as epoch
// milliseconds.
func ParseFilterValue(v models.Variant, raw string) (models.FilterValue, error) {
	raw = strings.TrimSpace(raw)
	switch v {
	case models.VariantMultiSelect:
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return models.List(items...), nil
	case models.VariantRange, models.VariantDateRange:
		if raw == "" {
			return models.Range(nil, nil), nil
		}
		lo, hi, ok := strings.Cut(raw, "..")
		if !ok {
			return models.FilterValue{}, fmt.Errorf("expected min..max, got %q", raw)
		}
		min, err := rangeBound(v, lo)
		if err != nil {
			return models.FilterValue{}, err
		}
		max, err := rangeBound(v, hi)
		if err != nil {
			return models.FilterValue{}, err
		}
		return models.Range(min, max), nil
	case models.VariantNumber:
		if raw != "" {
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return models.FilterValue{}, fmt.Errorf("%q is not a number", raw)
			}
		}
		return models.Scalar(raw), nil
	case models.VariantDate:
		if raw != "" {
			if _, err := time.Parse(dateLayout, raw); err != nil {
				return models.FilterValue{}, fmt.Errorf("%q is not a YYYY-MM-DD date", raw)
			}
		}
		return models.Scalar(raw), nil
	default:
		return models.Scalar(raw), nil
	}
}

func rangeBound(v models.Variant, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if v == models.VariantDateRange {
		t, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%q is not a YYYY-MM-DD date", raw)
		}
		ms := float64(t.UnixMilli())
		return &ms, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	return &f, nil
}

// nextOption cycles a faceted filter through the column's options; after the
// last option the filter is cleared.
func nextOption(col models.ColumnDef, current models.FilterValue) models.FilterValue {
	if len(col.Options) == 0 {
		return models.FilterValue{}
	}
	selected := current.String()
	if current.Kind() == models.KindList {
		items := current.Items()
		selected = ""
		if len(items) == 1 {
			selected = items[0]
		}
	}
	next := 0
	if selected != "" {
		next = len(col.Options)
		for i, opt := range col.Options {
			if opt.Value == selected {
				next = i + 1
				break
			}
		}
	}
	if next >= len(col.Options) {
		return models.FilterValue{}
	}
	value := col.Options[next].Value
	if col.Variant == models.VariantMultiSelect {
		return models.List(value)
	}
	return models.Scalar(value)
}
