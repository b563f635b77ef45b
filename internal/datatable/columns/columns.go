// Package columns derives filter options and capabilities from column metadata.
package columns

import (
	"sort"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// CanFilter reports whether the column takes part in filtering.
func CanFilter(c models.ColumnDef) bool {
	return c.EnableColumnFilter && !c.Meta && c.Variant.Valid()
}

// CanSort reports whether the column may appear in the sort list.
func CanSort(c models.ColumnDef) bool {
	return c.EnableSorting && !c.Meta
}

// CanHide reports whether the column visibility can be toggled.
func CanHide(c models.ColumnDef) bool {
	return c.EnableHiding && !c.Meta
}

// Find returns the column with the given id.
func Find(defs []models.ColumnDef, id string) (models.ColumnDef, bool) {
	for _, c := range defs {
		if c.ID == id {
			return c, true
		}
	}
	return models.ColumnDef{}, false
}

// FilterOptionID returns the stable option id for a column.
func FilterOptionID(columnID string) string {
	return columnID + "-filter"
}

// FilterOptions lists the filterable columns in declaration order.
func FilterOptions(defs []models.ColumnDef) []models.FilterOption {
	out := make([]models.FilterOption, 0, len(defs))
	for _, c := range defs {
		if !CanFilter(c) {
			continue
		}
		label := c.Label
		if label == "" {
			label = c.ID
		}
		out = append(out, models.FilterOption{
			ID:      FilterOptionID(c.ID),
			Label:   label,
			Variant: c.Variant,
			Value:   c.ID,
			Options: append([]models.ColumnOption(nil), c.Options...),
			IsMulti: c.Variant == models.VariantMultiSelect,
		})
	}
	return out
}

// Filterable returns the set of filterable column ids.
func Filterable(defs []models.ColumnDef) map[string]models.ColumnDef {
	out := make(map[string]models.ColumnDef)
	for _, c := range defs {
		if CanFilter(c) {
			out[c.ID] = c
		}
	}
	return out
}

// Sortable returns the set of sortable column ids.
func Sortable(defs []models.ColumnDef) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range defs {
		if CanSort(c) {
			out[c.ID] = struct{}{}
		}
	}
	return out
}

// ApplyFacets returns a copy of defs with option counts taken from the facets.
// Values seen in facets but absent from the declared options are appended,
// ordered by descending count.
func ApplyFacets(defs []models.ColumnDef, facets models.Facets) []models.ColumnDef {
	out := make([]models.ColumnDef, len(defs))
	for i, c := range defs {
		out[i] = c
		buckets, ok := facets[c.ID]
		if !ok || (c.Variant != models.VariantSelect && c.Variant != models.VariantMultiSelect) {
			continue
		}
		counts := make(map[string]int, len(buckets))
		for _, b := range buckets {
			counts[b.Value] = b.Count
		}
		opts := make([]models.ColumnOption, 0, len(c.Options)+len(buckets))
		known := make(map[string]struct{}, len(c.Options))
		for _, o := range c.Options {
			o.Count = counts[o.Value]
			known[o.Value] = struct{}{}
			opts = append(opts, o)
		}
		extra := make([]models.FacetBucket, 0)
		for _, b := range buckets {
			if _, ok := known[b.Value]; !ok && b.Value != "" {
				extra = append(extra, b)
			}
		}
		sort.SliceStable(extra, func(a, b int) bool { return extra[a].Count > extra[b].Count })
		for _, b := range extra {
			opts = append(opts, models.ColumnOption{Label: b.Value, Value: b.Value, Count: b.Count})
		}
		out[i].Options = opts
	}
	return out
}
