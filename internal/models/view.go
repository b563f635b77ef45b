package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ViewParams is the filter/sort snapshot stored by a saved view.
type ViewParams struct {
	Sort         []SortItem     `json:"sort"`
	Filters      []ActiveFilter `json:"filters"`
	JoinOperator JoinOperator   `json:"joinOperator,omitempty"`
}

// Equal compares two snapshots, treating nil and empty slices alike.
func (v ViewParams) Equal(o ViewParams) bool {
	if joinOrDefault(v.JoinOperator) != joinOrDefault(o.JoinOperator) {
		return false
	}
	if len(v.Sort) != len(o.Sort) {
		return false
	}
	for i := range v.Sort {
		if v.Sort[i] != o.Sort[i] {
			return false
		}
	}
	return SameFilters(v.Filters, o.Filters)
}

func joinOrDefault(j JoinOperator) JoinOperator {
	if j == "" {
		return JoinAnd
	}
	return j
}

// Value marshals the snapshot to JSON for persistence.
func (v ViewParams) Value() (driver.Value, error) {
	if v.Sort == nil {
		v.Sort = []SortItem{}
	}
	if v.Filters == nil {
		v.Filters = []ActiveFilter{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal view params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the snapshot.
func (v *ViewParams) Scan(value interface{}) error {
	if value == nil {
		*v = ViewParams{}
		return nil
	}
	var data []byte
	switch raw := value.(type) {
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		return fmt.Errorf("unsupported type %T for ViewParams", value)
	}
	if len(data) == 0 {
		*v = ViewParams{}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal view params: %w", err)
	}
	return nil
}

// View is a named, persisted snapshot of a table's filters, sort and visible columns.
type View struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	TableName    string     `json:"tableName"`
	Columns      []string   `json:"columns"`
	SearchParams ViewParams `json:"searchParams"`
	CreatedBy    *string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// SameColumns reports whether the view shows exactly the given column set.
func (v View) SameColumns(columns []string) bool {
	return sameSet(v.Columns, columns)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// CreateViewRequest is the payload for saving a new view.
type CreateViewRequest struct {
	Name         string     `json:"name" validate:"required,max=80"`
	TableName    string     `json:"tableName" validate:"required"`
	Columns      []string   `json:"columns" validate:"dive,required"`
	SearchParams ViewParams `json:"searchParams"`
}

// UpdateViewRequest renames a view and/or overwrites its snapshot.
type UpdateViewRequest struct {
	Name         *string     `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Columns      []string    `json:"columns,omitempty" validate:"omitempty,dive,required"`
	SearchParams *ViewParams `json:"searchParams,omitempty"`
}

// BulkIDsRequest carries row ids for bulk actions.
type BulkIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}
