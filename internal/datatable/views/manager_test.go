package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

// overTheWire sends a snapshot through JSON the way the gateway stores it.
func overTheWire(p models.ViewParams) models.ViewParams {
	raw, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	var out models.ViewParams
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

type fakeBackend struct {
	views     []models.View
	seq       int
	err       error
	listCalls int
}

func (f *fakeBackend) ListViews(_ context.Context, table string) ([]models.View, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.View
	for _, v := range f.views {
		if v.TableName == table {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateView(_ context.Context, table string, req models.CreateViewRequest) (*models.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	v := models.View{
		ID:           fmt.Sprintf("view-%d", f.seq),
		Name:         req.Name,
		TableName:    table,
		Columns:      req.Columns,
		SearchParams: overTheWire(req.SearchParams),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.views = append(f.views, v)
	return &v, nil
}

func (f *fakeBackend) UpdateView(_ context.Context, _ string, id string, req models.UpdateViewRequest) (*models.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.views {
		if f.views[i].ID != id {
			continue
		}
		if req.Name != nil {
			f.views[i].Name = *req.Name
		}
		if req.Columns != nil {
			f.views[i].Columns = req.Columns
		}
		if req.SearchParams != nil {
			f.views[i].SearchParams = overTheWire(*req.SearchParams)
		}
		v := f.views[i]
		return &v, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeBackend) DeleteView(_ context.Context, _ string, id string) error {
	if f.err != nil {
		return f.err
	}
	for i := range f.views {
		if f.views[i].ID == id {
			f.views = append(f.views[:i], f.views[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

var columns = []string{"studentName", "grade", "className"}

func gradeNine() models.SearchParams {
	p := models.DefaultSearchParams()
	p.Filters = []models.ActiveFilter{{ID: "grade", Value: models.Scalar("9")}}
	return p
}

func TestFilterThenSaveView(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	rec := &notify.Recorder{}
	m := NewManager("students", backend, models.DefaultSearchParams(), WithNotifier(rec))
	require.NoError(t, m.Load(ctx))

	live := models.DefaultSearchParams()
	assert.False(t, m.CanSaveNew(live))

	live = gradeNine()
	assert.True(t, m.CanSaveNew(live))

	view, err := m.Create(ctx, " Grade 9 only ", live, columns)
	require.NoError(t, err)
	assert.Equal(t, "Grade 9 only", view.Name)
	assert.Equal(t, 2, backend.listCalls)
	require.Len(t, m.List(), 1)
	assert.Equal(t, ViewClean, m.State(live, columns))
	assert.False(t, m.CanSaveNew(live))

	m.Deselect()
	selected, err := m.Select(view.ID)
	require.NoError(t, err)
	restored := models.DefaultSearchParams().WithViewParams(selected.SearchParams)
	require.Len(t, restored.Filters, 1)
	assert.Equal(t, "grade", restored.Filters[0].ID)
	assert.Equal(t, "9", restored.Filters[0].Value.String())
	assert.True(t, restored.Equal(live))

	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelSuccess, msg.Level)
}

func TestDivergenceFlipsAndResets(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{views: []models.View{{
		ID: "v1", Name: "Grade 9", TableName: "students", Columns: columns, SearchParams: gradeNine().ViewParams(),
	}}}
	m := NewManager("students", backend, models.DefaultSearchParams())
	require.NoError(t, m.Load(ctx))
	assert.Equal(t, NoViewSelected, m.State(gradeNine(), columns))

	_, err := m.Select("v1")
	require.NoError(t, err)
	assert.Equal(t, ViewClean, m.State(gradeNine(), columns))

	live := gradeNine()
	live.Filters[0].Value = models.Scalar("10")
	assert.True(t, m.CanUpdate(live, columns))

	assert.Equal(t, ViewClean, m.State(gradeNine(), columns))

	page := gradeNine()
	page.Page = 4
	assert.Equal(t, ViewClean, m.State(page, columns))
}

func TestDivergenceUsesColumnMembership(t *testing.T) {
	view := models.View{Columns: []string{"studentName", "grade"}, SearchParams: models.DefaultSearchParams().ViewParams()}
	live := models.DefaultSearchParams()

	assert.False(t, Diverges(view, live, []string{"grade", "studentName"}))
	assert.True(t, Diverges(view, live, []string{"studentName", "className"}))
	assert.True(t, Diverges(view, live, []string{"studentName"}))
}

func TestUpdateOverwritesSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{views: []models.View{{ID: "v1", TableName: "students", Columns: columns, SearchParams: gradeNine().ViewParams()}}}
	m := NewManager("students", backend, models.DefaultSearchParams())
	require.NoError(t, m.Load(ctx))

	_, err := m.Update(ctx, gradeNine(), columns)
	assert.ErrorIs(t, err, ErrNoViewSelected)

	_, err = m.Select("v1")
	require.NoError(t, err)
	live := gradeNine()
	live.Sort = []models.SortItem{{ID: "studentName", Desc: true}}
	require.Equal(t, ViewDirty, m.State(live, columns[:2]))

	_, err = m.Update(ctx, live, columns[:2])
	require.NoError(t, err)
	assert.Equal(t, ViewClean, m.State(live, columns[:2]))
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{views: []models.View{{ID: "v1", Name: "Old", TableName: "students"}}}
	rec := &notify.Recorder{}
	m := NewManager("students", backend, models.DefaultSearchParams(), WithNotifier(rec))
	require.NoError(t, m.Load(ctx))
	_, err := m.Select("v1")
	require.NoError(t, err)

	backend.err = errors.New("boom")
	_, err = m.Rename(ctx, "v1", "New")
	require.Error(t, err)
	v, _ := m.Current()
	assert.Equal(t, "Old", v.Name)

	require.Error(t, m.Delete(ctx, "v1"))
	_, ok := m.Current()
	assert.True(t, ok)

	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, msg.Level)
}

type surfacedErr struct{}

func (surfacedErr) Error() string  { return "already shown" }
func (surfacedErr) Surfaced() bool { return true }

func TestSurfacedErrorsAreNotToastedTwice(t *testing.T) {
	backend := &fakeBackend{err: surfacedErr{}}
	rec := &notify.Recorder{}
	m := NewManager("students", backend, models.DefaultSearchParams(), WithNotifier(rec))

	require.Error(t, m.Load(context.Background()))
	assert.Empty(t, rec.Messages())
}

func TestDeleteActiveViewClearsSelection(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{views: []models.View{{ID: "v1", TableName: "students"}, {ID: "v2", TableName: "students"}}}
	m := NewManager("students", backend, models.DefaultSearchParams())
	require.NoError(t, m.Load(ctx))
	_, err := m.Select("v1")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "v1"))
	_, ok := m.Current()
	assert.False(t, ok)
	assert.Len(t, m.List(), 1)
	assert.ErrorIs(t, m.Delete(ctx, "v1"), ErrViewNotFound)
}

func TestCreateRejectedWhileViewSelected(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{views: []models.View{{ID: "v1", TableName: "students"}}}
	m := NewManager("students", backend, models.DefaultSearchParams())
	require.NoError(t, m.Load(ctx))
	_, err := m.Select("v1")
	require.NoError(t, err)

	_, err = m.Create(ctx, "again", gradeNine(), columns)
	assert.ErrorIs(t, err, ErrCannotSave)
}

func TestViewsAreIsolatedPerTable(t *testing.T) {
	backend := &fakeBackend{views: []models.View{{ID: "v1", TableName: "students"}, {ID: "t1", TableName: "teachers"}}}
	m := NewManager("teachers", backend, models.DefaultSearchParams())
	require.NoError(t, m.Load(context.Background()))
	require.Len(t, m.List(), 1)
	assert.Equal(t, "t1", m.List()[0].ID)
}

func TestDiffShowsChangedLines(t *testing.T) {
	view := models.View{Columns: columns, SearchParams: gradeNine().ViewParams()}
	same, err := Diff(view, gradeNine(), columns)
	require.NoError(t, err)
	assert.Empty(t, same)

	live := gradeNine()
	live.JoinOperator = models.JoinOr
	out, err := Diff(view, live, columns)
	require.NoError(t, err)
	assert.Contains(t, out, `-   "joinOperator": "and",`)
	assert.Contains(t, out, `+   "joinOperator": "or",`)
}

func TestValuelessFilterViewStaysCleanAfterSave(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	m := NewManager("teachers", backend, models.DefaultSearchParams())
	require.NoError(t, m.Load(ctx))

	live := models.DefaultSearchParams()
	live.Filters = []models.ActiveFilter{{ID: "nip", Operator: models.OpIsEmpty, Variant: models.VariantText}}

	view, err := m.Create(ctx, "No NIP", live, columns)
	require.NoError(t, err)
	assert.Equal(t, models.KindScalar, view.SearchParams.Filters[0].Value.Kind())
	assert.Equal(t, ViewClean, m.State(live, columns))
	assert.False(t, m.CanUpdate(live, columns))
}
