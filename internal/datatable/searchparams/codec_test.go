package searchparams

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
)

func studentColumns() []models.ColumnDef {
	return []models.ColumnDef{
		{ID: "select", Meta: true},
		{ID: "full_name", Variant: models.VariantText, EnableColumnFilter: true, EnableSorting: true},
		{ID: "grade", Variant: models.VariantMultiSelect, EnableColumnFilter: true, EnableSorting: true},
		{ID: "birth_date", Variant: models.VariantDateRange, EnableColumnFilter: true},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec()
	params := models.SearchParams{
		Page:         3,
		PerPage:      25,
		Sort:         []models.SortItem{{ID: "name", Desc: true}},
		Filters:      []models.ActiveFilter{{ID: "grade", Value: models.List("9", "10"), Operator: models.OpIn}},
		JoinOperator: models.JoinOr,
	}

	decoded, err := codec.Decode(codec.Encode(params))
	require.NoError(t, err)
	assert.True(t, params.Equal(decoded))
	assert.Equal(t, params, decoded)
}

func TestCodecRoundTripThroughQueryString(t *testing.T) {
	codec := NewCodec()
	params := models.SearchParams{
		Page:    2,
		PerPage: 10,
		Filters: []models.ActiveFilter{
			{ID: "birth_date", Value: models.Between(1.6e12, 1.7e12), Operator: models.OpIsBetween, Variant: models.VariantDateRange},
			{ID: "full_name", Value: models.Scalar("ana"), Operator: models.OpILike, Variant: models.VariantText, TableID: "students"},
		},
		JoinOperator: models.JoinAnd,
		ViewID:       "view-1",
	}

	decoded, err := codec.DecodeQuery("?" + codec.EncodeQuery(params))
	require.NoError(t, err)
	assert.True(t, params.Equal(decoded))
}

func TestCodecStripsDefaults(t *testing.T) {
	codec := NewCodec()
	assert.Empty(t, codec.EncodeQuery(models.SearchParams{Page: 1, PerPage: 10, JoinOperator: models.JoinAnd}))
	assert.Empty(t, codec.EncodeQuery(models.DefaultSearchParams()))
}

func TestCodecDecodeDefaults(t *testing.T) {
	params, err := NewCodec().Decode(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.PerPage)
	assert.Empty(t, params.Sort)
	assert.Empty(t, params.Filters)
	assert.Equal(t, models.JoinAnd, params.JoinOperator)
}

func TestCodecRejectsMalformedFilters(t *testing.T) {
	_, err := NewCodec().Decode(url.Values{"filters": {"not-json"}})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KeyFilters, verr.Issues[0].Field)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidSearchParam))
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}

func TestCodecRejectsInvalidShapes(t *testing.T) {
	codec := NewCodec()
	cases := map[string]url.Values{
		"page zero":     {"page": {"0"}},
		"page text":     {"page": {"two"}},
		"per page max":  {"perPage": {"500"}},
		"join operator": {"joinOperator": {"xor"}},
		"sort unknown":  {"sort": {`[{"id":"name","asc":true}]`}},
		"bad operator":  {"filters": {`[{"id":"grade","value":"9","operator":"like"}]`}},
		"variant shape": {"filters": {`[{"id":"grade","value":"9","operator":"in","variant":"multiSelect"}]`}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(values)
			assert.Error(t, err)
		})
	}
}

func TestCodecValidateAgainstColumns(t *testing.T) {
	codec := NewCodec()
	params := codec.Defaults()
	params.Filters = []models.ActiveFilter{{ID: "phone", Value: models.Scalar("08"), Operator: models.OpILike}}
	assert.Error(t, codec.Validate(params, studentColumns()))

	params.Filters = []models.ActiveFilter{{ID: "grade", Value: models.List("10"), Operator: models.OpIn}}
	assert.NoError(t, codec.Validate(params, studentColumns()))

	params.Filters = []models.ActiveFilter{{ID: "grade", Value: models.Scalar("10"), Operator: models.OpEq}}
	assert.Error(t, codec.Validate(params, studentColumns()))

	params.Filters = nil
	params.Sort = []models.SortItem{{ID: "birth_date"}}
	assert.Error(t, codec.Validate(params, studentColumns()))
}

func TestCleanDropsEmptyAndDuplicates(t *testing.T) {
	params := models.DefaultSearchParams()
	params.Filters = []models.ActiveFilter{
		{ID: "grade", Value: models.List("10"), Operator: models.OpIn},
		{ID: "full_name", Value: models.Scalar(""), Operator: models.OpILike},
		{ID: "status", Value: models.List(), Operator: models.OpIn},
		{ID: "grade", Value: models.List("11"), Operator: models.OpIn},
		{ID: "phone", Operator: models.OpIsEmpty},
	}

	cleaned := Clean(params)
	require.Len(t, cleaned.Filters, 2)
	assert.Equal(t, []string{"11"}, cleaned.Filters[0].Value.Items())
	assert.Equal(t, "phone", cleaned.Filters[1].ID)
}

func TestCleanValues(t *testing.T) {
	values := CleanValues(url.Values{"page": {"2"}, "sort": {"[]"}, "filters": {""}, "viewId": {" "}})
	assert.Equal(t, url.Values{"page": {"2"}}, values)
}

func TestStateKeepsLastValidParams(t *testing.T) {
	rec := &notify.Recorder{}
	state := NewState(NewCodec(), studentColumns(), zap.NewNop(), rec)

	_, changed, err := state.Apply(url.Values{"filters": {"not-json"}})
	require.Error(t, err)
	assert.False(t, changed)
	assert.Empty(t, state.Current().Filters)
	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelWarning, msg.Level)

	valid := url.Values{"filters": {`[{"id":"grade","value":["10"],"operator":"in"}]`}}
	params, changed, err := state.Apply(valid)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, params.Filters, 1)

	_, changed, err = state.Apply(url.Values{"filters": {"not-json"}})
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"10"}, state.Current().Filters[0].Value.Items())

	_, changed, err = state.Apply(valid)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, rec.Messages(), 2)
}

func TestStateSetRejectsUnknownColumns(t *testing.T) {
	state := NewState(NewCodec(), studentColumns(), nil, nil)
	params := state.Current()
	params.Filters = []models.ActiveFilter{{ID: "unknown", Value: models.Scalar("x")}}

	_, changed, err := state.Set(params)
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Empty(t, state.Values())
}

func TestCodecRoundTripValuelessFilter(t *testing.T) {
	codec := NewCodec()
	params := models.DefaultSearchParams()
	params.Filters = []models.ActiveFilter{{ID: "email", Operator: models.OpIsEmpty, Variant: models.VariantText}}

	decoded, err := codec.Decode(codec.Encode(params))
	require.NoError(t, err)
	assert.True(t, params.Equal(decoded))
	require.Len(t, decoded.Filters, 1)
	assert.Equal(t, models.KindScalar, decoded.Filters[0].Value.Kind())

	noValue, err := codec.Decode(url.Values{KeyFilters: {`[{"id":"email","operator":"isEmpty","variant":"text"}]`}})
	require.NoError(t, err)
	assert.True(t, decoded.Equal(noValue))
}

func TestValidateReportsMessagesVerbatim(t *testing.T) {
	verr := &ValidationError{}
	verr.add("params", "%s", "100% invalid")
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "100% invalid", verr.Issues[0].Message)
}
