package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/resources"
	"github.com/noah-isme/sma-adp-datatable/internal/service"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
	"github.com/noah-isme/sma-adp-datatable/pkg/response"
)

type studentRepoStub struct {
	last  models.SearchParams
	total int
}

func (s *studentRepoStub) List(_ context.Context, params models.SearchParams) ([]models.Student, int, error) {
	s.last = params
	return []models.Student{{NIS: "1001", FullName: "Ana", Grade: "10"}}, s.total, nil
}

func (s *studentRepoStub) Facets(context.Context, models.SearchParams) (models.Facets, error) {
	return models.Facets{"grade": {{Value: "10", Count: s.total}}}, nil
}

func (s *studentRepoStub) Deactivate(_ context.Context, keys []string) (int, error) {
	return len(keys), nil
}

type viewServiceStub struct {
	created []models.CreateViewRequest
	userIDs []string
}

func (v *viewServiceStub) List(context.Context, string) ([]models.View, error) {
	return []models.View{}, nil
}

func (v *viewServiceStub) Create(_ context.Context, table string, req models.CreateViewRequest, userID string) (*models.View, error) {
	v.created = append(v.created, req)
	v.userIDs = append(v.userIDs, userID)
	return &models.View{ID: "v1", Name: req.Name, TableName: table}, nil
}

func (v *viewServiceStub) Update(_ context.Context, table, id string, req models.UpdateViewRequest) (*models.View, error) {
	if id != "v1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "view not found")
	}
	return &models.View{ID: id, Name: *req.Name, TableName: table}, nil
}

func (v *viewServiceStub) Delete(context.Context, string, string) error {
	return nil
}

type apiFixture struct {
	router *gin.Engine
	repo   *studentRepoStub
	views  *viewServiceStub
	tokens *service.TokenService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &apiFixture{
		router: gin.New(),
		repo:   &studentRepoStub{total: 25},
		views:  &viewServiceStub{},
		tokens: service.NewTokenService(service.TokenConfig{Secret: "test"}, nil),
	}
	tables := service.NewTableService[models.Student](resources.Students, f.repo, resources.Defs(resources.Students), service.TableServiceConfig{})
	RegisterTable(f.router.Group("/api/v1"), resources.Students, NewTableHandler[models.Student](tables), Routes{
		Tokens: f.tokens,
		Views:  NewViewHandler(f.views),
	})
	return f
}

func (f *apiFixture) do(t *testing.T, role models.UserRole, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := f.tokens.Issue("u-"+string(role), role, "", "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestTableListReturnsPaginationFacetsAndLinks(t *testing.T) {
	f := newAPIFixture(t)
	filters := `[{"id":"grade","value":["10"]}]`
	target := "/api/v1/students?page=2&filters=" + url.QueryEscape(filters)

	w, env := f.do(t, models.RoleTeacher, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var meta struct {
		Pagination models.Pagination `json:"pagination"`
		Facets     models.Facets     `json:"facets"`
		CacheHit   bool              `json:"cache_hit"`
	}
	require.NoError(t, json.Unmarshal(env["meta"], &meta))
	assert.Equal(t, 3, meta.Pagination.PageCount)
	assert.Equal(t, 25, meta.Facets["grade"][0].Count)
	assert.False(t, meta.CacheHit)

	var links response.Links
	require.NoError(t, json.Unmarshal(env["links"], &links))
	assert.Contains(t, links.Self, "page=2")
	assert.Contains(t, links.Next, "page=3")
	assert.NotContains(t, links.Prev, "page=")

	require.Len(t, f.repo.last.Filters, 1)
	assert.Equal(t, models.OpIn, f.repo.last.Filters[0].Operator)
}

func TestTableListRejectsInvalidParams(t *testing.T) {
	f := newAPIFixture(t)
	w, env := f.do(t, models.RoleTeacher, http.MethodGet, "/api/v1/students?sort="+url.QueryEscape(`[{"id":"phone"}]`), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env["error"]), "INVALID_SEARCH_PARAMS")
	assert.Contains(t, string(env["error"]), "not sortable")
}

func TestTableRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	w, _ := f.do(t, "", http.MethodGet, "/api/v1/students", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBulkDeactivateRequiresEditor(t *testing.T) {
	f := newAPIFixture(t)
	body := models.BulkIDsRequest{IDs: []string{"1001"}}

	w, _ := f.do(t, models.RoleTeacher, http.MethodPost, "/api/v1/students/bulk-deactivate", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := f.do(t, models.RoleAdmin, http.MethodPost, "/api/v1/students/bulk-deactivate", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"affected":1}`, string(env["data"]))
}

func TestViewMutationsRequireEditor(t *testing.T) {
	f := newAPIFixture(t)
	req := models.CreateViewRequest{Name: "Grade 9 only", TableName: resources.Students}

	w, _ := f.do(t, models.RoleTeacher, http.MethodPost, "/api/v1/students/views", req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.views.created)

	w, env := f.do(t, models.RoleSuperAdmin, http.MethodPost, "/api/v1/students/views", req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, `"view created"`, string(env["message"]))
	assert.Equal(t, []string{"u-SUPERADMIN"}, f.views.userIDs)

	w, _ = f.do(t, models.RoleTeacher, http.MethodGet, "/api/v1/students/views", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestViewUpdateAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	name := "Renamed"

	w, _ := f.do(t, models.RoleAdmin, http.MethodPatch, "/api/v1/students/views/missing", models.UpdateViewRequest{Name: &name})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := f.do(t, models.RoleAdmin, http.MethodPatch, "/api/v1/students/views/v1", models.UpdateViewRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env["data"]), "Renamed")

	w, env = f.do(t, models.RoleAdmin, http.MethodDelete, "/api/v1/students/views/v1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"v1"}`, string(env["data"]))
}

func TestColumnsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w, env := f.do(t, models.RoleTeacher, http.MethodGet, "/api/v1/students/columns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var defs []models.ColumnDef
	require.NoError(t, json.Unmarshal(env["data"], &defs))
	assert.Len(t, defs, len(resources.StudentColumns()))
}
