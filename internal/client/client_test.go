package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

type studentRow struct {
	NIS      string `json:"nis"`
	FullName string `json:"full_name"`
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestListRowsDecodesEnvelope(t *testing.T) {
	var gotQuery, gotAuth string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/v1/students", r.URL.Path)
		writeJSON(w, http.StatusOK, `{
			"message":"students retrieved",
			"data":[{"nis":"1001","full_name":"Ana"}],
			"meta":{"pagination":{"page":2,"page_size":10,"total_count":11,"page_count":2},"facets":{"grade":[{"value":"10","count":4}]}},
			"links":{"self":"/api/v1/students?page=2","prev":"/api/v1/students"}
		}`)
	})

	c := New(srv.URL+"/api/v1", WithTokenStore(NewMemoryStore("secret")))
	params := models.DefaultSearchParams()
	params.Page = 2
	res := ListRows[studentRow](context.Background(), c, nil, "students", params)

	require.True(t, res.Success, res.Err())
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)
	require.Len(t, res.Data.Items, 1)
	assert.Equal(t, "Ana", res.Data.Items[0].FullName)
	assert.Equal(t, 2, res.Data.Pagination.PageCount)
	assert.Equal(t, 4, res.Data.Facets["grade"][0].Count)
	assert.Equal(t, "/api/v1/students", res.Links.Prev)
}

func TestEnvelopeValidation(t *testing.T) {
	cases := map[string]string{
		"missing data":    `{"message":"ok"}`,
		"missing message": `{"data":[]}`,
		"not an object":   `[1,2,3]`,
		"wrong data":      `{"message":"ok","data":{"nis":1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})
			rec := &notify.Recorder{}
			c := New(srv.URL, WithNotifier(rec))

			res := ListRows[studentRow](context.Background(), c, nil, "students", models.DefaultSearchParams())
			require.False(t, res.Success)
			assert.Equal(t, ErrorValidation, res.Error.Type)
			assert.True(t, notify.Surfaced(res.Err()))
			require.Len(t, rec.Messages(), 1)
		})
	}
}

func TestUnauthorizedClearsTokenAndRedirects(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"unauthorized","data":null,"error":{"code":"UNAUTHORIZED","message":"token expired","status":401}}`)
	})
	store := NewMemoryStore("stale")
	redirected := false
	c := New(srv.URL, WithTokenStore(store), OnUnauthorized(func() { redirected = true }))

	_, err := c.ListViews(context.Background(), "students")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrorAPI, apiErr.Type)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.True(t, redirected)
	token, _ := store.Get()
	assert.Empty(t, token)
}

func TestForbiddenCallsHook(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"message":"forbidden","data":null}`)
	})
	forbidden := false
	c := New(srv.URL, OnForbidden(func() { forbidden = true }))

	err := c.DeleteView(context.Background(), "students", "v1")
	require.Error(t, err)
	assert.True(t, forbidden)
}

func TestServerErrorToastsRetryHint(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"internal server error","data":null}`)
	})
	rec := &notify.Recorder{}
	c := New(srv.URL, WithNotifier(rec))

	_, err := c.BulkDeactivate(context.Background(), "students", []string{"1001"})
	require.Error(t, err)
	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Contains(t, msg.Text, "try again later")
}

func TestNetworkErrorIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := ListRows[studentRow](context.Background(), New(url), nil, "students", models.DefaultSearchParams())
	require.False(t, res.Success)
	assert.Equal(t, ErrorUnknown, res.Error.Type)
}

func TestViewRoundTrip(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req models.CreateViewRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Grade 9 only", req.Name)
			writeJSON(w, http.StatusCreated, `{"message":"view created","data":{"id":"v1","name":"Grade 9 only","tableName":"students","columns":["grade"],"searchParams":{"sort":[],"filters":[{"id":"grade","value":"9"}],"joinOperator":"and"}}}`)
		case http.MethodPatch:
			assert.Equal(t, "/students/views/v1", r.URL.Path)
			writeJSON(w, http.StatusOK, `{"message":"view updated","data":{"id":"v1","name":"Renamed","tableName":"students","columns":["grade"],"searchParams":{"sort":[],"filters":[]}}}`)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})
	c := New(srv.URL)

	created, err := c.CreateView(context.Background(), "students", models.CreateViewRequest{Name: "Grade 9 only", TableName: "students"})
	require.NoError(t, err)
	require.Len(t, created.SearchParams.Filters, 1)
	assert.Equal(t, "9", created.SearchParams.Filters[0].Value.String())

	name := "Renamed"
	updated, err := c.UpdateView(context.Background(), "students", "v1", models.UpdateViewRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestFetcherReturnsPage(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"message":"ok","data":[{"nis":"1"}],"meta":{"pagination":{"page":1,"page_size":10,"total_count":1,"page_count":1}}}`)
	})
	fetcher := NewFetcher[studentRow](New(srv.URL), searchparams.NewCodec(), "students")

	page, err := fetcher.Fetch(context.Background(), models.DefaultSearchParams())
	require.NoError(t, err)
	assert.Equal(t, 1, page.PageCount)
	assert.Len(t, page.Rows, 1)
}

func TestListQueryRejectsMalformedQuery(t *testing.T) {
	res := ListQuery[studentRow](context.Background(), New("http://unused"), "students", "filters=not-json")
	require.False(t, res.Success)
	assert.Equal(t, ErrorValidation, res.Error.Type)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("smactl-test", nil)

	token, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Set("abc"))
	token, err = store.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.False(t, store.UsingFallback())

	require.NoError(t, store.Clear())
	token, _ = store.Get()
	assert.Empty(t, token)
}

func TestKeyringStoreFallsBackToMemory(t *testing.T) {
	keyring.MockInitWithError(assert.AnError)
	store := NewKeyringStore("smactl-test", nil)

	require.NoError(t, store.Set("abc"))
	assert.True(t, store.UsingFallback())
	token, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
