package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

var viewRowColumns = []string{"id", "name", "table_name", "columns", "search_params", "created_by", "created_at", "updated_at"}

func TestViewRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewViewRepository(db)

	rows := sqlmock.NewRows(viewRowColumns).
		AddRow("v1", "Grade 9 only", "students", "{nis,grade}", []byte(`{"sort":[],"filters":[{"id":"grade","value":"9"}],"joinOperator":"and"}`), nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM table_views WHERE table_name = $1 ORDER BY name ASC")).
		WithArgs("students").
		WillReturnRows(rows)

	views, err := repo.List(context.Background(), "students")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []string{"nis", "grade"}, views[0].Columns)
	require.Len(t, views[0].SearchParams.Filters, 1)
	assert.Equal(t, "9", views[0].SearchParams.Filters[0].Value.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViewRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewViewRepository(db)

	mock.ExpectExec("INSERT INTO table_views").
		WithArgs(sqlmock.AnyArg(), "Grade 9 only", "students", sqlmock.AnyArg(), sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	view := &models.View{Name: "Grade 9 only", TableName: "students", Columns: []string{"grade"}}
	require.NoError(t, repo.Create(context.Background(), view))
	assert.NotEmpty(t, view.ID)
	assert.False(t, view.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViewRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewViewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM table_views WHERE table_name = $1 AND LOWER(name) = LOWER($2) AND id <> $3 LIMIT 1")).
		WithArgs("students", "Grade 9 only", "v1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByName(context.Background(), "students", "Grade 9 only", "v1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViewRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewViewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM table_views WHERE table_name = $1 AND id = $2")).
		WithArgs("students", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "students", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
