package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeacherRepositoryListWithOrJoin(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	params := models.DefaultSearchParams()
	params.JoinOperator = models.JoinOr
	params.Filters = []models.ActiveFilter{
		{ID: "active", Value: models.Scalar("true"), Operator: models.OpEq},
		{ID: "nip", Operator: models.OpIsEmpty},
	}

	rows := sqlmock.NewRows([]string{"id", "nip", "email", "full_name", "phone", "expertise", "active", "created_at", "updated_at"}).
		AddRow("t1", nil, "a@example.com", "Teacher A", nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT t.id, t.nip, t.email, t.full_name, t.phone, t.expertise, t.active, t.created_at, t.updated_at FROM teachers t WHERE (t.active = $1 OR (t.nip IS NULL OR t.nip = '')) ORDER BY t.created_at DESC, t.id LIMIT 10 OFFSET 0")).
		WithArgs(true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers t WHERE (t.active = $1 OR (t.nip IS NULL OR t.nip = ''))")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@example.com", models.TeacherRowID(list[0]))
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDeactivateByNIPOrEmail(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET active = false, updated_at = $1 WHERE COALESCE(NULLIF(nip, ''), email) = ANY($2) AND active")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Deactivate(context.Background(), []string{"a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
