package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("list students: %w", Wrap(stderrors.New("bad sort"), ErrInvalidSearchParam.Code, http.StatusBadRequest, "invalid"))
	assert.ErrorIs(t, wrapped, ErrInvalidSearchParam)
	assert.NotErrorIs(t, wrapped, ErrValidation)
}

func TestWithDetailsCopies(t *testing.T) {
	detailed := WithDetails(ErrValidation, map[string]string{"name": "required"})
	assert.NotNil(t, detailed.Details)
	assert.Nil(t, ErrValidation.Details)
	assert.Nil(t, WithDetails(nil, "x"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))
	assert.Same(t, ErrConflict, FromError(ErrConflict))

	e := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}
