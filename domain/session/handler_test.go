package session

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/pkg/apperror"
)

func TestTranslateErr_ConcurrentStartMapsToConflict(t *testing.T) {
	err := translateErr(&workflow.ConcurrentStart{ProjectID: "proj-1"})

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestTranslateErr_DependencyMissingMapsToUnprocessable(t *testing.T) {
	err := translateErr(&workflow.DependencyMissing{SessionID: "sess-1", Reason: "deadlock"})

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
}

func TestTranslateErr_UnknownErrorMapsToInternal(t *testing.T) {
	err := translateErr(errors.New("boom"))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}
