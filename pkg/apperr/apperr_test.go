package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"pixshare/pkg/apperr"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperr.ErrUnauthorized},
		{http.StatusUnprocessableEntity, apperr.ErrUnauthorized},
		{http.StatusForbidden, apperr.ErrForbidden},
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusGone, apperr.ErrExpired},
		{http.StatusBadRequest, apperr.ErrValidation},
		{http.StatusInternalServerError, nil},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, apperr.KindForStatus(test.status), "status %d", test.status)
	}
}

func TestHTTPErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("list albums: %w", &apperr.HTTPError{Status: 403, Message: "nope", Kind: apperr.ErrForbidden})

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.NotErrorIs(t, err, apperr.ErrUnauthorized)

	var he *apperr.HTTPError
	assert.True(t, errors.As(err, &he))
	assert.Equal(t, "http 403: nope", he.Error())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, apperr.Message(apperr.ErrNotFound), apperr.Message(apperr.ErrExpired))
	assert.NotEqual(t, apperr.Message(apperr.ErrForbidden), apperr.Message(apperr.ErrUnauthorized))
	assert.Equal(t, "Content is required",
		apperr.Message(&apperr.HTTPError{Status: 400, Message: "Content is required", Kind: apperr.ErrValidation}))
	assert.NotEmpty(t, apperr.Message(errors.New("boom")))
	assert.Empty(t, apperr.Message(nil))
}
