package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	err := ServiceUnavailable("storage unavailable", context.DeadlineExceeded)
	assert.Equal(t, "[SERVICE_UNAVAILABLE] storage unavailable: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
	assert.Equal(t, Envelope{Code: ErrCodeServiceUnavailable, Message: "storage unavailable"}, err.Envelope())

	wrapped := fmt.Errorf("handler: %w", RateLimitExceeded("slow down"))
	assert.True(t, IsCode(wrapped, ErrCodeRateLimitExceeded))
	assert.Equal(t, ErrCodeRateLimitExceeded, GetCodeFromError(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(context.Canceled, ErrCodeInternal))

	assert.Equal(t, http.StatusUnauthorized, Unauthorized("").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, InvalidArgument("").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Wrap(nil, ErrCodeInternal, "").HTTPStatus())
}
