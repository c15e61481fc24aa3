package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFollowsWrappedKind(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Unauthenticated("no token"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{fmt.Errorf("load: %w", NotFound("complaint")), http.StatusNotFound},
		{Transition("Closed", "Submitted"), http.StatusConflict},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Forbidden("x"))
	assert.True(t, Is(err, KindAuthorization))
	assert.False(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindAuthorization))
}
