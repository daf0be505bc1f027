package camunda

import (
	"errors"
	"testing"

	apperrors "marketplace-matching/internal/common/errors"

	"github.com/stretchr/testify/assert"
)

func TestMapGatewayError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{name: "deadline", err: errors.New("rpc error: code = DeadlineExceeded desc = context deadline exceeded"), code: apperrors.ErrCodeUpstreamTimeout},
		{name: "refused", err: errors.New("dial tcp 127.0.0.1:26500: connection refused"), code: apperrors.ErrCodeUpstreamUnavailable},
		{name: "unavailable", err: errors.New("rpc error: code = Unavailable"), code: apperrors.ErrCodeUpstreamUnavailable},
		{name: "other", err: errors.New("permission denied"), code: apperrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapGatewayError(tt.err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}
