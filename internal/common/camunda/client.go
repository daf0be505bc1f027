package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "marketplace-matching/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Connect opens a plaintext gateway connection and verifies it with a
// topology request.
func Connect(ctx context.Context, address string, connectTimeout time.Duration) (zbc.Client, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	if err := HealthCheck(ctx, client, connectTimeout); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func HealthCheck(ctx context.Context, client zbc.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := client.NewTopologyCommand().Send(ctx); err != nil {
		return MapGatewayError(err)
	}
	return nil
}

// MapGatewayError classifies a gateway failure into the shared error codes.
func MapGatewayError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return apperrors.NewUpstreamTimeoutError("zeebe", err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "unreachable"):
		return apperrors.NewUpstreamUnavailableError("zeebe", err)
	default:
		return apperrors.NewInternalError(fmt.Errorf("zeebe: %w", err))
	}
}
