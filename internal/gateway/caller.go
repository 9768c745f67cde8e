package gateway

import (
	"context"

	"github.com/orunio/climate/backend/internal/contracts"
)

// Caller is what adapters need from the gateway
type Caller interface {
	Call(ctx context.Context, req Request) contracts.Outcome
	HasCredentials(provider string) bool
}

var _ Caller = (*Gateway)(nil)

// Malformed converts a successful outcome whose body could not be parsed
func Malformed(o contracts.Outcome, err error) contracts.Outcome {
	return contracts.Failure(contracts.KindServerError, "malformed response: %v", err).WithStatus(o.StatusCode)
}
