// Package biometric abstracts the device biometric prompt.
package biometric

import (
	"context"

	"github.com/proloapp/sparkle/internal/common"
)

// Challenger presents a biometric prompt to the user. Challenge returns
// (true, nil) when the user passed the prompt, (false, nil) when the user
// cancelled or failed it, and an error when the prompt could not be shown.
type Challenger interface {
	Challenge(ctx context.Context, reason string) (bool, error)
}

// Unsupported is the Challenger for platforms without biometric hardware.
type Unsupported struct{}

func (Unsupported) Challenge(_ context.Context, _ string) (bool, error) {
	return false, common.ErrPlatformUnsupported
}

// Func adapts a function to the Challenger interface.
type Func func(ctx context.Context, reason string) (bool, error)

func (f Func) Challenge(ctx context.Context, reason string) (bool, error) {
	return f(ctx, reason)
}
