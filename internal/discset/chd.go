package discset

import (
	"context"
	"errors"

	"rommate/internal/services"
)

// CHDVerifier runs a CHD integrity check. *chdman.Client satisfies it.
type CHDVerifier interface {
	Available() bool
	Verify(ctx context.Context, path string) error
}

// CHDState is the outcome of a CHD check.
type CHDState string

const (
	CHDVerified    CHDState = "verified"
	CHDFailed      CHDState = "failed"
	CHDUnavailable CHDState = "unavailable"
)

// CHDReport summarises a CHD check.
type CHDReport struct {
	State   CHDState
	Message string
	Err     error
}

// CheckCHD verifies path with v. A nil or unavailable verifier is reported,
// not treated as a failure of the image.
func CheckCHD(ctx context.Context, v CHDVerifier, path string) CHDReport {
	if v == nil || !v.Available() {
		return CHDReport{State: CHDUnavailable, Message: "chdman not available"}
	}
	err := v.Verify(ctx, path)
	switch {
	case err == nil:
		return CHDReport{State: CHDVerified, Message: "Verified OK"}
	case errors.Is(err, services.ErrTimeout):
		return CHDReport{State: CHDFailed, Message: "Verification timeout (file too large or corrupted)", Err: err}
	default:
		return CHDReport{State: CHDFailed, Message: "Verification failed - file may be corrupted", Err: err}
	}
}
