package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-risk-engine/internal/domain"
)

// ValidateAddress checks that addr is a syntactically valid Solana public
// key: base58, decoding to exactly 32 bytes. Returns domain.ErrInvalidAddress
// on failure so the orchestrator can fail fast before fan-out.
func ValidateAddress(addr string) error {
	if len(addr) < 32 || len(addr) > 44 {
		return fmt.Errorf("%w: %q has length %d", domain.ErrInvalidAddress, addr, len(addr))
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %q is not base58", domain.ErrInvalidAddress, addr)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: %q decodes to %d bytes", domain.ErrInvalidAddress, addr, len(decoded))
	}
	return nil
}

// IsOnCurve reports whether addr is a valid ed25519 curve point. Program
// Derived Addresses are off-curve, so an off-curve holder is program-owned
// (vault, pool authority) rather than a user wallet.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
