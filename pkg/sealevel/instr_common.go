package sealevel

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
)

// createWithSeed derives the address of base, seed and owner, rejecting the seeds and
// owners the runtime refuses.
func createWithSeed(base solana.PublicKey, seed string, owner solana.PublicKey) (solana.PublicKey, error) {
	if len(seed) > solana.MaxSeedLength {
		return solana.PublicKey{}, InstrErrMaxSeedLengthExceeded
	}

	suffix := owner[len(owner)-len(solana.PDA_MARKER):]
	if bytes.Equal(suffix, []byte(solana.PDA_MARKER)) {
		return solana.PublicKey{}, InstrErrIllegalOwner
	}

	derived, err := solana.CreateWithSeed(base, seed, owner)
	if err != nil {
		return solana.PublicKey{}, InstrErrInvalidSeeds
	}
	return derived, nil
}
