package simulator

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/zeebo/blake3"
	"go.firedancer.io/stake/pkg/accounts"
)

const merkleFanout = 16

type accountHash struct {
	Pubkey solana.PublicKey
	Hash   [32]byte
}

// hashAccount covers every field a stake instruction may change.
func hashAccount(acct *accounts.Account) accountHash {
	hasher := blake3.New()

	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], acct.Lamports)
	_, _ = hasher.Write(scratch[:])

	binary.LittleEndian.PutUint64(scratch[:], acct.RentEpoch)
	_, _ = hasher.Write(scratch[:])

	_, _ = hasher.Write(acct.Data)

	if acct.Executable {
		_, _ = hasher.Write([]byte{1})
	} else {
		_, _ = hasher.Write([]byte{0})
	}

	_, _ = hasher.Write(acct.Owner[:])
	_, _ = hasher.Write(acct.Key[:])

	pair := accountHash{Pubkey: acct.Key}
	copy(pair.Hash[:], hasher.Sum(nil))
	return pair
}

func pubkeyLess(a solana.PublicKey, b solana.PublicKey) bool {
	for i := 0; i < 4; i++ {
		a1 := binary.BigEndian.Uint64(a[8*i:])
		b1 := binary.BigEndian.Uint64(b[8*i:])
		if a1 != b1 {
			return a1 < b1
		}
	}
	return false
}

func merkleRoot(hashes [][32]byte) [32]byte {
	if len(hashes) == 0 {
		return [32]byte{}
	}

	for {
		chunks := (len(hashes) + merkleFanout - 1) / merkleFanout
		next := make([][32]byte, chunks)
		for i := range next {
			start := i * merkleFanout
			end := min(start+merkleFanout, len(hashes))

			hasher := sha256.New()
			for _, h := range hashes[start:end] {
				hasher.Write(h[:])
			}
			copy(next[i][:], hasher.Sum(nil))
		}
		if len(next) == 1 {
			return next[0]
		}
		hashes = next
	}
}

// StateHash is the fanout-16 merkle root over the account hashes of accts,
// sorted by pubkey. Input order does not matter.
func StateHash(accts []*accounts.Account) [32]byte {
	pairs := make([]accountHash, len(accts))
	for idx, acct := range accts {
		pairs[idx] = hashAccount(acct)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pubkeyLess(pairs[i].Pubkey, pairs[j].Pubkey)
	})

	hashes := make([][32]byte, len(pairs))
	for idx, pair := range pairs {
		hashes[idx] = pair.Hash
	}
	return merkleRoot(hashes)
}
