package accounts

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.firedancer.io/stake/pkg/base58"
)

// PebbleAccountsDb is the pebble-backed alternative to PersistentAccountsDb.
type PebbleAccountsDb struct {
	db *pebble.DB
}

func OpenPebbleAccountsDb(dirPath string) (*PebbleAccountsDb, error) {
	db, err := pebble.Open(dirPath, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleAccountsDb{db: db}, nil
}

func (p *PebbleAccountsDb) GetAccount(pubkey *[32]byte) (*Account, error) {
	value, closer, err := p.db.Get(pubkey[:])
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}
	acctBytes := append([]byte(nil), value...)
	_ = closer.Close()

	return decodeStoredAccount(acctBytes)
}

func (p *PebbleAccountsDb) SetAccount(pubkey *[32]byte, acct *Account) error {
	acctBytes, err := encodeStoredAccount(acct)
	if err != nil {
		return err
	}

	err = p.db.Set(pubkey[:], acctBytes, pebble.Sync)
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}
	return nil
}

func (p *PebbleAccountsDb) Close() error {
	return p.db.Close()
}
