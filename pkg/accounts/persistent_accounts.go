package accounts

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/lotusdblabs/lotusdb/v2"
	"go.firedancer.io/stake/pkg/base58"
)

// PersistentAccountsDb keeps simulator account state across runs in a lotusdb directory.
type PersistentAccountsDb struct {
	db *lotusdb.DB
}

func CreateNewAccountsDb(dirPath string) (*PersistentAccountsDb, error) {
	options := lotusdb.DefaultOptions
	options.DirPath = dirPath

	db, err := lotusdb.Open(options)
	if err != nil {
		return nil, err
	}

	return &PersistentAccountsDb{db: db}, nil
}

func (m *PersistentAccountsDb) GetAccount(pubkey *[32]byte) (*Account, error) {
	acctBytes, err := m.db.Get(pubkey[:])
	if errors.Is(err, lotusdb.ErrKeyNotFound) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}
	if len(acctBytes) == 0 {
		return nil, ErrAccountNotFound
	}

	return decodeStoredAccount(acctBytes)
}

func (m *PersistentAccountsDb) SetAccount(pubkey *[32]byte, acct *Account) error {
	acctBytes, err := encodeStoredAccount(acct)
	if err != nil {
		return err
	}

	err = m.db.Put(pubkey[:], acctBytes)
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}

	return nil
}

func (m *PersistentAccountsDb) Close() error {
	return m.db.Close()
}

func decodeStoredAccount(acctBytes []byte) (*Account, error) {
	decoder := bin.NewBinDecoder(acctBytes)
	acct := new(Account)

	err := acct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize stored account: %w", err)
	}

	return acct, nil
}

func encodeStoredAccount(acct *Account) ([]byte, error) {
	writer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(writer)

	err := acct.MarshalWithEncoder(encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize account for storage: %w", err)
	}

	return writer.Bytes(), nil
}
