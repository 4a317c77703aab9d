package accounts

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T) *Account {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &Account{Key: privKey.PublicKey(), Lamports: 2282880, Data: []byte{2, 0, 0, 0, 9, 9}, Owner: [32]byte{6, 1}, RentEpoch: 18446744073709551615}
}

func TestAccount_EncodeDecode(t *testing.T) {
	acct := newTestAccount(t)

	buf := new(bytes.Buffer)
	assert.NoError(t, acct.MarshalWithEncoder(bin.NewBinEncoder(buf)))

	var decoded Account
	assert.NoError(t, decoded.UnmarshalWithDecoder(bin.NewBinDecoder(buf.Bytes())))
	assert.Equal(t, *acct, decoded)
}

func TestAccount_DecodeTruncated(t *testing.T) {
	acct := newTestAccount(t)
	buf := new(bytes.Buffer)
	assert.NoError(t, acct.MarshalWithEncoder(bin.NewBinEncoder(buf)))

	var decoded Account
	assert.Error(t, decoded.UnmarshalWithDecoder(bin.NewBinDecoder(buf.Bytes()[:50])))
}

func TestAccount_CloneAndFingerprint(t *testing.T) {
	acct := newTestAccount(t)
	clone := acct.Clone()
	assert.Equal(t, acct.Fingerprint(), clone.Fingerprint())

	clone.Data[0] = 1
	assert.Equal(t, byte(2), acct.Data[0])
	assert.NotEqual(t, acct.Fingerprint(), clone.Fingerprint())

	clone = acct.Clone()
	clone.Lamports++
	assert.NotEqual(t, acct.Fingerprint(), clone.Fingerprint())
}

func TestMemAccounts_GetSet(t *testing.T) {
	accts := NewMemAccounts()
	acct := newTestAccount(t)

	key := [32]byte(acct.Key)
	_, err := accts.GetAccount(&key)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.NoError(t, accts.SetAccount(&key, acct))
	got, err := accts.GetAccount(&key)
	assert.NoError(t, err)
	assert.Equal(t, acct, got)
}

func TestPebbleAccountsDb_GetSet(t *testing.T) {
	db, err := OpenPebbleAccountsDb(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	acct := newTestAccount(t)
	key := [32]byte(acct.Key)

	_, err = db.GetAccount(&key)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.NoError(t, db.SetAccount(&key, acct))
	got, err := db.GetAccount(&key)
	assert.NoError(t, err)
	assert.Equal(t, *acct, *got)
}

func TestPersistentAccountsDb_GetSet(t *testing.T) {
	db, err := CreateNewAccountsDb(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	acct := newTestAccount(t)
	key := [32]byte(acct.Key)

	_, err = db.GetAccount(&key)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.NoError(t, db.SetAccount(&key, acct))
	got, err := db.GetAccount(&key)
	assert.NoError(t, err)
	assert.Equal(t, *acct, *got)
}
