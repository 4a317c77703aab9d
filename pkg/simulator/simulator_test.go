package simulator

import (
	"context"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/metrics"
	"go.firedancer.io/stake/pkg/sealevel"
)

const testRentExemptReserve = 2282880

func runTestScenario(t *testing.T, store accounts.Accounts, path string) *Result {
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := NewRunner(store, metrics.NewRecorder()).Run(context.Background(), scenario)
	require.NoError(t, err)
	for _, failure := range result.Failures() {
		t.Errorf("step %d %s: got %s, expected %s", failure.Index, failure.Instruction, failure.Outcome, failure.Expected)
	}
	return result
}

func storedAccount(t *testing.T, store accounts.Accounts, name string) *accounts.Account {
	key := ResolveKey(name)
	acct, err := store.GetAccount((*[32]byte)(&key))
	require.NoError(t, err)
	return acct
}

func TestRunner_Lifecycle(t *testing.T) {
	store := accounts.NewMemAccounts()
	result := runTestScenario(t, store, "testdata/lifecycle.yaml")
	assert.True(t, result.Passed())
	assert.Len(t, result.Steps, 9)

	assert.Equal(t, "Initialize", result.Steps[0].Instruction)
	assert.Equal(t, []solana.PublicKey{ResolveKey("stake1")}, result.Steps[0].Modified)
	assert.Equal(t, uint64(sealevel.CUStakeProgramDefaultComputeUnits), result.Steps[0].ComputeUnits)

	assert.Empty(t, result.Steps[2].Modified)
	assert.Equal(t, sealevel.InstrErrCodeMissingRequiredSignature, result.Steps[2].Code)

	assert.Equal(t, sealevel.InstrErrCodeCustom, result.Steps[5].Code)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, result.Steps[6].ReturnData)

	stake := storedAccount(t, store, "stake1")
	assert.Zero(t, stake.Lamports)
	state, err := sealevel.DecodeStakeState(stake.Data)
	require.NoError(t, err)
	assert.Equal(t, uint32(sealevel.StakeStateV2StatusUninitialized), state.Status)

	assert.Equal(t, uint64(15_002_282_880), storedAccount(t, store, "alice").Lamports)
}

func TestRunner_SplitAndMerge(t *testing.T) {
	store := accounts.NewMemAccounts()
	result := runTestScenario(t, store, "testdata/split_merge.yaml")
	assert.True(t, result.Passed())

	assert.ElementsMatch(t, []solana.PublicKey{ResolveKey("primary"), ResolveKey("secondary")}, result.Steps[0].Modified)

	primary := storedAccount(t, store, "primary")
	assert.Equal(t, uint64(2*testRentExemptReserve+10_000_000_000), primary.Lamports)
	state, err := sealevel.DecodeStakeState(primary.Data)
	require.NoError(t, err)
	assert.Equal(t, ResolveKey("validator"), state.Stake.Stake.Delegation.VoterPubkey)

	assert.Zero(t, storedAccount(t, store, "secondary").Lamports)
}

func TestRunner_StoresAgree(t *testing.T) {
	mem := runTestScenario(t, accounts.NewMemAccounts(), "testdata/split_merge.yaml")

	pebbleDb, err := accounts.OpenPebbleAccountsDb(t.TempDir())
	require.NoError(t, err)
	defer pebbleDb.Close()
	onPebble := runTestScenario(t, pebbleDb, "testdata/split_merge.yaml")

	lotusDb, err := accounts.CreateNewAccountsDb(t.TempDir())
	require.NoError(t, err)
	defer lotusDb.Close()
	onLotus := runTestScenario(t, lotusDb, "testdata/split_merge.yaml")

	assert.NotEqual(t, [32]byte{}, mem.StateHash)
	assert.Equal(t, mem.StateHash, onPebble.StateHash)
	assert.Equal(t, mem.StateHash, onLotus.StateHash)
}

func TestRunner_UnexpectedOutcome(t *testing.T) {
	scenario, err := ParseScenario(strings.NewReader(`
name: mismatch
clock: {epoch: 3}
accounts:
  - name: owner
    lamports: 5000000
  - name: stake
    lamports: 5000000
    stake: {state: initialized, staker: owner, withdrawer: owner}
steps:
  - instruction: deactivate
    stake: stake
    authority: owner
`))
	require.NoError(t, err)

	recorder := metrics.NewRecorder()
	result, err := NewRunner(accounts.NewMemAccounts(), recorder).Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, "InstrErrInvalidAccountData", result.Failures()[0].Outcome)
	assert.Equal(t, "ok", result.Failures()[0].Expected)
}

func TestRunner_Canceled(t *testing.T) {
	scenario, err := LoadScenario("testdata/lifecycle.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(accounts.NewMemAccounts(), nil).Run(ctx, scenario)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "name: x\nbogus: 1\n"},
		{"unknown instruction", "steps:\n  - instruction: redelegate\n"},
		{"unknown feature", "features:\n  - name: NoSuchFeature\n"},
		{"duplicate account", "accounts:\n  - name: a\n  - name: a\n"},
		{"stake and vote", "accounts:\n  - name: a\n    stake: {}\n    vote: {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestResolveKey(t *testing.T) {
	assert.Equal(t, solana.PublicKey(sealevel.StakeProgramAddr), ResolveKey(sealevel.StakeProgramAddrStr))
	assert.Equal(t, ResolveKey("alice"), ResolveKey("alice"))
	assert.NotEqual(t, ResolveKey("alice"), ResolveKey("bob"))
}

func TestStateHash(t *testing.T) {
	assert.Equal(t, [32]byte{}, StateHash(nil))

	var accts []*accounts.Account
	for i := 0; i < 40; i++ {
		key := ResolveKey(strings.Repeat("k", i+1))
		accts = append(accts, &accounts.Account{Key: key, Lamports: uint64(i), Owner: sealevel.StakeProgramAddr})
	}

	reversed := make([]*accounts.Account, len(accts))
	for i := range accts {
		reversed[len(accts)-1-i] = accts[i]
	}
	assert.Equal(t, StateHash(accts), StateHash(reversed))

	before := StateHash(accts)
	accts[7].Lamports++
	assert.NotEqual(t, before, StateHash(accts))
}
