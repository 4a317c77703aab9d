package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/cu"
	"go.firedancer.io/stake/pkg/features"
	"go.firedancer.io/stake/pkg/safemath"
)

const testRentExemptReserve = 2282880

func testPubkey(b byte) solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = b
	pk[31] = 0xff
	return pk
}

func stakeProgramAccount() accounts.Account {
	return accounts.Account{Key: StakeProgramAddr, Owner: NativeLoaderAddr, Executable: true}
}

func sysvarAccount(addr [32]byte) accounts.Account {
	return accounts.Account{Key: addr, Owner: [32]byte{}}
}

func stakeAccountData(t *testing.T, state *StakeStateV2) []byte {
	data, err := state.MarshalAccountData()
	assert.NoError(t, err)
	return data
}

func stakeAccount(t *testing.T, key solana.PublicKey, lamports uint64, state *StakeStateV2) accounts.Account {
	return accounts.Account{Key: key, Lamports: lamports, Data: stakeAccountData(t, state), Owner: StakeProgramAddr}
}

func voteAccount(t *testing.T, key solana.PublicKey, epochCredits []EpochCredits) accounts.Account {
	voteState := NewVoteStateCurrent(testPubkey(0xf0), testPubkey(0xf1), epochCredits)
	data, err := MarshalVoteAccountData(voteState)
	assert.NoError(t, err)
	return accounts.Account{Key: key, Lamports: 1000000000, Data: data, Owner: VoteProgramAddr}
}

func testMeta(staker solana.PublicKey, withdrawer solana.PublicKey) Meta {
	return Meta{RentExemptReserve: testRentExemptReserve, Authorized: Authorized{Staker: staker, Withdrawer: withdrawer}}
}

func activeStakeState(meta Meta, voter solana.PublicKey, stakeLamports uint64, activationEpoch uint64) *StakeStateV2 {
	stake := Stake{Delegation: NewDelegation(voter, stakeLamports, activationEpoch), CreditsObserved: 0}
	return NewStakeStakeState(meta, stake, StakeFlags{Bits: StakeFlagsEmpty})
}

// newTestExecCtx returns an execution context over accts with clock at epoch, default
// rent, and an empty stake history. The stake program is expected at index 0.
func newTestExecCtx(accts []accounts.Account, epoch uint64) *ExecutionCtx {
	cloned := make([]accounts.Account, len(accts))
	for idx := range accts {
		cloned[idx] = *accts[idx].Clone()
	}

	transactionAccts := NewTransactionAccounts(cloned)
	txCtx := NewTestTransactionCtx(*transactionAccts, 5, 64)

	execCtx := &ExecutionCtx{TransactionContext: txCtx, ComputeMeter: cu.NewComputeMeterDefault(), Features: features.NewFeaturesDefault()}
	execCtx.SysvarCache.SetClock(SysvarClock{Slot: epoch * 432000, Epoch: epoch, LeaderScheduleEpoch: epoch + 1})
	execCtx.SysvarCache.SetRent(DefaultRent())
	execCtx.SysvarCache.SetStakeHistory(SysvarStakeHistory{})
	execCtx.SysvarCache.SetEpochSchedule(DefaultEpochSchedule())
	return execCtx
}

func processStakeInstruction(execCtx *ExecutionCtx, instr Instruction) error {
	txCtx := execCtx.TransactionContext
	instructionAccts := InstructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)
	return execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
}

func stakeStateOf(t *testing.T, execCtx *ExecutionCtx, key solana.PublicKey) *StakeStateV2 {
	acct := accountOf(t, execCtx, key)
	state, err := DecodeStakeState(acct.Data)
	assert.NoError(t, err)
	return state
}

func accountOf(t *testing.T, execCtx *ExecutionCtx, key solana.PublicKey) *accounts.Account {
	txCtx := execCtx.TransactionContext
	idx, err := txCtx.IndexOfAccount(key)
	assert.NoError(t, err)
	acct, err := txCtx.Accounts.GetAccount(idx)
	assert.NoError(t, err)
	return acct
}

func lamportBalances(execCtx *ExecutionCtx) []uint64 {
	txAccts := execCtx.TransactionContext.Accounts
	balances := make([]uint64, 0, txAccts.Len())
	for _, acct := range txAccts.Accounts {
		balances = append(balances, acct.Lamports)
	}
	return balances
}

// assertLamportsConserved checks that the transaction's lamport total matches before.
func assertLamportsConserved(t *testing.T, execCtx *ExecutionCtx, before []uint64) {
	t.Helper()

	var want, got uint64
	var err error
	for _, lamports := range before {
		want, err = safemath.CheckedAddU64(want, lamports)
		assert.NoError(t, err)
	}
	for _, lamports := range lamportBalances(execCtx) {
		got, err = safemath.CheckedAddU64(got, lamports)
		assert.NoError(t, err)
	}
	assert.Equal(t, want, got, "lamports created or destroyed")
}

// assertRejected processes instr expecting want, and checks that no balance moved.
func assertRejected(t *testing.T, execCtx *ExecutionCtx, instr Instruction, want error) {
	t.Helper()

	balances := lamportBalances(execCtx)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), want)
	assert.Equal(t, balances, lamportBalances(execCtx))
}
