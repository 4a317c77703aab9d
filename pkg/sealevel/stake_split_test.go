package sealevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/features"
)

func splitTestAccounts(t *testing.T, stakeLamports uint64, state *StakeStateV2, splitLamports uint64) []accounts.Account {
	return []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, stakeLamports, state),
		uninitializedStakeAccount(testSplitPk, splitLamports),
		plainAccount(testStakerPk),
	}
}

func TestStakeSplit_ActiveStake(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve), 10)
	before := lamportBalances(execCtx)

	instr, err := NewStakeInstrSplit(testStakePk, testStakerPk, 4_000, testSplitPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assertLamportsConserved(t, execCtx, before)

	source := stakeStateOf(t, execCtx, testStakePk)
	assert.Equal(t, uint64(6_000), source.Stake.Stake.Delegation.StakeLamports)
	assert.Equal(t, uint64(testRentExemptReserve+6_000), accountOf(t, execCtx, testStakePk).Lamports)

	dest := stakeStateOf(t, execCtx, testSplitPk)
	assert.Equal(t, uint32(StakeStateV2StatusStake), dest.Status)
	assert.Equal(t, uint64(4_000), dest.Stake.Stake.Delegation.StakeLamports)
	assert.Equal(t, testVotePk, dest.Stake.Stake.Delegation.VoterPubkey)
	assert.Equal(t, uint64(testRentExemptReserve), dest.Stake.Meta.RentExemptReserve)
	assert.Equal(t, meta.Authorized, dest.Stake.Meta.Authorized)
	assert.Equal(t, uint64(testRentExemptReserve+4_000), accountOf(t, execCtx, testSplitPk).Lamports)
}

func TestStakeSplit_UnfundedDestinationTakesReserveFromSplit(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(splitTestAccounts(t, 2*testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, testRentExemptReserve+10_000, 0), 0), 10)
	before := lamportBalances(execCtx)

	instr, err := NewStakeInstrSplit(testStakePk, testStakerPk, testRentExemptReserve+4_000, testSplitPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assertLamportsConserved(t, execCtx, before)

	assert.Equal(t, uint64(4_000), stakeStateOf(t, execCtx, testSplitPk).Stake.Stake.Delegation.StakeLamports)
	assert.Equal(t, uint64(6_000), stakeStateOf(t, execCtx, testStakePk).Stake.Stake.Delegation.StakeLamports)

	// with the rent exempt destination gate, active stake may not split into an unfunded account
	execCtx = newTestExecCtx(splitTestAccounts(t, 2*testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, testRentExemptReserve+10_000, 0), 0), 10)
	execCtx.Features.EnableFeature(features.RequireRentExemptSplitDestination, 0)
	assertRejected(t, execCtx, instr, InstrErrInsufficientFunds)
}

func TestStakeSplit_WholeStake(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), 0), 10)
	before := lamportBalances(execCtx)

	instr, err := NewStakeInstrSplit(testStakePk, testStakerPk, testRentExemptReserve+10_000, testSplitPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assertLamportsConserved(t, execCtx, before)

	assert.Equal(t, uint32(StakeStateV2StatusUninitialized), stakeStateOf(t, execCtx, testStakePk).Status)
	assert.Zero(t, accountOf(t, execCtx, testStakePk).Lamports)

	dest := stakeStateOf(t, execCtx, testSplitPk)
	assert.Equal(t, uint64(10_000), dest.Stake.Stake.Delegation.StakeLamports)
	assert.Equal(t, uint64(testRentExemptReserve+10_000), accountOf(t, execCtx, testSplitPk).Lamports)
}

func TestStakeSplit_InitializedFullBalance(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(splitTestAccounts(t, testRentExemptReserve+1_000, NewInitializedStakeState(meta), 0), 10)
	before := lamportBalances(execCtx)

	instr, err := NewStakeInstrSplit(testStakePk, testStakerPk, testRentExemptReserve+1_000, testSplitPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assertLamportsConserved(t, execCtx, before)

	assert.Equal(t, uint32(StakeStateV2StatusUninitialized), stakeStateOf(t, execCtx, testStakePk).Status)
	dest := stakeStateOf(t, execCtx, testSplitPk)
	assert.Equal(t, uint32(StakeStateV2StatusInitialized), dest.Status)
	assert.Equal(t, meta, dest.Initialized.Meta)
	assert.Equal(t, uint64(testRentExemptReserve+1_000), accountOf(t, execCtx, testSplitPk).Lamports)
}

func TestStakeSplit_Rejects(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)

	tests := []struct {
		name     string
		lamports uint64
		accts    func() []accounts.Account
		unsigned bool
		err      error
	}{
		{
			name:     "more than the balance",
			lamports: testRentExemptReserve + 10_001,
			accts: func() []accounts.Account {
				return splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
			},
			err: InstrErrInsufficientFunds,
		},
		{
			name:     "zero lamports",
			lamports: 0,
			accts: func() []accounts.Account {
				return splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
			},
			err: InstrErrInsufficientFunds,
		},
		{
			name:     "source left below reserve",
			lamports: 10_500,
			accts: func() []accounts.Account {
				return splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
			},
			err: InstrErrInsufficientFunds,
		},
		{
			name:     "source stake emptied while balance remains",
			lamports: 10_000,
			accts: func() []accounts.Account {
				return splitTestAccounts(t, testRentExemptReserve+10_001, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
			},
			err: StakeErrInsufficientDelegation,
		},
		{
			name:     "missing staker signature",
			lamports: 1_000,
			accts: func() []accounts.Account {
				return splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
			},
			unsigned: true,
			err:      InstrErrMissingRequiredSignature,
		},
		{
			name:     "destination already initialized",
			lamports: 1_000,
			accts: func() []accounts.Account {
				accts := splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
				accts[2] = stakeAccount(t, testSplitPk, testRentExemptReserve, NewInitializedStakeState(meta))
				return accts
			},
			err: InstrErrInvalidAccountData,
		},
		{
			name:     "destination not a stake account",
			lamports: 1_000,
			accts: func() []accounts.Account {
				accts := splitTestAccounts(t, testRentExemptReserve+10_000, activeStakeState(meta, testVotePk, 10_000, 0), testRentExemptReserve)
				accts[2].Owner = VoteProgramAddr
				return accts
			},
			err: InstrErrIncorrectProgramId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accts := tt.accts()
			execCtx := newTestExecCtx(accts, 10)

			instr, err := NewStakeInstrSplit(testStakePk, testStakerPk, tt.lamports, testSplitPk)
			assert.NoError(t, err)
			if tt.unsigned {
				instr.Accounts[2].IsSigner = false
			}

			assertRejected(t, execCtx, instr, tt.err)
			assert.Equal(t, accts[1].Fingerprint(), accountOf(t, execCtx, testStakePk).Fingerprint())
			assert.Equal(t, accts[2].Fingerprint(), accountOf(t, execCtx, testSplitPk).Fingerprint())
		})
	}
}

func TestStake_Split(t *testing.T) {
	stake := Stake{Delegation: NewDelegation(testVotePk, 1000, 0), CreditsObserved: 7}

	splitStake, err := stake.Split(400, 350)
	assert.NoError(t, err)
	assert.Equal(t, uint64(600), stake.Delegation.StakeLamports)
	assert.Equal(t, uint64(350), splitStake.Delegation.StakeLamports)
	assert.Equal(t, uint64(7), splitStake.CreditsObserved)

	_, err = stake.Split(601, 601)
	assert.ErrorIs(t, err, StakeErrInsufficientStake)
}
