package sealevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.firedancer.io/stake/pkg/accounts"
)

var testReferenceVotePk = testPubkey(0x21)

func epochCreditsRange(first uint64, last uint64) []EpochCredits {
	var credits []EpochCredits
	var total uint64
	for epoch := first; epoch <= last; epoch++ {
		credits = append(credits, EpochCredits{Epoch: epoch, Credits: total + 10, PrevCredits: total})
		total += 10
	}
	return credits
}

func delinquentTestAccounts(t *testing.T, state *StakeStateV2, delinquentCredits []EpochCredits, referenceCredits []EpochCredits) []accounts.Account {
	return []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, testRentExemptReserve+5_000, state),
		voteAccount(t, testVotePk, delinquentCredits),
		voteAccount(t, testReferenceVotePk, referenceCredits),
	}
}

func TestStakeDeactivateDelinquent(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(delinquentTestAccounts(t, activeStakeState(meta, testVotePk, 5_000, 0), epochCreditsRange(3, 15), epochCreditsRange(10, 20)), 20)

	instr, err := NewStakeInstrDeactivateDelinquent(testStakePk, testVotePk, testReferenceVotePk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, uint64(20), stakeStateOf(t, execCtx, testStakePk).Stake.Stake.Delegation.DeactivationEpoch)

	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrAlreadyDeactivated)
}

func TestStakeDeactivateDelinquent_NeverVoted(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(delinquentTestAccounts(t, activeStakeState(meta, testVotePk, 5_000, 0), nil, epochCreditsRange(16, 20)), 20)

	instr, err := NewStakeInstrDeactivateDelinquent(testStakePk, testVotePk, testReferenceVotePk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
}

func TestStakeDeactivateDelinquent_Rejects(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	gap := append(epochCreditsRange(10, 17), epochCreditsRange(19, 20)...)

	tests := []struct {
		name       string
		state      *StakeStateV2
		delinquent []EpochCredits
		reference  []EpochCredits
		err        error
	}{
		{"delinquent voted recently", activeStakeState(meta, testVotePk, 5_000, 0), epochCreditsRange(3, 16), epochCreditsRange(10, 20), StakeErrMinimumDelinquentEpochsForDeactivationNotMet},
		{"reference missed an epoch", activeStakeState(meta, testVotePk, 5_000, 0), epochCreditsRange(3, 10), gap, StakeErrInsufficientReferenceVotes},
		{"reference behind", activeStakeState(meta, testVotePk, 5_000, 0), epochCreditsRange(3, 10), epochCreditsRange(10, 19), StakeErrInsufficientReferenceVotes},
		{"reference too short", activeStakeState(meta, testVotePk, 5_000, 0), epochCreditsRange(3, 10), epochCreditsRange(17, 20), StakeErrInsufficientReferenceVotes},
		{"stake delegated elsewhere", activeStakeState(meta, testReferenceVotePk, 5_000, 0), epochCreditsRange(3, 10), epochCreditsRange(10, 20), StakeErrVoteAddressMismatch},
		{"stake not delegated", NewInitializedStakeState(meta), epochCreditsRange(3, 10), epochCreditsRange(10, 20), InstrErrInvalidAccountData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accts := delinquentTestAccounts(t, tt.state, tt.delinquent, tt.reference)
			execCtx := newTestExecCtx(accts, 20)

			instr, err := NewStakeInstrDeactivateDelinquent(testStakePk, testVotePk, testReferenceVotePk)
			assert.NoError(t, err)
			assert.ErrorIs(t, processStakeInstruction(execCtx, instr), tt.err)
			assert.Equal(t, accts[1].Fingerprint(), accountOf(t, execCtx, testStakePk).Fingerprint())
		})
	}
}

func TestStakeDeactivateDelinquent_VoteAccountOwner(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	accts := delinquentTestAccounts(t, activeStakeState(meta, testVotePk, 5_000, 0), nil, epochCreditsRange(16, 20))
	accts[3].Owner = StakeProgramAddr
	execCtx := newTestExecCtx(accts, 20)

	instr, err := NewStakeInstrDeactivateDelinquent(testStakePk, testVotePk, testReferenceVotePk)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrIncorrectProgramId)

	instr.Accounts = instr.Accounts[:2]
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrNotEnoughAccountKeys)
}

func TestEligibleForDeactivateDelinquent(t *testing.T) {
	assert.True(t, eligibleForDeactivateDelinquent(nil, 0))
	assert.False(t, eligibleForDeactivateDelinquent(epochCreditsRange(0, 0), 4))
	assert.True(t, eligibleForDeactivateDelinquent(epochCreditsRange(0, 0), 5))
	assert.False(t, eligibleForDeactivateDelinquent(epochCreditsRange(0, 6), 10))
	assert.True(t, eligibleForDeactivateDelinquent(epochCreditsRange(0, 5), 10))
}

func TestAcceptableReferenceEpochCredits(t *testing.T) {
	assert.True(t, acceptableReferenceEpochCredits(epochCreditsRange(0, 4), 4))
	assert.False(t, acceptableReferenceEpochCredits(epochCreditsRange(0, 3), 3))
	assert.False(t, acceptableReferenceEpochCredits(epochCreditsRange(0, 4), 5))
	assert.True(t, acceptableReferenceEpochCredits(epochCreditsRange(1, 100), 100))
}
