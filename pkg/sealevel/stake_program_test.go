package sealevel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/cu"
	"go.firedancer.io/stake/pkg/features"
)

var (
	testStakePk      = testPubkey(1)
	testStakerPk     = testPubkey(2)
	testWithdrawerPk = testPubkey(3)
	testVotePk       = testPubkey(4)
	testSplitPk      = testPubkey(5)
	testRecipientPk  = testPubkey(6)
	testCustodianPk  = testPubkey(7)
	testNewAuthPk    = testPubkey(8)
)

func plainAccount(key solana.PublicKey) accounts.Account {
	return accounts.Account{Key: key}
}

func stakeConfigAccount(t *testing.T) accounts.Account {
	config := DefaultStakeConfig()
	data, err := config.Marshal()
	assert.NoError(t, err)
	return accounts.Account{Key: StakeProgramConfigAddr, Data: data}
}

func uninitializedStakeAccount(key solana.PublicKey, lamports uint64) accounts.Account {
	return accounts.Account{Key: key, Lamports: lamports, Data: make([]byte, StakeStateV2Size), Owner: StakeProgramAddr}
}

func TestStakeProgram_InitializeRentBoundary(t *testing.T) {
	authorized := Authorized{Staker: testStakerPk, Withdrawer: testWithdrawerPk}

	tests := []struct {
		lamports uint64
		err      error
	}{
		{testRentExemptReserve, nil},
		{testRentExemptReserve - 1, InstrErrInsufficientFunds},
	}

	for _, tt := range tests {
		accts := []accounts.Account{stakeProgramAccount(), uninitializedStakeAccount(testStakePk, tt.lamports), sysvarAccount(SysvarRentAddr)}
		execCtx := newTestExecCtx(accts, 10)

		instr, err := NewStakeInstrInitialize(testStakePk, authorized, StakeLockup{Epoch: 3})
		assert.NoError(t, err)

		err = processStakeInstruction(execCtx, instr)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, uint32(StakeStateV2StatusUninitialized), stakeStateOf(t, execCtx, testStakePk).Status)
			continue
		}

		assert.NoError(t, err)
		state := stakeStateOf(t, execCtx, testStakePk)
		assert.Equal(t, uint32(StakeStateV2StatusInitialized), state.Status)
		assert.Equal(t, uint64(testRentExemptReserve), state.Initialized.Meta.RentExemptReserve)
		assert.Equal(t, authorized, state.Initialized.Meta.Authorized)
		assert.Equal(t, uint64(3), state.Initialized.Meta.Lockup.Epoch)
	}
}

func TestStakeProgram_InitializeRejects(t *testing.T) {
	authorized := Authorized{Staker: testStakerPk, Withdrawer: testWithdrawerPk}

	// wrong data length
	shortAcct := uninitializedStakeAccount(testStakePk, 1e9)
	shortAcct.Data = make([]byte, StakeStateV2Size-1)
	execCtx := newTestExecCtx([]accounts.Account{stakeProgramAccount(), shortAcct, sysvarAccount(SysvarRentAddr)}, 10)
	instr, err := NewStakeInstrInitialize(testStakePk, authorized, StakeLockup{})
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidAccountData)

	// already initialized
	initialized := stakeAccount(t, testStakePk, 1e9, NewInitializedStakeState(testMeta(testStakerPk, testWithdrawerPk)))
	execCtx = newTestExecCtx([]accounts.Account{stakeProgramAccount(), initialized, sysvarAccount(SysvarRentAddr)}, 10)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidAccountData)

	// clock passed where rent is expected
	execCtx = newTestExecCtx([]accounts.Account{stakeProgramAccount(), uninitializedStakeAccount(testStakePk, 1e9), sysvarAccount(SysvarClockAddr)}, 10)
	instr.Accounts[1].Pubkey = SysvarClockAddr
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidArgument)

	// account not owned by the stake program
	foreign := uninitializedStakeAccount(testStakePk, 1e9)
	foreign.Owner = VoteProgramAddr
	execCtx = newTestExecCtx([]accounts.Account{stakeProgramAccount(), foreign, sysvarAccount(SysvarRentAddr)}, 10)
	instr, err = NewStakeInstrInitialize(testStakePk, authorized, StakeLockup{})
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidAccountOwner)
}

func TestStakeProgram_InitializeChecked(t *testing.T) {
	authorized := Authorized{Staker: testStakerPk, Withdrawer: testWithdrawerPk}
	accts := []accounts.Account{
		stakeProgramAccount(),
		uninitializedStakeAccount(testStakePk, 1e9),
		sysvarAccount(SysvarRentAddr),
		plainAccount(testStakerPk),
		plainAccount(testWithdrawerPk),
	}

	execCtx := newTestExecCtx(accts, 10)
	instr, err := NewStakeInstrInitializeChecked(testStakePk, authorized)
	assert.NoError(t, err)
	instr.Accounts[3].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	execCtx = newTestExecCtx(accts, 10)
	instr, err = NewStakeInstrInitializeChecked(testStakePk, authorized)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))

	state := stakeStateOf(t, execCtx, testStakePk)
	assert.Equal(t, uint32(StakeStateV2StatusInitialized), state.Status)
	assert.Equal(t, authorized, state.Initialized.Meta.Authorized)
	assert.Equal(t, StakeLockup{}, state.Initialized.Meta.Lockup)
}

func delegateTestAccounts(t *testing.T, stakeLamports uint64, state *StakeStateV2) []accounts.Account {
	return []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, stakeLamports, state),
		voteAccount(t, testVotePk, []EpochCredits{{Epoch: 9, Credits: 100, PrevCredits: 40}}),
		sysvarAccount(SysvarClockAddr),
		sysvarAccount(SysvarStakeHistoryAddr),
		stakeConfigAccount(t),
		plainAccount(testStakerPk),
	}
}

func TestStakeProgram_DelegateInitialized(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(delegateTestAccounts(t, testRentExemptReserve+5000, NewInitializedStakeState(meta)), 10)

	instr, err := NewStakeInstrDelegateStake(testStakePk, testStakerPk, testVotePk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))

	state := stakeStateOf(t, execCtx, testStakePk)
	assert.Equal(t, uint32(StakeStateV2StatusStake), state.Status)
	assert.Equal(t, meta, state.Stake.Meta)
	assert.Equal(t, testVotePk, state.Stake.Stake.Delegation.VoterPubkey)
	assert.Equal(t, uint64(5000), state.Stake.Stake.Delegation.StakeLamports)
	assert.Equal(t, uint64(10), state.Stake.Stake.Delegation.ActivationEpoch)
	assert.Equal(t, uint64(math.MaxUint64), state.Stake.Stake.Delegation.DeactivationEpoch)
	assert.Equal(t, uint64(100), state.Stake.Stake.CreditsObserved)
	assert.Equal(t, byte(StakeFlagsEmpty), state.Stake.StakeFlags.Bits)
}

func TestStakeProgram_DelegateMinimumBoundary(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)

	tests := []struct {
		name     string
		raiseMin bool
		lamports uint64
		err      error
	}{
		{"nothing above reserve", false, testRentExemptReserve, StakeErrInsufficientDelegation},
		{"one lamport above reserve", false, testRentExemptReserve + 1, nil},
		{"one sol minus one", true, testRentExemptReserve + MinimumDelegationLamports1Sol - 1, StakeErrInsufficientDelegation},
		{"one sol", true, testRentExemptReserve + MinimumDelegationLamports1Sol, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx := newTestExecCtx(delegateTestAccounts(t, tt.lamports, NewInitializedStakeState(meta)), 10)
			if tt.raiseMin {
				execCtx.Features.EnableFeature(features.StakeRaiseMinimumDelegationTo1Sol, 0)
			}

			instr, err := NewStakeInstrDelegateStake(testStakePk, testStakerPk, testVotePk)
			assert.NoError(t, err)

			err = processStakeInstruction(execCtx, instr)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStakeProgram_DelegateRejects(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)

	// staker did not sign
	execCtx := newTestExecCtx(delegateTestAccounts(t, 1e9, NewInitializedStakeState(meta)), 10)
	instr, err := NewStakeInstrDelegateStake(testStakePk, testStakerPk, testVotePk)
	assert.NoError(t, err)
	instr.Accounts[5].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	// vote account owned by someone else
	accts := delegateTestAccounts(t, 1e9, NewInitializedStakeState(meta))
	accts[2].Owner = StakeProgramAddr
	execCtx = newTestExecCtx(accts, 10)
	instr, err = NewStakeInstrDelegateStake(testStakePk, testStakerPk, testVotePk)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrIncorrectProgramId)

	// malformed stake config while the config account is still consulted
	accts = delegateTestAccounts(t, 1e9, NewInitializedStakeState(meta))
	accts[5].Data = nil
	execCtx = newTestExecCtx(accts, 10)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidArgument)

	// the same accounts pass once the config account is ignored
	execCtx = newTestExecCtx(accts, 10)
	execCtx.Features.EnableFeature(features.ReduceStakeWarmupCooldown, 0)
	assert.NoError(t, processStakeInstruction(execCtx, instr))

	// uninitialized stake
	execCtx = newTestExecCtx(delegateTestAccounts(t, 1e9, NewUninitializedStakeState()), 10)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidAccountData)
}

func TestStakeProgram_Redelegate(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	otherVoter := testPubkey(0x40)

	// active stake cannot move to another voter
	execCtx := newTestExecCtx(delegateTestAccounts(t, testRentExemptReserve+5000, activeStakeState(meta, otherVoter, 5000, 0)), 10)
	instr, err := NewStakeInstrDelegateStake(testStakePk, testStakerPk, testVotePk)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrTooSoonToRedelegate)

	// deactivation in the current epoch is rescinded by delegating to the same voter
	deactivating := activeStakeState(meta, testVotePk, 5000, 0)
	deactivating.Stake.Stake.Delegation.DeactivationEpoch = 10
	execCtx = newTestExecCtx(delegateTestAccounts(t, testRentExemptReserve+5000, deactivating), 10)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	state := stakeStateOf(t, execCtx, testStakePk)
	assert.Equal(t, uint64(math.MaxUint64), state.Stake.Stake.Delegation.DeactivationEpoch)
	assert.Equal(t, uint64(0), state.Stake.Stake.Delegation.ActivationEpoch)

	// fully deactivated stake is delegated afresh
	inactive := activeStakeState(meta, otherVoter, 5000, 0)
	inactive.Stake.Stake.Delegation.DeactivationEpoch = 5
	inactive.Stake.StakeFlags.Bits = StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted
	execCtx = newTestExecCtx(delegateTestAccounts(t, testRentExemptReserve+7000, inactive), 10)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	state = stakeStateOf(t, execCtx, testStakePk)
	assert.Equal(t, testVotePk, state.Stake.Stake.Delegation.VoterPubkey)
	assert.Equal(t, uint64(7000), state.Stake.Stake.Delegation.StakeLamports)
	assert.Equal(t, uint64(10), state.Stake.Stake.Delegation.ActivationEpoch)
	assert.Equal(t, uint64(math.MaxUint64), state.Stake.Stake.Delegation.DeactivationEpoch)
	assert.Equal(t, uint64(100), state.Stake.Stake.CreditsObserved)
	assert.Equal(t, byte(StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted), state.Stake.StakeFlags.Bits)
}

func authorizeTestAccounts(t *testing.T, meta Meta) []accounts.Account {
	return []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, 1e9, NewInitializedStakeState(meta)),
		sysvarAccount(SysvarClockAddr),
		plainAccount(testStakerPk),
		plainAccount(testWithdrawerPk),
		plainAccount(testNewAuthPk),
		plainAccount(testCustodianPk),
	}
}

func TestStakeProgram_Authorize(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)

	tests := []struct {
		name      string
		authority solana.PublicKey
		kind      uint32
		err       error
	}{
		{"staker sets staker", testStakerPk, StakeAuthorizeStaker, nil},
		{"withdrawer sets staker", testWithdrawerPk, StakeAuthorizeStaker, nil},
		{"withdrawer sets withdrawer", testWithdrawerPk, StakeAuthorizeWithdrawer, nil},
		{"staker sets withdrawer", testStakerPk, StakeAuthorizeWithdrawer, InstrErrMissingRequiredSignature},
		{"stranger sets staker", testCustodianPk, StakeAuthorizeStaker, InstrErrMissingRequiredSignature},
		{"stranger sets withdrawer", testCustodianPk, StakeAuthorizeWithdrawer, InstrErrMissingRequiredSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx := newTestExecCtx(authorizeTestAccounts(t, meta), 10)
			instr, err := NewStakeInstrAuthorize(testStakePk, tt.authority, testNewAuthPk, tt.kind, nil)
			assert.NoError(t, err)

			err = processStakeInstruction(execCtx, instr)
			state := stakeStateOf(t, execCtx, testStakePk)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, meta.Authorized, state.Initialized.Meta.Authorized)
				return
			}

			assert.NoError(t, err)
			if tt.kind == StakeAuthorizeStaker {
				assert.Equal(t, testNewAuthPk, state.Initialized.Meta.Authorized.Staker)
				assert.Equal(t, testWithdrawerPk, state.Initialized.Meta.Authorized.Withdrawer)
			} else {
				assert.Equal(t, testStakerPk, state.Initialized.Meta.Authorized.Staker)
				assert.Equal(t, testNewAuthPk, state.Initialized.Meta.Authorized.Withdrawer)
			}
		})
	}
}

func TestStakeProgram_AuthorizeWithdrawerUnderLockup(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	meta.Lockup = StakeLockup{Epoch: 20, Custodian: testCustodianPk}

	execCtx := newTestExecCtx(authorizeTestAccounts(t, meta), 10)
	instr, err := NewStakeInstrAuthorize(testStakePk, testWithdrawerPk, testNewAuthPk, StakeAuthorizeWithdrawer, nil)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrCustodianMissing)

	instr, err = NewStakeInstrAuthorize(testStakePk, testWithdrawerPk, testNewAuthPk, StakeAuthorizeWithdrawer, &testCustodianPk)
	assert.NoError(t, err)
	instr.Accounts[3].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrCustodianSignatureMissing)

	wrongCustodian := testStakerPk
	instr, err = NewStakeInstrAuthorize(testStakePk, testWithdrawerPk, testNewAuthPk, StakeAuthorizeWithdrawer, &wrongCustodian)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrLockupInForce)

	instr, err = NewStakeInstrAuthorize(testStakePk, testWithdrawerPk, testNewAuthPk, StakeAuthorizeWithdrawer, &testCustodianPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, testNewAuthPk, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Authorized.Withdrawer)

	// the staker is not subject to the lockup
	instr, err = NewStakeInstrAuthorize(testStakePk, testStakerPk, testNewAuthPk, StakeAuthorizeStaker, nil)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
}

func TestStakeProgram_AuthorizeChecked(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)

	execCtx := newTestExecCtx(authorizeTestAccounts(t, meta), 10)
	instr, err := NewStakeInstrAuthorizeChecked(testStakePk, testWithdrawerPk, testNewAuthPk, StakeAuthorizeWithdrawer, nil)
	assert.NoError(t, err)
	instr.Accounts[3].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr, err = NewStakeInstrAuthorizeChecked(testStakePk, testWithdrawerPk, testNewAuthPk, StakeAuthorizeWithdrawer, nil)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, testNewAuthPk, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Authorized.Withdrawer)
}

func TestStakeProgram_AuthorizeWithSeed(t *testing.T) {
	base := testPubkey(0x20)
	owner := testPubkey(0x21)
	seed := "stake authority"

	derived, err := createWithSeed(base, seed, owner)
	assert.NoError(t, err)

	meta := testMeta(derived, testWithdrawerPk)
	accts := []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, 1e9, NewInitializedStakeState(meta)),
		plainAccount(base),
		sysvarAccount(SysvarClockAddr),
		plainAccount(testNewAuthPk),
	}

	execCtx := newTestExecCtx(accts, 10)
	instr, err := NewStakeInstrAuthorizeWithSeed(testStakePk, base, seed, owner, testNewAuthPk, StakeAuthorizeStaker, nil)
	assert.NoError(t, err)
	instr.Accounts[1].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr, err = NewStakeInstrAuthorizeWithSeed(testStakePk, base, "another seed", owner, testNewAuthPk, StakeAuthorizeStaker, nil)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr, err = NewStakeInstrAuthorizeWithSeed(testStakePk, base, seed, owner, testNewAuthPk, StakeAuthorizeStaker, nil)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, testNewAuthPk, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Authorized.Staker)

	// checked variant requires the new authority to sign
	meta = testMeta(testStakerPk, derived)
	accts[1] = stakeAccount(t, testStakePk, 1e9, NewInitializedStakeState(meta))
	execCtx = newTestExecCtx(accts, 10)
	instr, err = NewStakeInstrAuthorizeCheckedWithSeed(testStakePk, base, seed, owner, testNewAuthPk, StakeAuthorizeWithdrawer, nil)
	assert.NoError(t, err)
	instr.Accounts[3].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr.Accounts[3].IsSigner = true
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, testNewAuthPk, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Authorized.Withdrawer)
}

func deactivateTestAccounts(t *testing.T, state *StakeStateV2) []accounts.Account {
	return []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, testRentExemptReserve+5000, state),
		sysvarAccount(SysvarClockAddr),
		plainAccount(testStakerPk),
	}
}

func TestStakeProgram_Deactivate(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)

	execCtx := newTestExecCtx(deactivateTestAccounts(t, activeStakeState(meta, testVotePk, 5000, 0)), 10)
	instr, err := NewStakeInstrDeactivate(testStakePk, testStakerPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, uint64(10), stakeStateOf(t, execCtx, testStakePk).Stake.Stake.Delegation.DeactivationEpoch)

	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrAlreadyDeactivated)

	execCtx = newTestExecCtx(deactivateTestAccounts(t, NewInitializedStakeState(meta)), 10)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidAccountData)

	execCtx = newTestExecCtx(deactivateTestAccounts(t, activeStakeState(meta, testVotePk, 5000, 0)), 10)
	instr.Accounts[2].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)
}

func TestStakeProgram_DeactivateRedelegatedStake(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	instr, err := NewStakeInstrDeactivate(testStakePk, testStakerPk)
	assert.NoError(t, err)

	activating := activeStakeState(meta, testVotePk, 5000, 10)
	activating.Stake.StakeFlags.Bits = StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted

	execCtx := newTestExecCtx(deactivateTestAccounts(t, activating), 10)
	execCtx.Features.EnableFeature(features.StakeRedelegateInstruction, 0)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrRedelegatedStakeMustFullyActivateBeforeDeactivationIsPermitted)

	// the warmup check needs stake history
	execCtx = newTestExecCtx(deactivateTestAccounts(t, activating), 10)
	execCtx.Features.EnableFeature(features.StakeRedelegateInstruction, 0)
	execCtx.SysvarCache.stakeHistory = nil
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrUnsupportedSysvar)
	assert.Equal(t, activating, stakeStateOf(t, execCtx, testStakePk))

	// without the gate the flag is ignored
	execCtx = newTestExecCtx(deactivateTestAccounts(t, activating), 10)
	assert.NoError(t, processStakeInstruction(execCtx, instr))

	active := activeStakeState(meta, testVotePk, 5000, 0)
	active.Stake.StakeFlags.Bits = StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted
	execCtx = newTestExecCtx(deactivateTestAccounts(t, active), 10)
	execCtx.Features.EnableFeature(features.StakeRedelegateInstruction, 0)
	assert.NoError(t, processStakeInstruction(execCtx, instr))

	state := stakeStateOf(t, execCtx, testStakePk)
	assert.Equal(t, uint64(10), state.Stake.Stake.Delegation.DeactivationEpoch)
	assert.Equal(t, byte(StakeFlagsEmpty), state.Stake.StakeFlags.Bits)
}

func TestStakeProgram_SetLockup(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	accts := []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, 1e9, NewInitializedStakeState(meta)),
		plainAccount(testWithdrawerPk),
		plainAccount(testCustodianPk),
		plainAccount(testStakerPk),
	}
	execCtx := newTestExecCtx(accts, 10)

	epoch := uint64(30)
	instr, err := NewStakeInstrSetLockup(testStakePk, StakeLockupArgs{Epoch: &epoch, Custodian: &testCustodianPk}, testStakerPk)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr, err = NewStakeInstrSetLockup(testStakePk, StakeLockupArgs{Epoch: &epoch, Custodian: &testCustodianPk}, testWithdrawerPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, StakeLockup{Epoch: 30, Custodian: testCustodianPk}, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Lockup)

	// the lockup is now in force, so only the custodian may change it
	ts := int64(1234)
	instr, err = NewStakeInstrSetLockup(testStakePk, StakeLockupArgs{UnixTimestamp: &ts}, testWithdrawerPk)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr, err = NewStakeInstrSetLockup(testStakePk, StakeLockupArgs{UnixTimestamp: &ts}, testCustodianPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, StakeLockup{UnixTimestamp: 1234, Epoch: 30, Custodian: testCustodianPk}, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Lockup)
}

func TestStakeProgram_SetLockupChecked(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	accts := []accounts.Account{
		stakeProgramAccount(),
		stakeAccount(t, testStakePk, 1e9, NewInitializedStakeState(meta)),
		plainAccount(testWithdrawerPk),
		plainAccount(testCustodianPk),
	}
	execCtx := newTestExecCtx(accts, 10)

	instr, err := NewStakeInstrSetLockupChecked(testStakePk, StakeLockupArgs{Custodian: &testCustodianPk}, testWithdrawerPk)
	assert.NoError(t, err)
	instr.Accounts[2].IsSigner = false
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrMissingRequiredSignature)

	instr.Accounts[2].IsSigner = true
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	assert.Equal(t, testCustodianPk, stakeStateOf(t, execCtx, testStakePk).Initialized.Meta.Lockup.Custodian)
}

func TestStakeProgram_GetMinimumDelegation(t *testing.T) {
	execCtx := newTestExecCtx([]accounts.Account{stakeProgramAccount()}, 10)
	instr, err := NewStakeInstrGetMinimumDelegation()
	assert.NoError(t, err)

	assert.NoError(t, processStakeInstruction(execCtx, instr))
	programId, data := execCtx.TransactionContext.ReturnData()
	assert.Equal(t, solana.PublicKey(StakeProgramAddr), programId)
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(data))

	execCtx.Features.EnableFeature(features.StakeRaiseMinimumDelegationTo1Sol, 0)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
	_, data = execCtx.TransactionContext.ReturnData()
	assert.Equal(t, uint64(MinimumDelegationLamports1Sol), binary.LittleEndian.Uint64(data))
}

func TestStakeProgram_EpochRewardsActive(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(deactivateTestAccounts(t, activeStakeState(meta, testVotePk, 5000, 0)), 10)
	execCtx.SysvarCache.SetEpochRewards(SysvarEpochRewards{Active: true})

	instr, err := NewStakeInstrDeactivate(testStakePk, testStakerPk)
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), StakeErrEpochRewardsActive)

	instr, err = NewStakeInstrGetMinimumDelegation()
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))

	execCtx.SysvarCache.SetEpochRewards(SysvarEpochRewards{Active: false})
	instr, err = NewStakeInstrDeactivate(testStakePk, testStakerPk)
	assert.NoError(t, err)
	assert.NoError(t, processStakeInstruction(execCtx, instr))
}

func TestStakeProgram_RedelegateIsRejected(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(deactivateTestAccounts(t, activeStakeState(meta, testVotePk, 5000, 0)), 10)

	instr := Instruction{ProgramId: StakeProgramAddr, Accounts: []AccountMeta{writableMeta(testStakePk)}, Data: stakeInstrData(StakeProgramInstrTypeRedelegate)}
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrInvalidInstructionData)
}

func TestStakeProgram_MalformedInstructionData(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(deactivateTestAccounts(t, activeStakeState(meta, testVotePk, 5000, 0)), 10)

	instr := Instruction{ProgramId: StakeProgramAddr, Accounts: []AccountMeta{writableMeta(testStakePk)}, Data: []byte{99, 0, 0, 0}}
	err := processStakeInstruction(execCtx, instr)
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)
	assert.ErrorIs(t, err, ErrDecodeUnknownVariant)
}

func TestStakeProgram_ComputeBudgetExceeded(t *testing.T) {
	execCtx := newTestExecCtx([]accounts.Account{stakeProgramAccount()}, 10)
	execCtx.ComputeMeter = cu.NewComputeMeter(CUStakeProgramDefaultComputeUnits - 1)

	instr, err := NewStakeInstrGetMinimumDelegation()
	assert.NoError(t, err)
	assert.ErrorIs(t, processStakeInstruction(execCtx, instr), InstrErrComputationalBudgetExceeded)
}

func TestStakeProgram_ProcessTopLevelInstruction(t *testing.T) {
	meta := testMeta(testStakerPk, testWithdrawerPk)
	execCtx := newTestExecCtx(deactivateTestAccounts(t, activeStakeState(meta, testVotePk, 5000, 0)), 10)

	instr, err := NewStakeInstrDeactivate(testStakePk, testStakerPk)
	assert.NoError(t, err)
	assert.NoError(t, execCtx.ProcessTopLevelInstruction(instr))
	assert.Equal(t, uint64(10), stakeStateOf(t, execCtx, testStakePk).Stake.Stake.Delegation.DeactivationEpoch)
	assert.Equal(t, uint64(CUStakeProgramDefaultComputeUnits), execCtx.ComputeMeter.Used())
}
