package sealevel

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/cu"
	"go.firedancer.io/stake/pkg/features"
	"go.firedancer.io/stake/pkg/safemath"
	"k8s.io/klog/v2"
)

func StakeProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUStakeProgramDefaultComputeUnits)
	if err != nil {
		if errors.Is(err, cu.ErrComputeExceeded) {
			return InstrErrComputationalBudgetExceeded
		}
		return err
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	getStakeAccount := func() (*BorrowedAccount, error) {
		acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return nil, err
		}
		if acct.Owner() != StakeProgramAddr {
			acct.Drop()
			return nil, InstrErrInvalidAccountOwner
		}
		return acct, nil
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	instr, err := DecodeStakeInstruction(instrCtx.Data)
	if err != nil {
		klog.Errorf("failed to decode stake instruction: %s", err)
		return err
	}

	klog.V(2).Infof("stake program: %s", StakeInstrName(instr.InstrType()))

	if epochRewardsActive(execCtx) && instr.InstrType() != StakeProgramInstrTypeGetMinimumDelegation {
		return StakeErrEpochRewardsActive
	}

	switch instr := instr.(type) {
	case StakeInstrInitialize:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			rent, err := rentWithAccountCheck(execCtx, instrCtx, 1)
			if err != nil {
				return err
			}

			return initialize(me, instr.Authorized, instr.Lockup, rent)
		}

	case StakeInstrAuthorize:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 1)
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 3, false)
			if err != nil {
				return err
			}

			return authorize(me, signers, instr.Pubkey, instr.StakeAuthorize, clock, custodianPubkey)
		}

	case StakeInstrAuthorizeWithSeed:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 2)
			if err != nil {
				return err
			}

			custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 3, false)
			if err != nil {
				return err
			}

			return authorizeWithSeed(txCtx, instrCtx, me, 1, instr.AuthoritySeed, instr.AuthorityOwner, instr.NewAuthorizedPubkey, instr.StakeAuthorize, clock, custodianPubkey)
		}

	case StakeInstrDelegateStake:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				me.Drop()
				return err
			}

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 2)
			if err != nil {
				me.Drop()
				return err
			}

			stakeHistory, err := stakeHistoryWithAccountCheck(execCtx, instrCtx, 3)
			if err != nil {
				me.Drop()
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(5)
			me.Drop()
			if err != nil {
				return err
			}

			if !execCtx.Features.IsActive(features.ReduceStakeWarmupCooldown) {
				err = checkStakeConfigAccount(txCtx, instrCtx, 4)
				if err != nil {
					return err
				}
			}

			return delegate(execCtx, txCtx, instrCtx, 0, 1, clock, stakeHistory, signers)
		}

	case StakeInstrSplit:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			me.Drop()
			if err != nil {
				return err
			}

			return split(execCtx, txCtx, instrCtx, 0, instr.Lamports, 1, signers)
		}

	case StakeInstrMerge:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				me.Drop()
				return err
			}

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 2)
			if err != nil {
				me.Drop()
				return err
			}

			stakeHistory, err := stakeHistoryWithAccountCheck(execCtx, instrCtx, 3)
			me.Drop()
			if err != nil {
				return err
			}

			return merge(execCtx, txCtx, instrCtx, 0, 1, clock, stakeHistory, signers)
		}

	case StakeInstrWithdraw:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				me.Drop()
				return err
			}

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 2)
			if err != nil {
				me.Drop()
				return err
			}

			stakeHistory, err := stakeHistoryWithAccountCheck(execCtx, instrCtx, 3)
			if err != nil {
				me.Drop()
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(5)
			me.Drop()
			if err != nil {
				return err
			}

			var custodianIdx *uint64
			if instrCtx.NumberOfInstructionAccounts() >= 6 {
				idx := uint64(5)
				custodianIdx = &idx
			}

			return withdraw(txCtx, instrCtx, 0, instr.Lamports, 1, clock, stakeHistory, 4, custodianIdx, newWarmupCooldownRateEpoch(execCtx))
		}

	case StakeInstrDeactivate:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 1)
			if err != nil {
				return err
			}

			return deactivate(execCtx, me, clock, signers)
		}

	case StakeInstrSetLockup:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			clock, err := execCtx.SysvarCache.GetClock()
			if err != nil {
				return err
			}

			args := StakeLockupArgs{UnixTimestamp: instr.UnixTimestamp, Epoch: instr.Epoch, Custodian: instr.Custodian}
			return setLockup(me, &args, signers, &clock)
		}

	case StakeInstrInitializeChecked:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			err = instrCtx.CheckNumOfInstructionAccounts(4)
			if err != nil {
				return err
			}

			stakerPubkey, err := instrCtx.KeyOfInstructionAccount(txCtx, 2)
			if err != nil {
				return err
			}

			withdrawerPubkey, err := instrCtx.KeyOfInstructionAccount(txCtx, 3)
			if err != nil {
				return err
			}

			isSigner, err := instrCtx.IsInstructionAccountSigner(3)
			if err != nil {
				return err
			}
			if !isSigner {
				return InstrErrMissingRequiredSignature
			}

			rent, err := rentWithAccountCheck(execCtx, instrCtx, 1)
			if err != nil {
				return err
			}

			authorized := Authorized{Staker: stakerPubkey, Withdrawer: withdrawerPubkey}
			return initialize(me, authorized, StakeLockup{}, rent)
		}

	case StakeInstrAuthorizeChecked:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 1)
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(4)
			if err != nil {
				return err
			}

			authorizedPubkey, err := signingInstructionAccountKey(txCtx, instrCtx, 3)
			if err != nil {
				return err
			}

			custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 4, false)
			if err != nil {
				return err
			}

			return authorize(me, signers, authorizedPubkey, instr.StakeAuthorize, clock, custodianPubkey)
		}

	case StakeInstrAuthorizeCheckedWithSeed:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			clock, err := clockWithAccountCheck(execCtx, instrCtx, 2)
			if err != nil {
				return err
			}

			err = instrCtx.CheckNumOfInstructionAccounts(4)
			if err != nil {
				return err
			}

			authorizedPubkey, err := signingInstructionAccountKey(txCtx, instrCtx, 3)
			if err != nil {
				return err
			}

			custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 4, false)
			if err != nil {
				return err
			}

			return authorizeWithSeed(txCtx, instrCtx, me, 1, instr.AuthoritySeed, instr.AuthorityOwner, authorizedPubkey, instr.StakeAuthorize, clock, custodianPubkey)
		}

	case StakeInstrSetLockupChecked:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			custodianPubkey, err := getOptionalPubkey(txCtx, instrCtx, 2, true)
			if err != nil {
				return err
			}

			clock, err := execCtx.SysvarCache.GetClock()
			if err != nil {
				return err
			}

			args := StakeLockupArgs{UnixTimestamp: instr.UnixTimestamp, Epoch: instr.Epoch, Custodian: custodianPubkey}
			return setLockup(me, &args, signers, &clock)
		}

	case StakeInstrGetMinimumDelegation:
		{
			var returnData [8]byte
			binary.LittleEndian.PutUint64(returnData[:], minimumDelegation(execCtx.Features))
			return txCtx.SetReturnData(StakeProgramAddr, returnData[:])
		}

	case StakeInstrDeactivateDelinquent:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			defer me.Drop()

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			clock, err := execCtx.SysvarCache.GetClock()
			if err != nil {
				return err
			}

			return deactivateDelinquent(txCtx, instrCtx, me, 1, 2, clock.Epoch)
		}

	case StakeInstrRedelegate:
		{
			me, err := getStakeAccount()
			if err != nil {
				return err
			}
			me.Drop()
			return InstrErrInvalidInstructionData
		}

	case StakeInstrMoveStake:
		{
			if !execCtx.Features.IsActive(features.MoveStakeAndMoveLamportsIxs) {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			return moveStake(execCtx, txCtx, instrCtx, 0, instr.Lamports, 1, 2)
		}

	case StakeInstrMoveLamports:
		{
			if !execCtx.Features.IsActive(features.MoveStakeAndMoveLamportsIxs) {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}

			return moveLamports(execCtx, txCtx, instrCtx, 0, instr.Lamports, 1, 2)
		}

	default:
		{
			return InstrErrInvalidInstructionData
		}
	}
}

func epochRewardsActive(execCtx *ExecutionCtx) bool {
	epochRewards, err := execCtx.SysvarCache.GetEpochRewards()
	if err != nil {
		return false
	}
	return epochRewards.Active
}

func clockWithAccountCheck(execCtx *ExecutionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*SysvarClock, error) {
	err := checkAcctForClockSysvar(execCtx.TransactionContext, instrCtx, instrAcctIdx)
	if err != nil {
		return nil, err
	}
	clock, err := execCtx.SysvarCache.GetClock()
	if err != nil {
		return nil, err
	}
	return &clock, nil
}

func rentWithAccountCheck(execCtx *ExecutionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*SysvarRent, error) {
	err := checkAcctForRentSysvar(execCtx.TransactionContext, instrCtx, instrAcctIdx)
	if err != nil {
		return nil, err
	}
	rent, err := execCtx.SysvarCache.GetRent()
	if err != nil {
		return nil, err
	}
	return &rent, nil
}

func stakeHistoryWithAccountCheck(execCtx *ExecutionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*SysvarStakeHistory, error) {
	err := checkAcctForStakeHistorySysvar(execCtx.TransactionContext, instrCtx, instrAcctIdx)
	if err != nil {
		return nil, err
	}
	stakeHistory, err := execCtx.SysvarCache.GetStakeHistory()
	if err != nil {
		return nil, err
	}
	return &stakeHistory, nil
}

func signingInstructionAccountKey(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (solana.PublicKey, error) {
	pk, err := instrCtx.KeyOfInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !isSigner {
		return solana.PublicKey{}, InstrErrMissingRequiredSignature
	}
	return pk, nil
}

func initialize(stakeAcct *BorrowedAccount, authorized Authorized, lockup StakeLockup, rent *SysvarRent) error {
	if len(stakeAcct.Data()) != StakeStateV2Size {
		return InstrErrInvalidAccountData
	}

	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	if state.Status != StakeStateV2StatusUninitialized {
		return InstrErrInvalidAccountData
	}

	rentExemptReserve := rent.MinimumBalance(uint64(len(stakeAcct.Data())))
	if stakeAcct.Lamports() < rentExemptReserve {
		klog.Errorf("stake account %s holds %d lamports, below the rent exempt reserve of %d", stakeAcct.Key(), stakeAcct.Lamports(), rentExemptReserve)
		return InstrErrInsufficientFunds
	}

	meta := Meta{RentExemptReserve: rentExemptReserve, Authorized: authorized, Lockup: lockup}
	return setStakeAccountState(stakeAcct, NewInitializedStakeState(meta))
}

func validateDelegatedAmount(stakeAcct *BorrowedAccount, meta *Meta, f *features.Features) (uint64, error) {
	stakeAmount := safemath.SaturatingSubU64(stakeAcct.Lamports(), meta.RentExemptReserve)

	minDelegation := minimumDelegation(f)
	if stakeAmount < minDelegation {
		klog.Errorf("delegation amount %d is below the minimum of %d", stakeAmount, minDelegation)
		return 0, StakeErrInsufficientDelegation
	}
	return stakeAmount, nil
}

func newStake(stakeAmount uint64, voterPubkey solana.PublicKey, credits uint64, activationEpoch uint64) Stake {
	return Stake{Delegation: NewDelegation(voterPubkey, stakeAmount, activationEpoch), CreditsObserved: credits}
}

func redelegateStake(execCtx *ExecutionCtx, stake *Stake, stakeLamports uint64, voterPubkey solana.PublicKey, credits uint64, clock *SysvarClock, stakeHistory *SysvarStakeHistory) error {
	if stake.Delegation.EffectiveStake(clock.Epoch, stakeHistory, newWarmupCooldownRateEpoch(execCtx)) != 0 {
		// a delegation deactivated this epoch may be rescinded back to the same voter
		if stake.Delegation.VoterPubkey == voterPubkey && clock.Epoch == stake.Delegation.DeactivationEpoch {
			stake.Delegation.DeactivationEpoch = math.MaxUint64
			return nil
		}
		return StakeErrTooSoonToRedelegate
	}

	stake.Delegation.StakeLamports = stakeLamports
	stake.Delegation.ActivationEpoch = clock.Epoch
	stake.Delegation.DeactivationEpoch = math.MaxUint64
	stake.Delegation.VoterPubkey = voterPubkey
	stake.CreditsObserved = credits
	return nil
}

func delegate(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcctIdx uint64, voteAcctIdx uint64, clock *SysvarClock, stakeHistory *SysvarStakeHistory, signers []solana.PublicKey) error {
	voteAcct, err := instrCtx.BorrowInstructionAccount(txCtx, voteAcctIdx)
	if err != nil {
		return err
	}

	if voteAcct.Owner() != VoteProgramAddr {
		voteAcct.Drop()
		return InstrErrIncorrectProgramId
	}

	votePubkey := voteAcct.Key()
	voteState, voteStateErr := unmarshalVersionedVoteState(voteAcct.Data())
	voteAcct.Drop()

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}
	defer stakeAcct.Drop()

	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	switch state.Status {
	case StakeStateV2StatusInitialized:
		{
			meta := state.Initialized.Meta
			err = meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}

			stakeAmount, err := validateDelegatedAmount(stakeAcct, &meta, execCtx.Features)
			if err != nil {
				return err
			}

			if voteStateErr != nil {
				return voteStateErr
			}

			stake := newStake(stakeAmount, votePubkey, voteState.Credits(), clock.Epoch)
			return setStakeAccountState(stakeAcct, NewStakeStakeState(meta, stake, StakeFlags{Bits: StakeFlagsEmpty}))
		}

	case StakeStateV2StatusStake:
		{
			meta := state.Stake.Meta
			stake := state.Stake.Stake
			err = meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}

			stakeAmount, err := validateDelegatedAmount(stakeAcct, &meta, execCtx.Features)
			if err != nil {
				return err
			}

			if voteStateErr != nil {
				return voteStateErr
			}

			err = redelegateStake(execCtx, &stake, stakeAmount, votePubkey, voteState.Credits(), clock, stakeHistory)
			if err != nil {
				klog.Errorf("redelegation of %s to %s failed: %s", stakeAcct.Key(), votePubkey, err)
				return err
			}

			return setStakeAccountState(stakeAcct, NewStakeStakeState(meta, stake, state.Stake.StakeFlags))
		}

	default:
		{
			return InstrErrInvalidAccountData
		}
	}
}
