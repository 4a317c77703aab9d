package sealevel

import (
	"math"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/features"
	"k8s.io/klog/v2"
)

func (stake *Stake) Deactivate(epoch uint64) error {
	if stake.Delegation.DeactivationEpoch != math.MaxUint64 {
		return StakeErrAlreadyDeactivated
	}
	stake.Delegation.DeactivationEpoch = epoch
	return nil
}

func deactivate(execCtx *ExecutionCtx, stakeAcct *BorrowedAccount, clock *SysvarClock, signers []solana.PublicKey) error {
	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	if state.Status != StakeStateV2StatusStake {
		return InstrErrInvalidAccountData
	}

	err = state.Stake.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
	if err != nil {
		return err
	}

	stake := &state.Stake.Stake
	flags := &state.Stake.StakeFlags

	// stake redelegated under the redelegate instruction has to finish warming up first
	if execCtx.Features.IsActive(features.StakeRedelegateInstruction) &&
		flags.Contains(StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted) {
		stakeHistory, err := execCtx.SysvarCache.GetStakeHistory()
		if err != nil {
			return err
		}
		status := stake.Delegation.StakeActivatingAndDeactivating(clock.Epoch, &stakeHistory, newWarmupCooldownRateEpoch(execCtx))
		if status.Activating != 0 {
			return StakeErrRedelegatedStakeMustFullyActivateBeforeDeactivationIsPermitted
		}
		flags.Bits &^= StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted
	}

	err = stake.Deactivate(clock.Epoch)
	if err != nil {
		klog.Errorf("deactivate %s failed: %s", stakeAcct.Key(), err)
		return err
	}

	return setStakeAccountState(stakeAcct, state)
}

// acceptableReferenceEpochCredits reports whether the reference vote account voted in
// each of the last MinimumDelinquentEpochsForDeactivation epochs, ending at currentEpoch.
func acceptableReferenceEpochCredits(epochCredits []EpochCredits, currentEpoch uint64) bool {
	if len(epochCredits) < MinimumDelinquentEpochsForDeactivation {
		return false
	}

	epoch := currentEpoch
	recent := epochCredits[len(epochCredits)-MinimumDelinquentEpochsForDeactivation:]
	for idx := len(recent) - 1; idx >= 0; idx-- {
		if recent[idx].Epoch != epoch {
			return false
		}
		if epoch > 0 {
			epoch--
		}
	}
	return true
}

func eligibleForDeactivateDelinquent(epochCredits []EpochCredits, currentEpoch uint64) bool {
	if len(epochCredits) == 0 {
		return true
	}

	lastEpoch := epochCredits[len(epochCredits)-1].Epoch
	if currentEpoch < MinimumDelinquentEpochsForDeactivation {
		return false
	}
	return lastEpoch <= currentEpoch-MinimumDelinquentEpochsForDeactivation
}

func borrowVoteState(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*BorrowedAccount, *VoteStateVersions, error) {
	voteAcct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return nil, nil, err
	}

	if voteAcct.Owner() != VoteProgramAddr {
		voteAcct.Drop()
		return nil, nil, InstrErrIncorrectProgramId
	}

	voteState, err := unmarshalVersionedVoteState(voteAcct.Data())
	if err != nil {
		voteAcct.Drop()
		return nil, nil, err
	}
	return voteAcct, voteState, nil
}

func deactivateDelinquent(txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcct *BorrowedAccount, delinquentVoteAcctIdx uint64, referenceVoteAcctIdx uint64, currentEpoch uint64) error {
	delinquentVoteAcct, delinquentVoteState, err := borrowVoteState(txCtx, instrCtx, delinquentVoteAcctIdx)
	if err != nil {
		return err
	}
	defer delinquentVoteAcct.Drop()

	referenceVoteAcct, referenceVoteState, err := borrowVoteState(txCtx, instrCtx, referenceVoteAcctIdx)
	if err != nil {
		return err
	}
	defer referenceVoteAcct.Drop()

	if !acceptableReferenceEpochCredits(referenceVoteState.EpochCredits(), currentEpoch) {
		klog.Errorf("reference vote account %s has not voted in each of the last %d epochs", referenceVoteAcct.Key(), MinimumDelinquentEpochsForDeactivation)
		return StakeErrInsufficientReferenceVotes
	}

	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}
	if state.Status != StakeStateV2StatusStake {
		return InstrErrInvalidAccountData
	}

	if state.Stake.Stake.Delegation.VoterPubkey != delinquentVoteAcct.Key() {
		return StakeErrVoteAddressMismatch
	}

	if !eligibleForDeactivateDelinquent(delinquentVoteState.EpochCredits(), currentEpoch) {
		return StakeErrMinimumDelinquentEpochsForDeactivationNotMet
	}

	err = state.Stake.Stake.Deactivate(currentEpoch)
	if err != nil {
		return err
	}
	return setStakeAccountState(stakeAcct, state)
}
