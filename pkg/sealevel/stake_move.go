package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/safemath"
	"k8s.io/klog/v2"
)

func moveStakeOrLamportsSharedChecks(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, sourceAcct *BorrowedAccount, lamports uint64, destAcct *BorrowedAccount, stakeAuthorityIdx uint64) (*MergeKind, *MergeKind, error) {
	stakeAuthorityPubkey, err := instrCtx.KeyOfInstructionAccount(txCtx, stakeAuthorityIdx)
	if err != nil {
		return nil, nil, err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(stakeAuthorityIdx)
	if err != nil {
		return nil, nil, err
	}
	if !isSigner {
		return nil, nil, InstrErrMissingRequiredSignature
	}
	signers := []solana.PublicKey{stakeAuthorityPubkey}

	if sourceAcct.Owner() != StakeProgramAddr || destAcct.Owner() != StakeProgramAddr {
		return nil, nil, InstrErrIncorrectProgramId
	}

	if sourceAcct.Key() == destAcct.Key() {
		return nil, nil, InstrErrInvalidInstructionData
	}

	if !sourceAcct.IsWritable() || !destAcct.IsWritable() {
		return nil, nil, InstrErrInvalidInstructionData
	}

	if lamports == 0 {
		return nil, nil, InstrErrInvalidArgument
	}

	clock, err := execCtx.SysvarCache.GetClock()
	if err != nil {
		return nil, nil, err
	}

	stakeHistory, err := execCtx.SysvarCache.GetStakeHistory()
	if err != nil {
		return nil, nil, err
	}

	sourceState, err := unmarshalStakeState(sourceAcct.Data())
	if err != nil {
		return nil, nil, err
	}

	// activating stake is excluded by the callers
	sourceMergeKind, err := getMergeKindIfMergeable(execCtx, sourceState, sourceAcct.Lamports(), &clock, &stakeHistory)
	if err != nil {
		return nil, nil, err
	}

	err = sourceMergeKind.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
	if err != nil {
		return nil, nil, err
	}

	destState, err := unmarshalStakeState(destAcct.Data())
	if err != nil {
		return nil, nil, err
	}

	destMergeKind, err := getMergeKindIfMergeable(execCtx, destState, destAcct.Lamports(), &clock, &stakeHistory)
	if err != nil {
		return nil, nil, err
	}

	err = metasCanMerge(&sourceMergeKind.Meta, &destMergeKind.Meta, &clock)
	if err != nil {
		return nil, nil, err
	}

	return sourceMergeKind, destMergeKind, nil
}

func moveStake(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, sourceAcctIdx uint64, lamports uint64, destAcctIdx uint64, stakeAuthorityIdx uint64) error {
	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return err
	}
	defer sourceAcct.Drop()

	destAcct, err := instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
	if err != nil {
		return err
	}
	defer destAcct.Drop()

	sourceMergeKind, destMergeKind, err := moveStakeOrLamportsSharedChecks(execCtx, txCtx, instrCtx, sourceAcct, lamports, destAcct, stakeAuthorityIdx)
	if err != nil {
		return err
	}

	if len(sourceAcct.Data()) != StakeStateV2Size || len(destAcct.Data()) != StakeStateV2Size {
		return InstrErrInvalidAccountData
	}

	if sourceMergeKind.Kind != MergeKindFullyActive {
		klog.Errorf("move stake source %s is not fully active", sourceAcct.Key())
		return InstrErrInvalidAccountData
	}
	sourceMeta := sourceMergeKind.Meta
	sourceStake := sourceMergeKind.Stake

	minDelegation := minimumDelegation(execCtx.Features)

	sourceFinalStake, err := safemath.CheckedSubU64(sourceStake.Delegation.StakeLamports, lamports)
	if err != nil {
		return InstrErrInvalidArgument
	}

	if sourceFinalStake != 0 && sourceFinalStake < minDelegation {
		return InstrErrInvalidArgument
	}

	var destMeta Meta
	switch destMergeKind.Kind {
	case MergeKindFullyActive:
		{
			destMeta = destMergeKind.Meta
			destStake := destMergeKind.Stake

			if sourceStake.Delegation.VoterPubkey != destStake.Delegation.VoterPubkey {
				return StakeErrVoteAddressMismatch
			}

			destFinalStake, err := safemath.CheckedAddU64(destStake.Delegation.StakeLamports, lamports)
			if err != nil {
				return InstrErrArithmeticOverflow
			}

			if destFinalStake < minDelegation {
				return InstrErrInvalidArgument
			}

			err = mergeDelegationStakeAndCreditsObserved(&destStake, lamports, sourceStake.CreditsObserved)
			if err != nil {
				return err
			}

			err = setStakeAccountState(destAcct, NewStakeStakeState(destMeta, destStake, StakeFlags{Bits: StakeFlagsEmpty}))
			if err != nil {
				return err
			}
		}
	case MergeKindInactive:
		{
			destMeta = destMergeKind.Meta

			if lamports < minDelegation {
				return InstrErrInvalidArgument
			}

			destStake := sourceStake
			destStake.Delegation.StakeLamports = lamports

			err = setStakeAccountState(destAcct, NewStakeStakeState(destMeta, destStake, StakeFlags{Bits: StakeFlagsEmpty}))
			if err != nil {
				return err
			}
		}
	default:
		{
			return InstrErrInvalidAccountData
		}
	}

	if sourceFinalStake == 0 {
		err = setStakeAccountState(sourceAcct, NewInitializedStakeState(sourceMeta))
	} else {
		sourceStake.Delegation.StakeLamports = sourceFinalStake
		err = setStakeAccountState(sourceAcct, NewStakeStakeState(sourceMeta, sourceStake, StakeFlags{Bits: StakeFlagsEmpty}))
	}
	if err != nil {
		return err
	}

	err = sourceAcct.CheckedSubLamports(lamports)
	if err != nil {
		return err
	}

	err = destAcct.CheckedAddLamports(lamports)
	if err != nil {
		return err
	}

	if sourceAcct.Lamports() < sourceMeta.RentExemptReserve || destAcct.Lamports() < destMeta.RentExemptReserve {
		klog.Errorf("delegation calculations violated lamport balance assumptions")
		return InstrErrInvalidArgument
	}

	return nil
}

func moveLamports(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, sourceAcctIdx uint64, lamports uint64, destAcctIdx uint64, stakeAuthorityIdx uint64) error {
	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return err
	}
	defer sourceAcct.Drop()

	destAcct, err := instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
	if err != nil {
		return err
	}
	defer destAcct.Drop()

	sourceMergeKind, _, err := moveStakeOrLamportsSharedChecks(execCtx, txCtx, instrCtx, sourceAcct, lamports, destAcct, stakeAuthorityIdx)
	if err != nil {
		return err
	}

	var sourceFreeLamports uint64
	switch sourceMergeKind.Kind {
	case MergeKindFullyActive:
		{
			sourceFreeLamports = safemath.SaturatingSubU64(safemath.SaturatingSubU64(sourceAcct.Lamports(), sourceMergeKind.Stake.Delegation.StakeLamports), sourceMergeKind.Meta.RentExemptReserve)
		}
	case MergeKindInactive:
		{
			sourceFreeLamports = safemath.SaturatingSubU64(sourceMergeKind.Lamports, sourceMergeKind.Meta.RentExemptReserve)
		}
	default:
		{
			return InstrErrInvalidAccountData
		}
	}

	if lamports > sourceFreeLamports {
		klog.Errorf("move lamports of %d exceeds the %d free lamports of %s", lamports, sourceFreeLamports, sourceAcct.Key())
		return InstrErrInvalidArgument
	}

	err = sourceAcct.CheckedSubLamports(lamports)
	if err != nil {
		return err
	}
	return destAcct.CheckedAddLamports(lamports)
}
