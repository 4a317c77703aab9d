package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"go.firedancer.io/stake/pkg/features"
	"go.firedancer.io/stake/pkg/safemath"
	"k8s.io/klog/v2"
)

type validatedSplitInfo struct {
	sourceRemainingBalance       uint64
	destinationRentExemptReserve uint64
}

// Split moves remainingStakeDelta out of the stake and returns a copy of it holding
// splitStakeAmount.
func (stake *Stake) Split(remainingStakeDelta uint64, splitStakeAmount uint64) (Stake, error) {
	if remainingStakeDelta > stake.Delegation.StakeLamports {
		return Stake{}, StakeErrInsufficientStake
	}
	stake.Delegation.StakeLamports -= remainingStakeDelta

	newStake := *stake
	newStake.Delegation.StakeLamports = splitStakeAmount
	return newStake, nil
}

func validateSplitAmount(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, sourceAcctIdx uint64, destAcctIdx uint64, lamports uint64, sourceMeta *Meta, additionalRequiredLamports uint64, sourceIsActive bool) (*validatedSplitInfo, error) {
	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return nil, err
	}
	sourceLamports := sourceAcct.Lamports()
	sourceAcct.Drop()

	destAcct, err := instrCtx.BorrowInstructionAccount(txCtx, destAcctIdx)
	if err != nil {
		return nil, err
	}
	destLamports := destAcct.Lamports()
	destDataLen := uint64(len(destAcct.Data()))
	destAcct.Drop()

	if lamports == 0 || lamports > sourceLamports {
		return nil, InstrErrInsufficientFunds
	}

	sourceMinimumBalance := safemath.SaturatingAddU64(sourceMeta.RentExemptReserve, additionalRequiredLamports)
	sourceRemainingBalance := safemath.SaturatingSubU64(sourceLamports, lamports)
	if sourceRemainingBalance != 0 && sourceRemainingBalance < sourceMinimumBalance {
		klog.Errorf("split would leave source with %d lamports, below its minimum of %d", sourceRemainingBalance, sourceMinimumBalance)
		return nil, InstrErrInsufficientFunds
	}

	rent, err := execCtx.SysvarCache.GetRent()
	if err != nil {
		return nil, err
	}
	destRentExemptReserve := rent.MinimumBalance(destDataLen)

	if sourceIsActive && sourceRemainingBalance != 0 && destLamports < destRentExemptReserve {
		klog.Errorf("split destination holds %d lamports, below its rent exempt reserve of %d", destLamports, destRentExemptReserve)
		return nil, InstrErrInsufficientFunds
	}

	destMinimumBalance := safemath.SaturatingAddU64(destRentExemptReserve, additionalRequiredLamports)
	destBalanceDeficit := safemath.SaturatingSubU64(destMinimumBalance, destLamports)
	if lamports < destBalanceDeficit {
		return nil, InstrErrInsufficientFunds
	}

	return &validatedSplitInfo{sourceRemainingBalance: sourceRemainingBalance, destinationRentExemptReserve: destRentExemptReserve}, nil
}

func split(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcctIdx uint64, lamports uint64, splitAcctIdx uint64, signers []solana.PublicKey) error {
	splitAcct, err := instrCtx.BorrowInstructionAccount(txCtx, splitAcctIdx)
	if err != nil {
		return err
	}

	if splitAcct.Owner() != StakeProgramAddr {
		splitAcct.Drop()
		return InstrErrIncorrectProgramId
	}

	if len(splitAcct.Data()) != StakeStateV2Size {
		splitAcct.Drop()
		return InstrErrInvalidAccountData
	}

	splitState, err := unmarshalStakeState(splitAcct.Data())
	if err != nil {
		splitAcct.Drop()
		return err
	}
	if splitState.Status != StakeStateV2StatusUninitialized {
		splitAcct.Drop()
		return InstrErrInvalidAccountData
	}

	splitLamportBalance := splitAcct.Lamports()
	splitAcct.Drop()

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}

	if lamports > stakeAcct.Lamports() {
		stakeAcct.Drop()
		return InstrErrInsufficientFunds
	}

	stakeState, err := unmarshalStakeState(stakeAcct.Data())
	stakeAcct.Drop()
	if err != nil {
		return err
	}

	switch stakeState.Status {
	case StakeStateV2StatusStake:
		{
			meta := stakeState.Stake.Meta
			stake := stakeState.Stake.Stake
			stakeFlags := stakeState.Stake.StakeFlags

			err = meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}

			minDelegation := minimumDelegation(execCtx.Features)

			var isActive bool
			if execCtx.Features.IsActive(features.RequireRentExemptSplitDestination) {
				clock, err := execCtx.SysvarCache.GetClock()
				if err != nil {
					return err
				}
				stakeHistory, err := execCtx.SysvarCache.GetStakeHistory()
				if err != nil {
					return err
				}
				status := stake.Delegation.StakeActivatingAndDeactivating(clock.Epoch, &stakeHistory, newWarmupCooldownRateEpoch(execCtx))
				isActive = status.Effective > 0
			}

			splitInfo, err := validateSplitAmount(execCtx, txCtx, instrCtx, stakeAcctIdx, splitAcctIdx, lamports, &meta, minDelegation, isActive)
			if err != nil {
				return err
			}

			var remainingStakeDelta, splitStakeAmount uint64
			if splitInfo.sourceRemainingBalance == 0 {
				// the whole stake moves; the source's rent reserve is not stake
				remainingStakeDelta = safemath.SaturatingSubU64(lamports, meta.RentExemptReserve)
				splitStakeAmount = remainingStakeDelta
			} else {
				if safemath.SaturatingSubU64(stake.Delegation.StakeLamports, lamports) < minDelegation {
					klog.Errorf("split would leave source stake below the minimum delegation of %d", minDelegation)
					return StakeErrInsufficientDelegation
				}
				remainingStakeDelta = lamports
				splitStakeAmount = safemath.SaturatingSubU64(lamports, safemath.SaturatingSubU64(splitInfo.destinationRentExemptReserve, splitLamportBalance))
			}

			if splitStakeAmount < minDelegation {
				klog.Errorf("split stake of %d is below the minimum delegation of %d", splitStakeAmount, minDelegation)
				return StakeErrInsufficientDelegation
			}

			splitStake, err := stake.Split(remainingStakeDelta, splitStakeAmount)
			if err != nil {
				return err
			}

			splitMeta := meta
			splitMeta.RentExemptReserve = splitInfo.destinationRentExemptReserve

			err = setStateOfInstructionAccount(txCtx, instrCtx, stakeAcctIdx, NewStakeStakeState(meta, stake, stakeFlags))
			if err != nil {
				return err
			}

			err = setStateOfInstructionAccount(txCtx, instrCtx, splitAcctIdx, NewStakeStakeState(splitMeta, splitStake, stakeFlags))
			if err != nil {
				return err
			}
		}
	case StakeStateV2StatusInitialized:
		{
			meta := stakeState.Initialized.Meta
			err = meta.Authorized.Check(signers, StakeAuthorizeStaker)
			if err != nil {
				return err
			}

			splitInfo, err := validateSplitAmount(execCtx, txCtx, instrCtx, stakeAcctIdx, splitAcctIdx, lamports, &meta, 0, false)
			if err != nil {
				return err
			}

			splitMeta := meta
			splitMeta.RentExemptReserve = splitInfo.destinationRentExemptReserve

			err = setStateOfInstructionAccount(txCtx, instrCtx, splitAcctIdx, NewInitializedStakeState(splitMeta))
			if err != nil {
				return err
			}
		}
	case StakeStateV2StatusUninitialized:
		{
			stakePubkey, err := instrCtx.KeyOfInstructionAccount(txCtx, stakeAcctIdx)
			if err != nil {
				return err
			}
			if !lo.Contains(signers, stakePubkey) {
				return InstrErrMissingRequiredSignature
			}
		}
	default:
		{
			return InstrErrInvalidAccountData
		}
	}

	stakeAcct, err = instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}
	if lamports == stakeAcct.Lamports() {
		err = setStakeAccountState(stakeAcct, NewUninitializedStakeState())
		if err != nil {
			stakeAcct.Drop()
			return err
		}
	}
	stakeAcct.Drop()

	splitAcct, err = instrCtx.BorrowInstructionAccount(txCtx, splitAcctIdx)
	if err != nil {
		return err
	}
	err = splitAcct.CheckedAddLamports(lamports)
	splitAcct.Drop()
	if err != nil {
		return err
	}

	stakeAcct, err = instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}
	defer stakeAcct.Drop()
	return stakeAcct.CheckedSubLamports(lamports)
}

func setStateOfInstructionAccount(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64, state *StakeStateV2) error {
	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()
	return setStakeAccountState(acct, state)
}
