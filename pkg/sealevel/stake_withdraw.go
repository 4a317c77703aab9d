package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

func withdraw(txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcctIdx uint64, lamports uint64, toIdx uint64, clock *SysvarClock, stakeHistory *SysvarStakeHistory, withdrawAuthorityIdx uint64, custodianIdx *uint64, newRateActivationEpoch *uint64) error {
	withdrawAuthorityPubkey, err := instrCtx.KeyOfInstructionAccount(txCtx, withdrawAuthorityIdx)
	if err != nil {
		return err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(withdrawAuthorityIdx)
	if err != nil {
		return err
	}
	if !isSigner {
		return InstrErrMissingRequiredSignature
	}
	signers := []solana.PublicKey{withdrawAuthorityPubkey}

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}

	err = withdrawFromStakeAccount(txCtx, instrCtx, stakeAcct, lamports, clock, stakeHistory, signers, custodianIdx, newRateActivationEpoch)
	stakeAcct.Drop()
	if err != nil {
		return err
	}

	toAcct, err := instrCtx.BorrowInstructionAccount(txCtx, toIdx)
	if err != nil {
		return err
	}
	defer toAcct.Drop()

	return toAcct.CheckedAddLamports(lamports)
}

func withdrawFromStakeAccount(txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcct *BorrowedAccount, lamports uint64, clock *SysvarClock, stakeHistory *SysvarStakeHistory, signers []solana.PublicKey, custodianIdx *uint64, newRateActivationEpoch *uint64) error {
	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	var lockup StakeLockup
	var reserve uint64
	var isStaked bool

	switch state.Status {
	case StakeStateV2StatusStake:
		{
			meta := &state.Stake.Meta
			err = meta.Authorized.Check(signers, StakeAuthorizeWithdrawer)
			if err != nil {
				return err
			}

			delegation := &state.Stake.Stake.Delegation
			staked := delegation.StakeLamports
			if clock.Epoch >= delegation.DeactivationEpoch {
				staked = delegation.EffectiveStake(clock.Epoch, stakeHistory, newRateActivationEpoch)
			}

			reserve, err = checkedAddLamports(staked, meta.RentExemptReserve)
			if err != nil {
				return err
			}
			lockup = meta.Lockup
			isStaked = staked != 0
		}
	case StakeStateV2StatusInitialized:
		{
			meta := &state.Initialized.Meta
			err = meta.Authorized.Check(signers, StakeAuthorizeWithdrawer)
			if err != nil {
				return err
			}
			lockup = meta.Lockup
			reserve = meta.RentExemptReserve
		}
	case StakeStateV2StatusUninitialized:
		{
			if !lo.Contains(signers, stakeAcct.Key()) {
				return InstrErrMissingRequiredSignature
			}
		}
	default:
		{
			return InstrErrInvalidAccountData
		}
	}

	var custodianPubkey *solana.PublicKey
	if custodianIdx != nil {
		isSigner, err := instrCtx.IsInstructionAccountSigner(*custodianIdx)
		if err != nil {
			return err
		}
		if isSigner {
			pk, err := instrCtx.KeyOfInstructionAccount(txCtx, *custodianIdx)
			if err != nil {
				return err
			}
			custodianPubkey = &pk
		}
	}

	if lockup.IsInForce(clock, custodianPubkey) {
		klog.Errorf("withdraw from %s rejected: lockup in force until epoch %d, timestamp %d", stakeAcct.Key(), lockup.Epoch, lockup.UnixTimestamp)
		return StakeErrLockupInForce
	}

	lamportsAndReserve, err := checkedAddLamports(lamports, reserve)
	if err != nil {
		return err
	}

	if isStaked && lamportsAndReserve > stakeAcct.Lamports() {
		return InstrErrInsufficientFunds
	}

	if lamports != stakeAcct.Lamports() && lamportsAndReserve > stakeAcct.Lamports() {
		return InstrErrInsufficientFunds
	}

	if lamports == stakeAcct.Lamports() {
		err = setStakeAccountState(stakeAcct, NewUninitializedStakeState())
		if err != nil {
			return err
		}
	}

	return stakeAcct.CheckedSubLamports(lamports)
}
