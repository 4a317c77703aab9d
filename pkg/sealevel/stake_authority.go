package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// StakeLockupArgs carries the lockup fields to replace; nil fields are left as they are.
type StakeLockupArgs struct {
	UnixTimestamp *int64
	Epoch         *uint64
	Custodian     *solana.PublicKey
}

// IsInForce reports whether the lockup still restricts withdrawals. A signature from
// the lockup's custodian lifts it.
func (lockup *StakeLockup) IsInForce(clock *SysvarClock, custodian *solana.PublicKey) bool {
	if custodian != nil && *custodian == lockup.Custodian {
		return false
	}
	return lockup.UnixTimestamp > clock.UnixTimestamp || lockup.Epoch > clock.Epoch
}

func (authorized *Authorized) Check(signers []solana.PublicKey, stakeAuthorize uint32) error {
	switch stakeAuthorize {
	case StakeAuthorizeStaker:
		if lo.Contains(signers, authorized.Staker) {
			return nil
		}
	case StakeAuthorizeWithdrawer:
		if lo.Contains(signers, authorized.Withdrawer) {
			return nil
		}
	}
	return InstrErrMissingRequiredSignature
}

// Authorize replaces the staker or withdrawer. A staker change may be signed by either
// authority. While the lockup is in force, a withdrawer change also needs the custodian.
func (authorized *Authorized) Authorize(signers []solana.PublicKey, newAuthorized solana.PublicKey, stakeAuthorize uint32, lockup *StakeLockup, clock *SysvarClock, custodian *solana.PublicKey) error {
	switch stakeAuthorize {
	case StakeAuthorizeStaker:
		{
			if !lo.Contains(signers, authorized.Staker) && !lo.Contains(signers, authorized.Withdrawer) {
				return InstrErrMissingRequiredSignature
			}
			authorized.Staker = newAuthorized
		}
	case StakeAuthorizeWithdrawer:
		{
			if lockup != nil && lockup.IsInForce(clock, nil) {
				if custodian == nil {
					return StakeErrCustodianMissing
				}
				if !lo.Contains(signers, *custodian) {
					return StakeErrCustodianSignatureMissing
				}
				if lockup.IsInForce(clock, custodian) {
					return StakeErrLockupInForce
				}
			}

			err := authorized.Check(signers, stakeAuthorize)
			if err != nil {
				return err
			}
			authorized.Withdrawer = newAuthorized
		}
	default:
		{
			return InstrErrInvalidArgument
		}
	}
	return nil
}

// SetLockup applies args. The custodian signs while the lockup is in force, the
// withdrawer otherwise.
func (meta *Meta) SetLockup(args *StakeLockupArgs, signers []solana.PublicKey, clock *SysvarClock) error {
	if meta.Lockup.IsInForce(clock, nil) {
		if !lo.Contains(signers, meta.Lockup.Custodian) {
			return InstrErrMissingRequiredSignature
		}
	} else if !lo.Contains(signers, meta.Authorized.Withdrawer) {
		return InstrErrMissingRequiredSignature
	}

	if args.UnixTimestamp != nil {
		meta.Lockup.UnixTimestamp = *args.UnixTimestamp
	}
	if args.Epoch != nil {
		meta.Lockup.Epoch = *args.Epoch
	}
	if args.Custodian != nil {
		meta.Lockup.Custodian = *args.Custodian
	}
	return nil
}

// getOptionalPubkey returns the key of the instruction account at idx if the instruction
// has that many accounts.
func getOptionalPubkey(txCtx *TransactionCtx, instrCtx *InstructionCtx, idx uint64, shouldBeSigner bool) (*solana.PublicKey, error) {
	if instrCtx.NumberOfInstructionAccounts() <= idx {
		return nil, nil
	}

	if shouldBeSigner {
		isSigner, err := instrCtx.IsInstructionAccountSigner(idx)
		if err != nil {
			return nil, err
		}
		if !isSigner {
			return nil, InstrErrMissingRequiredSignature
		}
	}

	pk, err := instrCtx.KeyOfInstructionAccount(txCtx, idx)
	if err != nil {
		return nil, err
	}
	return &pk, nil
}

func authorize(stakeAcct *BorrowedAccount, signers []solana.PublicKey, newAuthority solana.PublicKey, stakeAuthorize uint32, clock *SysvarClock, custodian *solana.PublicKey) error {
	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	switch state.Status {
	case StakeStateV2StatusStake:
		{
			meta := &state.Stake.Meta
			err = meta.Authorized.Authorize(signers, newAuthority, stakeAuthorize, &meta.Lockup, clock, custodian)
		}
	case StakeStateV2StatusInitialized:
		{
			meta := &state.Initialized.Meta
			err = meta.Authorized.Authorize(signers, newAuthority, stakeAuthorize, &meta.Lockup, clock, custodian)
		}
	default:
		{
			return InstrErrInvalidAccountData
		}
	}
	if err != nil {
		klog.Errorf("authorize %s on %s failed: %s", stakeAuthorizeName(stakeAuthorize), stakeAcct.Key(), err)
		return err
	}

	return setStakeAccountState(stakeAcct, state)
}

func authorizeWithSeed(txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcct *BorrowedAccount, authorityBaseIdx uint64, authoritySeed string, authorityOwner solana.PublicKey, newAuthority solana.PublicKey, stakeAuthorize uint32, clock *SysvarClock, custodian *solana.PublicKey) error {
	var signers []solana.PublicKey

	isSigner, err := instrCtx.IsInstructionAccountSigner(authorityBaseIdx)
	if err != nil {
		return err
	}

	if isSigner {
		basePubkey, err := instrCtx.KeyOfInstructionAccount(txCtx, authorityBaseIdx)
		if err != nil {
			return err
		}

		derived, err := createWithSeed(basePubkey, authoritySeed, authorityOwner)
		if err != nil {
			return err
		}
		signers = append(signers, derived)
	}

	return authorize(stakeAcct, signers, newAuthority, stakeAuthorize, clock, custodian)
}

func setLockup(stakeAcct *BorrowedAccount, args *StakeLockupArgs, signers []solana.PublicKey, clock *SysvarClock) error {
	state, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	switch state.Status {
	case StakeStateV2StatusInitialized:
		{
			err = state.Initialized.Meta.SetLockup(args, signers, clock)
		}
	case StakeStateV2StatusStake:
		{
			err = state.Stake.Meta.SetLockup(args, signers, clock)
		}
	default:
		{
			return InstrErrInvalidAccountData
		}
	}
	if err != nil {
		klog.Errorf("set lockup on %s failed: %s", stakeAcct.Key(), err)
		return err
	}

	return setStakeAccountState(stakeAcct, state)
}

func stakeAuthorizeName(stakeAuthorize uint32) string {
	if stakeAuthorize == StakeAuthorizeStaker {
		return "staker"
	}
	return "withdrawer"
}
