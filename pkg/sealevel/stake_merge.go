package sealevel

import (
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/ryanavella/wide"
	"go.firedancer.io/stake/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	MergeKindInactive = iota
	MergeKindActivationEpoch
	MergeKindFullyActive
)

// MergeKind classifies a stake account by whether, and how, it may be merged.
type MergeKind struct {
	Kind       int
	Meta       Meta
	Lamports   uint64
	Stake      Stake
	StakeFlags StakeFlags
}

func (mk *MergeKind) activeStake() *Stake {
	switch mk.Kind {
	case MergeKindActivationEpoch, MergeKindFullyActive:
		return &mk.Stake
	default:
		return nil
	}
}

func getMergeKindIfMergeable(execCtx *ExecutionCtx, state *StakeStateV2, lamports uint64, clock *SysvarClock, stakeHistory *SysvarStakeHistory) (*MergeKind, error) {
	switch state.Status {
	case StakeStateV2StatusStake:
		{
			stake := state.Stake.Stake
			status := stake.Delegation.StakeActivatingAndDeactivating(clock.Epoch, stakeHistory, newWarmupCooldownRateEpoch(execCtx))

			if status.Effective == 0 && status.Activating == 0 && status.Deactivating == 0 {
				return &MergeKind{Kind: MergeKindInactive, Meta: state.Stake.Meta, Lamports: lamports, StakeFlags: state.Stake.StakeFlags}, nil
			} else if status.Effective == 0 {
				return &MergeKind{Kind: MergeKindActivationEpoch, Meta: state.Stake.Meta, Stake: stake, StakeFlags: state.Stake.StakeFlags}, nil
			} else if status.Activating == 0 && status.Deactivating == 0 {
				return &MergeKind{Kind: MergeKindFullyActive, Meta: state.Stake.Meta, Stake: stake}, nil
			}

			klog.Errorf("stake is not mergeable: effective %d, activating %d, deactivating %d", status.Effective, status.Activating, status.Deactivating)
			return nil, StakeErrMergeTransientStake
		}
	case StakeStateV2StatusInitialized:
		{
			return &MergeKind{Kind: MergeKindInactive, Meta: state.Initialized.Meta, Lamports: lamports}, nil
		}
	default:
		{
			return nil, InstrErrInvalidAccountData
		}
	}
}

func metasCanMerge(stake *Meta, source *Meta, clock *SysvarClock) error {
	canMergeLockups := stake.Lockup == source.Lockup ||
		(!stake.Lockup.IsInForce(clock, nil) && !source.Lockup.IsInForce(clock, nil))

	if stake.Authorized == source.Authorized && canMergeLockups {
		return nil
	}

	klog.Errorf("unable to merge due to metadata mismatch")
	return StakeErrMergeMismatch
}

func activeDelegationsCanMerge(stake *Delegation, source *Delegation) error {
	if stake.VoterPubkey != source.VoterPubkey {
		klog.Errorf("unable to merge due to voter mismatch")
		return StakeErrMergeMismatch
	}
	if stake.DeactivationEpoch == math.MaxUint64 && source.DeactivationEpoch == math.MaxUint64 {
		return nil
	}
	klog.Errorf("unable to merge due to stake deactivation")
	return StakeErrMergeMismatch
}

// Merge folds source into mk, returning the destination's new state, or nil if the
// destination's state is unchanged.
func (mk *MergeKind) Merge(source *MergeKind, clock *SysvarClock) (*StakeStateV2, error) {
	err := metasCanMerge(&mk.Meta, &source.Meta, clock)
	if err != nil {
		return nil, err
	}

	stake, sourceStake := mk.activeStake(), source.activeStake()
	if stake != nil && sourceStake != nil {
		err = activeDelegationsCanMerge(&stake.Delegation, &sourceStake.Delegation)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case mk.Kind == MergeKindInactive && (source.Kind == MergeKindInactive || source.Kind == MergeKindActivationEpoch):
		{
			return nil, nil
		}
	case mk.Kind == MergeKindActivationEpoch && source.Kind == MergeKindInactive:
		{
			merged := mk.Stake
			merged.Delegation.StakeLamports, err = checkedAddLamports(merged.Delegation.StakeLamports, source.Lamports)
			if err != nil {
				return nil, err
			}
			return NewStakeStakeState(mk.Meta, merged, mk.StakeFlags.Union(source.StakeFlags)), nil
		}
	case mk.Kind == MergeKindActivationEpoch && source.Kind == MergeKindActivationEpoch:
		{
			sourceLamports, err := checkedAddLamports(source.Meta.RentExemptReserve, source.Stake.Delegation.StakeLamports)
			if err != nil {
				return nil, err
			}

			merged := mk.Stake
			err = mergeDelegationStakeAndCreditsObserved(&merged, sourceLamports, source.Stake.CreditsObserved)
			if err != nil {
				return nil, err
			}
			return NewStakeStakeState(mk.Meta, merged, mk.StakeFlags.Union(source.StakeFlags)), nil
		}
	case mk.Kind == MergeKindFullyActive && source.Kind == MergeKindFullyActive:
		{
			merged := mk.Stake
			err = mergeDelegationStakeAndCreditsObserved(&merged, source.Stake.Delegation.StakeLamports, source.Stake.CreditsObserved)
			if err != nil {
				return nil, err
			}
			return NewStakeStakeState(mk.Meta, merged, StakeFlags{Bits: StakeFlagsEmpty}), nil
		}
	default:
		{
			return nil, StakeErrMergeMismatch
		}
	}
}

// lamport sums that overflow are reported as a shortage of funds
func checkedAddLamports(a uint64, b uint64) (uint64, error) {
	sum, err := safemath.CheckedAddU64(a, b)
	if err != nil {
		return 0, InstrErrInsufficientFunds
	}
	return sum, nil
}

func mergeDelegationStakeAndCreditsObserved(stake *Stake, absorbedLamports uint64, absorbedCreditsObserved uint64) error {
	creditsObserved, ok := stakeWeightedCreditsObserved(stake, absorbedLamports, absorbedCreditsObserved)
	if !ok {
		return InstrErrArithmeticOverflow
	}
	stake.CreditsObserved = creditsObserved

	newStake, err := checkedAddLamports(stake.Delegation.StakeLamports, absorbedLamports)
	if err != nil {
		return err
	}
	stake.Delegation.StakeLamports = newStake
	return nil
}

// stakeWeightedCreditsObserved is the stake-weighted mean of both credits observed
// values, rounded up.
func stakeWeightedCreditsObserved(stake *Stake, absorbedLamports uint64, absorbedCreditsObserved uint64) (uint64, bool) {
	if stake.CreditsObserved == absorbedCreditsObserved {
		return stake.CreditsObserved, true
	}

	totalStake, err := safemath.CheckedAddU64(stake.Delegation.StakeLamports, absorbedLamports)
	if err != nil || totalStake == 0 {
		return 0, false
	}

	stakeWeightedCredits := safemath.MulU64ToU128(stake.CreditsObserved, stake.Delegation.StakeLamports)
	absorbedWeightedCredits := safemath.MulU64ToU128(absorbedCreditsObserved, absorbedLamports)

	// bounded by (max credits + 1) * totalStake, which fits in 128 bits
	totalWeightedCredits := stakeWeightedCredits.Add(absorbedWeightedCredits).
		Add(wide.Uint128FromUint64(totalStake)).
		Sub(wide.Uint128FromUint64(1))

	credits := totalWeightedCredits.Div(wide.Uint128FromUint64(totalStake))
	if !credits.IsUint64() {
		return 0, false
	}
	return credits.Uint64(), true
}

func merge(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, stakeAcctIdx uint64, sourceAcctIdx uint64, clock *SysvarClock, stakeHistory *SysvarStakeHistory, signers []solana.PublicKey) error {
	sourceAcct, err := instrCtx.BorrowInstructionAccount(txCtx, sourceAcctIdx)
	if err != nil {
		return err
	}
	defer sourceAcct.Drop()

	if sourceAcct.Owner() != StakeProgramAddr {
		return InstrErrIncorrectProgramId
	}

	stakeAcctIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(stakeAcctIdx)
	if err != nil {
		return err
	}
	sourceAcctIdxInTx, err := instrCtx.IndexOfInstructionAccountInTransaction(sourceAcctIdx)
	if err != nil {
		return err
	}
	if stakeAcctIdxInTx == sourceAcctIdxInTx {
		return InstrErrInvalidArgument
	}

	stakeAcct, err := instrCtx.BorrowInstructionAccount(txCtx, stakeAcctIdx)
	if err != nil {
		return err
	}
	defer stakeAcct.Drop()

	stakeState, err := unmarshalStakeState(stakeAcct.Data())
	if err != nil {
		return err
	}

	klog.V(2).Infof("checking if destination stake %s is mergeable", stakeAcct.Key())
	stakeMergeKind, err := getMergeKindIfMergeable(execCtx, stakeState, stakeAcct.Lamports(), clock, stakeHistory)
	if err != nil {
		return err
	}

	err = stakeMergeKind.Meta.Authorized.Check(signers, StakeAuthorizeStaker)
	if err != nil {
		return err
	}

	sourceState, err := unmarshalStakeState(sourceAcct.Data())
	if err != nil {
		return err
	}

	klog.V(2).Infof("checking if source stake %s is mergeable", sourceAcct.Key())
	sourceMergeKind, err := getMergeKindIfMergeable(execCtx, sourceState, sourceAcct.Lamports(), clock, stakeHistory)
	if err != nil {
		return err
	}

	mergedState, err := stakeMergeKind.Merge(sourceMergeKind, clock)
	if err != nil {
		return err
	}

	if mergedState != nil {
		err = setStakeAccountState(stakeAcct, mergedState)
		if err != nil {
			return err
		}
	}

	err = setStakeAccountState(sourceAcct, NewUninitializedStakeState())
	if err != nil {
		return err
	}

	lamports := sourceAcct.Lamports()
	err = sourceAcct.CheckedSubLamports(lamports)
	if err != nil {
		return err
	}
	return stakeAcct.CheckedAddLamports(lamports)
}
