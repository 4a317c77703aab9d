package sealevel

import (
	"math"

	"github.com/ryanavella/wide"
	"go.firedancer.io/stake/pkg/features"
	"go.firedancer.io/stake/pkg/safemath"
)

const (
	DefaultWarmupCooldownRate = 0.25
	NewWarmupCooldownRate     = 0.09
)

const (
	MinimumDelegationLamports     = 1
	MinimumDelegationLamports1Sol = 1_000_000_000
)

const MinimumDelinquentEpochsForDeactivation = 5

// StakeActivationStatus is the split of a delegation's stake at a given epoch.
type StakeActivationStatus struct {
	Effective    uint64
	Activating   uint64
	Deactivating uint64
}

func warmupCooldownRate(currentEpoch uint64, newRateActivationEpoch *uint64) float64 {
	newRateEpoch := uint64(math.MaxUint64)
	if newRateActivationEpoch != nil {
		newRateEpoch = *newRateActivationEpoch
	}
	if currentEpoch < newRateEpoch {
		return DefaultWarmupCooldownRate
	}
	return NewWarmupCooldownRate
}

// StakeActivatingAndDeactivating computes the activation status of the delegation at
// targetEpoch. Each step of warmup or cooldown is limited to a fraction of the cluster's
// effective stake in the previous epoch, apportioned by the delegation's share of the
// cluster's activating or deactivating stake.
func (delegation *Delegation) StakeActivatingAndDeactivating(targetEpoch uint64, stakeHistory *SysvarStakeHistory, newRateActivationEpoch *uint64) StakeActivationStatus {
	effectiveStake, activatingStake := delegation.stakeAndActivating(targetEpoch, stakeHistory, newRateActivationEpoch)

	if targetEpoch < delegation.DeactivationEpoch {
		return StakeActivationStatus{Effective: effectiveStake, Activating: activatingStake}
	} else if targetEpoch == delegation.DeactivationEpoch {
		return StakeActivationStatus{Effective: effectiveStake, Deactivating: effectiveStake}
	}

	prevClusterStake := stakeHistory.Get(delegation.DeactivationEpoch)
	if prevClusterStake == nil {
		return StakeActivationStatus{}
	}

	prevEpoch := delegation.DeactivationEpoch
	currentEffectiveStake := effectiveStake

	for iter := 0; iter < MaxStakeHistoryEntries; iter++ {
		currentEpoch := prevEpoch + 1
		if prevClusterStake.Deactivating == 0 {
			break
		}

		weight := float64(currentEffectiveStake) / float64(prevClusterStake.Deactivating)
		rate := warmupCooldownRate(currentEpoch, newRateActivationEpoch)

		newlyNotEffectiveClusterStake := float64(prevClusterStake.Effective) * rate
		newlyNotEffectiveStake := max(safemath.F64ToU64Saturating(weight*newlyNotEffectiveClusterStake), 1)

		currentEffectiveStake = safemath.SaturatingSubU64(currentEffectiveStake, newlyNotEffectiveStake)
		if currentEffectiveStake == 0 {
			break
		}

		if currentEpoch >= targetEpoch {
			break
		}

		currentClusterStake := stakeHistory.Get(currentEpoch)
		if currentClusterStake == nil {
			break
		}
		prevEpoch = currentEpoch
		prevClusterStake = currentClusterStake
	}

	return StakeActivationStatus{Effective: currentEffectiveStake, Deactivating: currentEffectiveStake}
}

func (delegation *Delegation) stakeAndActivating(targetEpoch uint64, stakeHistory *SysvarStakeHistory, newRateActivationEpoch *uint64) (uint64, uint64) {
	delegatedStake := delegation.StakeLamports

	if delegation.IsBootstrap() {
		return delegatedStake, 0
	} else if delegation.ActivationEpoch == delegation.DeactivationEpoch {
		return 0, 0
	} else if targetEpoch == delegation.ActivationEpoch {
		return 0, delegatedStake
	} else if targetEpoch < delegation.ActivationEpoch {
		return 0, 0
	}

	prevClusterStake := stakeHistory.Get(delegation.ActivationEpoch)
	if prevClusterStake == nil {
		// no history at all means the delegation is treated as fully active
		return delegatedStake, 0
	}

	prevEpoch := delegation.ActivationEpoch
	var currentEffectiveStake uint64

	for iter := 0; iter < MaxStakeHistoryEntries; iter++ {
		currentEpoch := prevEpoch + 1
		if prevClusterStake.Activating == 0 {
			break
		}

		remainingActivatingStake := delegatedStake - currentEffectiveStake
		weight := float64(remainingActivatingStake) / float64(prevClusterStake.Activating)
		rate := warmupCooldownRate(currentEpoch, newRateActivationEpoch)

		newlyEffectiveClusterStake := float64(prevClusterStake.Effective) * rate
		newlyEffectiveStake := max(safemath.F64ToU64Saturating(weight*newlyEffectiveClusterStake), 1)

		currentEffectiveStake = safemath.SaturatingAddU64(currentEffectiveStake, newlyEffectiveStake)
		if currentEffectiveStake >= delegatedStake {
			currentEffectiveStake = delegatedStake
			break
		}

		if currentEpoch >= targetEpoch || currentEpoch >= delegation.DeactivationEpoch {
			break
		}

		currentClusterStake := stakeHistory.Get(currentEpoch)
		if currentClusterStake == nil {
			break
		}
		prevEpoch = currentEpoch
		prevClusterStake = currentClusterStake
	}

	return currentEffectiveStake, delegatedStake - currentEffectiveStake
}

// EffectiveStake returns the stake counted toward consensus at epoch.
func (delegation *Delegation) EffectiveStake(epoch uint64, stakeHistory *SysvarStakeHistory, newRateActivationEpoch *uint64) uint64 {
	return delegation.StakeActivatingAndDeactivating(epoch, stakeHistory, newRateActivationEpoch).Effective
}

// newWarmupCooldownRateEpoch is the epoch from which the reduced warmup/cooldown rate
// applies, or nil while ReduceStakeWarmupCooldown is inactive.
func newWarmupCooldownRateEpoch(execCtx *ExecutionCtx) *uint64 {
	slot, ok := execCtx.Features.ActivationSlot(features.ReduceStakeWarmupCooldown)
	if !ok {
		return nil
	}

	epochSchedule, err := execCtx.SysvarCache.GetEpochSchedule()
	if err != nil {
		epochSchedule = DefaultEpochSchedule()
	}
	epoch := epochSchedule.GetEpoch(slot)
	return &epoch
}

func minimumDelegation(f *features.Features) uint64 {
	if f.IsActive(features.StakeRaiseMinimumDelegationTo1Sol) {
		return MinimumDelegationLamports1Sol
	}
	return MinimumDelegationLamports
}

// ProportionalSplitStake apportions stake to a split of splitLamports out of a balance of
// totalLamports, rounding down. The product is formed in 128 bits.
func ProportionalSplitStake(stake uint64, splitLamports uint64, totalLamports uint64) (uint64, error) {
	if totalLamports == 0 {
		return 0, InstrErrInsufficientFunds
	}
	if splitLamports > totalLamports {
		return 0, InstrErrInsufficientFunds
	}

	product := safemath.MulU64ToU128(stake, splitLamports)
	quotient := product.Div(wide.Uint128FromUint64(totalLamports))
	if !quotient.IsUint64() {
		return 0, InstrErrArithmeticOverflow
	}
	return quotient.Uint64(), nil
}
