package features

import (
	"fmt"
	"sort"

	"go.firedancer.io/stake/pkg/base58"
)

type featureInfo struct {
	gate           FeatureGate
	activationSlot uint64
}

// Features is the set of active feature gates and the slot each was activated at.
type Features struct {
	enabledFeatures map[[32]byte]featureInfo
}

func NewFeaturesDefault() *Features {
	return &Features{enabledFeatures: make(map[[32]byte]featureInfo)}
}

func (f *Features) EnableFeature(gate FeatureGate, slot uint64) {
	if f.enabledFeatures == nil {
		f.enabledFeatures = make(map[[32]byte]featureInfo)
	}
	f.enabledFeatures[gate.Address] = featureInfo{gate: gate, activationSlot: slot}
}

func (f *Features) DisableFeature(gate FeatureGate) {
	delete(f.enabledFeatures, gate.Address)
}

func (f *Features) IsActive(gate FeatureGate) bool {
	if f == nil {
		return false
	}
	_, ok := f.enabledFeatures[gate.Address]
	return ok
}

func (f *Features) ActivationSlot(gate FeatureGate) (uint64, bool) {
	if f == nil {
		return 0, false
	}
	info, ok := f.enabledFeatures[gate.Address]
	return info.activationSlot, ok
}

func (f *Features) AllEnabled() []string {
	var enabled []string
	for _, info := range f.enabledFeatures {
		enabled = append(enabled, fmt.Sprintf("feature %s (%s) enabled", info.gate.Name, base58.Encode(info.gate.Address[:])))
	}
	sort.Strings(enabled)
	return enabled
}
