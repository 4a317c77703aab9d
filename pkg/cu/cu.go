package cu

import (
	"errors"

	"go.firedancer.io/stake/pkg/safemath"
	"k8s.io/klog/v2"
)

var ErrComputeExceeded = errors.New("Compute exceeded")

// DefaultComputeBudget is the per-transaction limit used when a caller does not set one.
const DefaultComputeBudget = 200000

type ComputeMeter struct {
	remaining       uint64
	startingBalance uint64
	exceeded        bool
	disable         bool
}

func NewComputeMeter(budget uint64) ComputeMeter {
	return ComputeMeter{remaining: budget, startingBalance: budget}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeBudget)
}

// Consume charges cost units. The meter drains to zero on overrun and reports
// ErrComputeExceeded unless metering was disabled.
func (cm *ComputeMeter) Consume(cost uint64) error {
	cm.exceeded = cm.remaining < cost
	cm.remaining = safemath.SaturatingSubU64(cm.remaining, cost)

	if cm.exceeded {
		if cm.disable {
			klog.V(2).Infof("compute limit exceeded by %d units, metering disabled", cost)
		} else {
			return ErrComputeExceeded
		}
	}

	return nil
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.startingBalance - cm.remaining
}

func (cm *ComputeMeter) Exceeded() bool {
	return cm.exceeded
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.remaining
}

func (cm *ComputeMeter) Disable() {
	cm.disable = true
}
