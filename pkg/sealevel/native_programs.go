package sealevel

import (
	"go.firedancer.io/stake/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

const StakeProgramAddrStr = "Stake11111111111111111111111111111111111111"

var StakeProgramAddr = base58.MustDecodeFromString(StakeProgramAddrStr)

const StakeProgramConfigAddrStr = "StakeConfig11111111111111111111111111111111"

var StakeProgramConfigAddr = base58.MustDecodeFromString(StakeProgramConfigAddrStr)

const VoteProgramAddrStr = "Vote111111111111111111111111111111111111111"

var VoteProgramAddr = base58.MustDecodeFromString(VoteProgramAddrStr)

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

func resolveNativeProgramById(programId [32]byte) (func(ctx *ExecutionCtx) error, error) {
	switch programId {
	case StakeProgramAddr:
		return StakeProgramExecute, nil
	}

	return nil, InstrErrUnsupportedProgramId
}
