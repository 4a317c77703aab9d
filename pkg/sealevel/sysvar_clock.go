package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stake/pkg/base58"
)

const SysvarClockAddrStr = "SysvarC1ock11111111111111111111111111111111"

var SysvarClockAddr = base58.MustDecodeFromString(SysvarClockAddrStr)

const SysvarClockStructLen = 40

type SysvarClock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func (sc *SysvarClock) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	slot, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Slot when decoding SysvarClock: %w", err)
	}
	sc.Slot = slot

	epochStartTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read EpochStartTimestamp when decoding SysvarClock: %w", err)
	}
	sc.EpochStartTimestamp = epochStartTimestamp

	epoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Epoch when decoding SysvarClock: %w", err)
	}
	sc.Epoch = epoch

	leaderScheduleEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LeaderScheduleEpoch when decoding SysvarClock: %w", err)
	}
	sc.LeaderScheduleEpoch = leaderScheduleEpoch

	unixTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read UnixTimestamp when decoding SysvarClock: %w", err)
	}
	sc.UnixTimestamp = unixTimestamp
	return
}

func (sc *SysvarClock) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(sc.Slot, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize Slot for clock sysvar: %w", err)
	}

	err = encoder.WriteInt64(sc.EpochStartTimestamp, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize EpochStartTimestamp for clock sysvar: %w", err)
	}

	err = encoder.WriteUint64(sc.Epoch, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize Epoch for clock sysvar: %w", err)
	}

	err = encoder.WriteUint64(sc.LeaderScheduleEpoch, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize LeaderScheduleEpoch for clock sysvar: %w", err)
	}

	err = encoder.WriteInt64(sc.UnixTimestamp, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize UnixTimestamp for clock sysvar: %w", err)
	}
	return nil
}

func (sc *SysvarClock) Marshal() ([]byte, error) {
	data := new(bytes.Buffer)
	err := sc.MarshalWithEncoder(bin.NewBinEncoder(data))
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

func checkAcctForClockSysvar(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) error {
	return checkAcctForSysvar(txCtx, instrCtx, instrAcctIdx, SysvarClockAddr)
}
