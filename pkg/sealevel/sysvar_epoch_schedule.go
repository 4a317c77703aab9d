package sealevel

import (
	"bytes"
	"fmt"
	"math/bits"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stake/pkg/base58"
)

const SysvarEpochScheduleAddrStr = "SysvarEpochSchedu1e111111111111111111111111"

var SysvarEpochScheduleAddr = base58.MustDecodeFromString(SysvarEpochScheduleAddrStr)

const SysvarEpochScheduleStructLen = 33

const (
	MinimumSlotsPerEpoch               = 32
	DefaultSlotsPerEpoch               = 432000
	DefaultLeaderScheduleSlotOffset    = DefaultSlotsPerEpoch
	minimumSlotsPerEpochTrailingZeroes = 5
)

type SysvarEpochSchedule struct {
	SlotsPerEpoch            uint64
	LeaderScheduleSlotOffset uint64
	Warmup                   bool
	FirstNormalEpoch         uint64
	FirstNormalSlot          uint64
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}

// NewEpochSchedule derives the warmup boundary the same way the cluster does: warmup
// epochs double in length from MinimumSlotsPerEpoch until they reach slotsPerEpoch.
func NewEpochSchedule(slotsPerEpoch uint64, leaderScheduleSlotOffset uint64, warmup bool) SysvarEpochSchedule {
	schedule := SysvarEpochSchedule{SlotsPerEpoch: slotsPerEpoch, LeaderScheduleSlotOffset: leaderScheduleSlotOffset, Warmup: warmup}
	if warmup {
		pow2 := nextPowerOfTwo(slotsPerEpoch)
		log2SlotsPerEpoch := bits.TrailingZeros64(pow2) - minimumSlotsPerEpochTrailingZeroes
		if log2SlotsPerEpoch < 0 {
			log2SlotsPerEpoch = 0
		}
		schedule.FirstNormalEpoch = uint64(log2SlotsPerEpoch)
		if pow2 > MinimumSlotsPerEpoch {
			schedule.FirstNormalSlot = pow2 - MinimumSlotsPerEpoch
		}
	}
	return schedule
}

func DefaultEpochSchedule() SysvarEpochSchedule {
	return NewEpochSchedule(DefaultSlotsPerEpoch, DefaultLeaderScheduleSlotOffset, true)
}

func (ses *SysvarEpochSchedule) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	slotsPerEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read SlotsPerEpoch when decoding SysvarEpochSchedule: %w", err)
	}
	ses.SlotsPerEpoch = slotsPerEpoch

	leaderScheduleSlotOffset, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LeaderScheduleSlotOffset when decoding SysvarEpochSchedule: %w", err)
	}
	ses.LeaderScheduleSlotOffset = leaderScheduleSlotOffset

	warmup, err := decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read Warmup when decoding SysvarEpochSchedule: %w", err)
	}
	ses.Warmup = warmup

	firstNormalEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read FirstNormalEpoch when decoding SysvarEpochSchedule: %w", err)
	}
	ses.FirstNormalEpoch = firstNormalEpoch

	firstNormalSlot, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read FirstNormalSlot when decoding SysvarEpochSchedule: %w", err)
	}
	ses.FirstNormalSlot = firstNormalSlot

	return
}

func (ses *SysvarEpochSchedule) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(ses.SlotsPerEpoch, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize SlotsPerEpoch for EpochSchedule sysvar: %w", err)
	}

	err = encoder.WriteUint64(ses.LeaderScheduleSlotOffset, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize LeaderScheduleSlotOffset for EpochSchedule sysvar: %w", err)
	}

	err = encoder.WriteBool(ses.Warmup)
	if err != nil {
		return fmt.Errorf("failed to serialize Warmup for EpochSchedule sysvar: %w", err)
	}

	err = encoder.WriteUint64(ses.FirstNormalEpoch, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize FirstNormalEpoch for EpochSchedule sysvar: %w", err)
	}

	err = encoder.WriteUint64(ses.FirstNormalSlot, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize FirstNormalSlot for EpochSchedule sysvar: %w", err)
	}
	return nil
}

func (ses *SysvarEpochSchedule) Marshal() ([]byte, error) {
	data := new(bytes.Buffer)
	err := ses.MarshalWithEncoder(bin.NewBinEncoder(data))
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

func (ses *SysvarEpochSchedule) GetEpochAndSlotIndex(slot uint64) (uint64, uint64) {
	if slot < ses.FirstNormalSlot {
		epoch := uint64(bits.Len64(slot+MinimumSlotsPerEpoch)) - minimumSlotsPerEpochTrailingZeroes - 1
		epochLen := uint64(1) << (epoch + minimumSlotsPerEpochTrailingZeroes)
		return epoch, slot - (epochLen - MinimumSlotsPerEpoch)
	}

	if ses.SlotsPerEpoch == 0 {
		return ses.FirstNormalEpoch, 0
	}

	normalSlotIndex := slot - ses.FirstNormalSlot
	normalEpochIndex := normalSlotIndex / ses.SlotsPerEpoch
	return ses.FirstNormalEpoch + normalEpochIndex, normalSlotIndex % ses.SlotsPerEpoch
}

func (ses *SysvarEpochSchedule) GetEpoch(slot uint64) uint64 {
	epoch, _ := ses.GetEpochAndSlotIndex(slot)
	return epoch
}
