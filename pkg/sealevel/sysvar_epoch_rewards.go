package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stake/pkg/base58"
)

const SysvarEpochRewardsAddrStr = "SysvarEpochRewards1111111111111111111111111"

var SysvarEpochRewardsAddr = base58.MustDecodeFromString(SysvarEpochRewardsAddrStr)

const SysvarEpochRewardsStructLen = 81

type SysvarEpochRewards struct {
	DistributionStartingBlockHeight uint64
	NumPartitions                   uint64
	ParentBlockhash                 [32]byte
	TotalPoints                     bin.Uint128
	TotalRewards                    uint64
	DistributedRewards              uint64
	Active                          bool
}

func (ser *SysvarEpochRewards) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ser.DistributionStartingBlockHeight, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read DistributionStartingBlockHeight when decoding SysvarEpochRewards: %w", err)
	}

	ser.NumPartitions, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read NumPartitions when decoding SysvarEpochRewards: %w", err)
	}

	parentBlockhash, err := decoder.ReadBytes(32)
	if err != nil {
		return fmt.Errorf("failed to read ParentBlockhash when decoding SysvarEpochRewards: %w", err)
	}
	copy(ser.ParentBlockhash[:], parentBlockhash)

	ser.TotalPoints, err = decoder.ReadUint128(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read TotalPoints when decoding SysvarEpochRewards: %w", err)
	}

	ser.TotalRewards, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read TotalRewards when decoding SysvarEpochRewards: %w", err)
	}

	ser.DistributedRewards, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read DistributedRewards when decoding SysvarEpochRewards: %w", err)
	}

	ser.Active, err = decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read Active when decoding SysvarEpochRewards: %w", err)
	}
	return
}

func (ser *SysvarEpochRewards) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(ser.DistributionStartingBlockHeight, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize DistributionStartingBlockHeight for EpochRewards sysvar: %w", err)
	}

	err = encoder.WriteUint64(ser.NumPartitions, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize NumPartitions for EpochRewards sysvar: %w", err)
	}

	err = encoder.WriteBytes(ser.ParentBlockhash[:], false)
	if err != nil {
		return fmt.Errorf("failed to serialize ParentBlockhash for EpochRewards sysvar: %w", err)
	}

	err = encoder.WriteUint128(ser.TotalPoints, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize TotalPoints for EpochRewards sysvar: %w", err)
	}

	err = encoder.WriteUint64(ser.TotalRewards, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize TotalRewards for EpochRewards sysvar: %w", err)
	}

	err = encoder.WriteUint64(ser.DistributedRewards, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize DistributedRewards for EpochRewards sysvar: %w", err)
	}

	err = encoder.WriteBool(ser.Active)
	if err != nil {
		return fmt.Errorf("failed to serialize Active for EpochRewards sysvar: %w", err)
	}
	return nil
}

func (ser *SysvarEpochRewards) Marshal() ([]byte, error) {
	data := new(bytes.Buffer)
	err := ser.MarshalWithEncoder(bin.NewBinEncoder(data))
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
