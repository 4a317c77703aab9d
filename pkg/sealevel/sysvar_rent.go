package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stake/pkg/base58"
)

const SysvarRentAddrStr = "SysvarRent111111111111111111111111111111111"

var SysvarRentAddr = base58.MustDecodeFromString(SysvarRentAddrStr)

const SysvarRentStructLen = 17

// bytes of account metadata charged for on top of the data length
const AccountStorageOverhead = 128

const (
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

type SysvarRent struct {
	LamportsPerUint8Year uint64
	ExemptionThreshold   float64
	BurnPercent          byte
}

func DefaultRent() SysvarRent {
	return SysvarRent{LamportsPerUint8Year: DefaultLamportsPerByteYear, ExemptionThreshold: DefaultExemptionThreshold, BurnPercent: DefaultBurnPercent}
}

func (sr *SysvarRent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	lamportsPerUint8Year, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LamportsPerUint8Year when decoding SysvarRent: %w", err)
	}
	sr.LamportsPerUint8Year = lamportsPerUint8Year

	exemptionThreshold, err := decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read ExemptionThreshold when decoding SysvarRent: %w", err)
	}
	sr.ExemptionThreshold = exemptionThreshold

	burnPercent, err := decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read BurnPercent when decoding SysvarRent: %w", err)
	}
	sr.BurnPercent = burnPercent

	return
}

func (sr *SysvarRent) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(sr.LamportsPerUint8Year, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize LamportsPerUint8Year for rent sysvar: %w", err)
	}

	err = encoder.WriteFloat64(sr.ExemptionThreshold, bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize ExemptionThreshold for rent sysvar: %w", err)
	}

	err = encoder.WriteByte(sr.BurnPercent)
	if err != nil {
		return fmt.Errorf("failed to serialize BurnPercent for rent sysvar: %w", err)
	}
	return nil
}

func (sr *SysvarRent) Marshal() ([]byte, error) {
	data := new(bytes.Buffer)
	err := sr.MarshalWithEncoder(bin.NewBinEncoder(data))
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

// MinimumBalance is the lamport balance that makes an account of dataLen bytes rent exempt.
func (sr *SysvarRent) MinimumBalance(dataLen uint64) uint64 {
	acctSize := AccountStorageOverhead + dataLen
	return uint64(float64(acctSize*sr.LamportsPerUint8Year) * sr.ExemptionThreshold)
}

func checkAcctForRentSysvar(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) error {
	return checkAcctForSysvar(txCtx, instrCtx, instrAcctIdx, SysvarRentAddr)
}
