package sealevel

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// PacketDataSize bounds how many instruction bytes the decoder may consume.
const PacketDataSize = 1232

const (
	StakeProgramInstrTypeInitialize = iota
	StakeProgramInstrTypeAuthorize
	StakeProgramInstrTypeDelegateStake
	StakeProgramInstrTypeSplit
	StakeProgramInstrTypeWithdraw
	StakeProgramInstrTypeDeactivate
	StakeProgramInstrTypeSetLockup
	StakeProgramInstrTypeMerge
	StakeProgramInstrTypeAuthorizeWithSeed
	StakeProgramInstrTypeInitializeChecked
	StakeProgramInstrTypeAuthorizeChecked
	StakeProgramInstrTypeAuthorizeCheckedWithSeed
	StakeProgramInstrTypeSetLockupChecked
	StakeProgramInstrTypeGetMinimumDelegation
	StakeProgramInstrTypeDeactivateDelinquent
	StakeProgramInstrTypeRedelegate
	StakeProgramInstrTypeMoveStake
	StakeProgramInstrTypeMoveLamports
)

var stakeInstrNames = [...]string{
	"Initialize", "Authorize", "DelegateStake", "Split", "Withdraw", "Deactivate", "SetLockup", "Merge",
	"AuthorizeWithSeed", "InitializeChecked", "AuthorizeChecked", "AuthorizeCheckedWithSeed",
	"SetLockupChecked", "GetMinimumDelegation", "DeactivateDelinquent", "Redelegate", "MoveStake", "MoveLamports",
}

func StakeInstrName(instrType uint32) string {
	if instrType >= uint32(len(stakeInstrNames)) {
		return fmt.Sprintf("Unknown(%d)", instrType)
	}
	return stakeInstrNames[instrType]
}

const (
	StakeAuthorizeStaker = iota
	StakeAuthorizeWithdrawer
)

type DecodeErrorKind int

const (
	DecodeErrUnknownVariant DecodeErrorKind = iota
	DecodeErrTruncatedPayload
	DecodeErrInvalidEnumValue
	DecodeErrInvalidUtf8
)

func (kind DecodeErrorKind) String() string {
	switch kind {
	case DecodeErrUnknownVariant:
		return "unknown variant"
	case DecodeErrTruncatedPayload:
		return "truncated payload"
	case DecodeErrInvalidEnumValue:
		return "invalid enum value"
	case DecodeErrInvalidUtf8:
		return "invalid utf-8"
	default:
		return "unknown decode error"
	}
}

// DecodeError reports malformed instruction or state bytes. It unwraps to
// InstrErrInvalidInstructionData.
type DecodeError struct {
	Kind   DecodeErrorKind
	Detail string
}

var (
	ErrDecodeUnknownVariant   = &DecodeError{Kind: DecodeErrUnknownVariant}
	ErrDecodeTruncatedPayload = &DecodeError{Kind: DecodeErrTruncatedPayload}
	ErrDecodeInvalidEnumValue = &DecodeError{Kind: DecodeErrInvalidEnumValue}
	ErrDecodeInvalidUtf8      = &DecodeError{Kind: DecodeErrInvalidUtf8}
)

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("decode error: %s", e.Kind)
	}
	return fmt.Sprintf("decode error: %s: %s", e.Kind, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return InstrErrInvalidInstructionData
}

func (e *DecodeError) Is(target error) bool {
	other, ok := target.(*DecodeError)
	return ok && other.Kind == e.Kind
}

func truncated(field string, err error) error {
	return &DecodeError{Kind: DecodeErrTruncatedPayload, Detail: fmt.Sprintf("%s: %s", field, err)}
}

// StakeInstruction is one decoded stake program instruction.
type StakeInstruction interface {
	InstrType() uint32
	MarshalWithEncoder(encoder *bin.Encoder) error
}

type StakeInstrInitialize struct {
	Authorized Authorized
	Lockup     StakeLockup
}

type StakeInstrAuthorize struct {
	Pubkey         solana.PublicKey
	StakeAuthorize uint32
}

type StakeInstrDelegateStake struct{}

type StakeInstrSplit struct {
	Lamports uint64
}

type StakeInstrWithdraw struct {
	Lamports uint64
}

type StakeInstrDeactivate struct{}

type StakeInstrSetLockup struct {
	UnixTimestamp *int64
	Epoch         *uint64
	Custodian     *solana.PublicKey
}

type StakeInstrMerge struct{}

type StakeInstrAuthorizeWithSeed struct {
	NewAuthorizedPubkey solana.PublicKey
	StakeAuthorize      uint32
	AuthoritySeed       string
	AuthorityOwner      solana.PublicKey
}

type StakeInstrInitializeChecked struct{}

type StakeInstrAuthorizeChecked struct {
	StakeAuthorize uint32
}

type StakeInstrAuthorizeCheckedWithSeed struct {
	StakeAuthorize uint32
	AuthoritySeed  string
	AuthorityOwner solana.PublicKey
}

type StakeInstrSetLockupChecked struct {
	UnixTimestamp *int64
	Epoch         *uint64
}

type StakeInstrGetMinimumDelegation struct{}

type StakeInstrDeactivateDelinquent struct{}

type StakeInstrRedelegate struct{}

type StakeInstrMoveStake struct {
	Lamports uint64
}

type StakeInstrMoveLamports struct {
	Lamports uint64
}

func (StakeInstrInitialize) InstrType() uint32 { return StakeProgramInstrTypeInitialize }
func (StakeInstrAuthorize) InstrType() uint32  { return StakeProgramInstrTypeAuthorize }
func (StakeInstrDelegateStake) InstrType() uint32 {
	return StakeProgramInstrTypeDelegateStake
}
func (StakeInstrSplit) InstrType() uint32      { return StakeProgramInstrTypeSplit }
func (StakeInstrWithdraw) InstrType() uint32   { return StakeProgramInstrTypeWithdraw }
func (StakeInstrDeactivate) InstrType() uint32 { return StakeProgramInstrTypeDeactivate }
func (StakeInstrSetLockup) InstrType() uint32  { return StakeProgramInstrTypeSetLockup }
func (StakeInstrMerge) InstrType() uint32      { return StakeProgramInstrTypeMerge }
func (StakeInstrAuthorizeWithSeed) InstrType() uint32 {
	return StakeProgramInstrTypeAuthorizeWithSeed
}
func (StakeInstrInitializeChecked) InstrType() uint32 {
	return StakeProgramInstrTypeInitializeChecked
}
func (StakeInstrAuthorizeChecked) InstrType() uint32 {
	return StakeProgramInstrTypeAuthorizeChecked
}
func (StakeInstrAuthorizeCheckedWithSeed) InstrType() uint32 {
	return StakeProgramInstrTypeAuthorizeCheckedWithSeed
}
func (StakeInstrSetLockupChecked) InstrType() uint32 {
	return StakeProgramInstrTypeSetLockupChecked
}
func (StakeInstrGetMinimumDelegation) InstrType() uint32 {
	return StakeProgramInstrTypeGetMinimumDelegation
}
func (StakeInstrDeactivateDelinquent) InstrType() uint32 {
	return StakeProgramInstrTypeDeactivateDelinquent
}
func (StakeInstrRedelegate) InstrType() uint32   { return StakeProgramInstrTypeRedelegate }
func (StakeInstrMoveStake) InstrType() uint32    { return StakeProgramInstrTypeMoveStake }
func (StakeInstrMoveLamports) InstrType() uint32 { return StakeProgramInstrTypeMoveLamports }

func readStakeAuthorize(decoder *bin.Decoder) (uint32, error) {
	stakeAuthorize, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return 0, truncated("StakeAuthorize", err)
	}
	if stakeAuthorize != StakeAuthorizeStaker && stakeAuthorize != StakeAuthorizeWithdrawer {
		return 0, &DecodeError{Kind: DecodeErrInvalidEnumValue, Detail: fmt.Sprintf("StakeAuthorize %d", stakeAuthorize)}
	}
	return stakeAuthorize, nil
}

func readOptionTag(decoder *bin.Decoder, field string) (bool, error) {
	tag, err := decoder.ReadByte()
	if err != nil {
		return false, truncated(field, err)
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &DecodeError{Kind: DecodeErrInvalidEnumValue, Detail: fmt.Sprintf("%s option tag %d", field, tag)}
	}
}

func readSeed(decoder *bin.Decoder) (string, error) {
	seedLen, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return "", truncated("AuthoritySeed", err)
	}
	if seedLen > uint64(decoder.Remaining()) {
		return "", &DecodeError{Kind: DecodeErrTruncatedPayload, Detail: fmt.Sprintf("AuthoritySeed length %d", seedLen)}
	}
	seed, err := decoder.ReadBytes(int(seedLen))
	if err != nil {
		return "", truncated("AuthoritySeed", err)
	}
	if !utf8.Valid(seed) {
		return "", ErrDecodeInvalidUtf8
	}
	return string(seed), nil
}

func readOptionalLockupFields(decoder *bin.Decoder) (*int64, *uint64, error) {
	var unixTimestamp *int64
	var epoch *uint64

	present, err := readOptionTag(decoder, "UnixTimestamp")
	if err != nil {
		return nil, nil, err
	}
	if present {
		ts, err := decoder.ReadInt64(bin.LE)
		if err != nil {
			return nil, nil, truncated("UnixTimestamp", err)
		}
		unixTimestamp = &ts
	}

	present, err = readOptionTag(decoder, "Epoch")
	if err != nil {
		return nil, nil, err
	}
	if present {
		e, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return nil, nil, truncated("Epoch", err)
		}
		epoch = &e
	}

	return unixTimestamp, epoch, nil
}

func (initialize *StakeInstrInitialize) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := initialize.Authorized.UnmarshalWithDecoder(decoder)
	if err != nil {
		return truncated("Authorized", err)
	}

	err = initialize.Lockup.UnmarshalWithDecoder(decoder)
	if err != nil {
		return truncated("Lockup", err)
	}
	return nil
}

func (auth *StakeInstrAuthorize) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &auth.Pubkey)
	if err != nil {
		return truncated("Pubkey", err)
	}

	auth.StakeAuthorize, err = readStakeAuthorize(decoder)
	return err
}

func (lockup *StakeInstrSetLockup) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	lockup.UnixTimestamp, lockup.Epoch, err = readOptionalLockupFields(decoder)
	if err != nil {
		return err
	}

	present, err := readOptionTag(decoder, "Custodian")
	if err != nil {
		return err
	}
	if present {
		var custodian solana.PublicKey
		err = readPubkey(decoder, &custodian)
		if err != nil {
			return truncated("Custodian", err)
		}
		lockup.Custodian = &custodian
	}
	return nil
}

func (authWithSeed *StakeInstrAuthorizeWithSeed) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &authWithSeed.NewAuthorizedPubkey)
	if err != nil {
		return truncated("NewAuthorizedPubkey", err)
	}

	authWithSeed.StakeAuthorize, err = readStakeAuthorize(decoder)
	if err != nil {
		return err
	}

	authWithSeed.AuthoritySeed, err = readSeed(decoder)
	if err != nil {
		return err
	}

	err = readPubkey(decoder, &authWithSeed.AuthorityOwner)
	if err != nil {
		return truncated("AuthorityOwner", err)
	}
	return nil
}

func (authCheckedWithSeed *StakeInstrAuthorizeCheckedWithSeed) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	authCheckedWithSeed.StakeAuthorize, err = readStakeAuthorize(decoder)
	if err != nil {
		return err
	}

	authCheckedWithSeed.AuthoritySeed, err = readSeed(decoder)
	if err != nil {
		return err
	}

	err = readPubkey(decoder, &authCheckedWithSeed.AuthorityOwner)
	if err != nil {
		return truncated("AuthorityOwner", err)
	}
	return nil
}

func (lockup *StakeInstrSetLockupChecked) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	lockup.UnixTimestamp, lockup.Epoch, err = readOptionalLockupFields(decoder)
	return err
}

func readLamports(decoder *bin.Decoder) (uint64, error) {
	lamports, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return 0, truncated("Lamports", err)
	}
	return lamports, nil
}

// DecodeStakeInstruction parses instruction data. Trailing bytes after the variant's
// payload are ignored. Only the first PacketDataSize bytes may be consumed, so a field
// that would read past that limit is a TruncatedPayload.
func DecodeStakeInstruction(data []byte) (StakeInstruction, error) {
	if len(data) > PacketDataSize {
		data = data[:PacketDataSize]
	}

	decoder := bin.NewBinDecoder(data)
	instrType, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return nil, truncated("instruction discriminant", err)
	}

	switch instrType {
	case StakeProgramInstrTypeInitialize:
		{
			var initialize StakeInstrInitialize
			err = initialize.UnmarshalWithDecoder(decoder)
			return initialize, err
		}
	case StakeProgramInstrTypeAuthorize:
		{
			var authorize StakeInstrAuthorize
			err = authorize.UnmarshalWithDecoder(decoder)
			return authorize, err
		}
	case StakeProgramInstrTypeDelegateStake:
		{
			return StakeInstrDelegateStake{}, nil
		}
	case StakeProgramInstrTypeSplit:
		{
			lamports, err := readLamports(decoder)
			return StakeInstrSplit{Lamports: lamports}, err
		}
	case StakeProgramInstrTypeWithdraw:
		{
			lamports, err := readLamports(decoder)
			return StakeInstrWithdraw{Lamports: lamports}, err
		}
	case StakeProgramInstrTypeDeactivate:
		{
			return StakeInstrDeactivate{}, nil
		}
	case StakeProgramInstrTypeSetLockup:
		{
			var setLockup StakeInstrSetLockup
			err = setLockup.UnmarshalWithDecoder(decoder)
			return setLockup, err
		}
	case StakeProgramInstrTypeMerge:
		{
			return StakeInstrMerge{}, nil
		}
	case StakeProgramInstrTypeAuthorizeWithSeed:
		{
			var authorizeWithSeed StakeInstrAuthorizeWithSeed
			err = authorizeWithSeed.UnmarshalWithDecoder(decoder)
			return authorizeWithSeed, err
		}
	case StakeProgramInstrTypeInitializeChecked:
		{
			return StakeInstrInitializeChecked{}, nil
		}
	case StakeProgramInstrTypeAuthorizeChecked:
		{
			stakeAuthorize, err := readStakeAuthorize(decoder)
			return StakeInstrAuthorizeChecked{StakeAuthorize: stakeAuthorize}, err
		}
	case StakeProgramInstrTypeAuthorizeCheckedWithSeed:
		{
			var authorizeCheckedWithSeed StakeInstrAuthorizeCheckedWithSeed
			err = authorizeCheckedWithSeed.UnmarshalWithDecoder(decoder)
			return authorizeCheckedWithSeed, err
		}
	case StakeProgramInstrTypeSetLockupChecked:
		{
			var setLockupChecked StakeInstrSetLockupChecked
			err = setLockupChecked.UnmarshalWithDecoder(decoder)
			return setLockupChecked, err
		}
	case StakeProgramInstrTypeGetMinimumDelegation:
		{
			return StakeInstrGetMinimumDelegation{}, nil
		}
	case StakeProgramInstrTypeDeactivateDelinquent:
		{
			return StakeInstrDeactivateDelinquent{}, nil
		}
	case StakeProgramInstrTypeRedelegate:
		{
			return StakeInstrRedelegate{}, nil
		}
	case StakeProgramInstrTypeMoveStake:
		{
			lamports, err := readLamports(decoder)
			return StakeInstrMoveStake{Lamports: lamports}, err
		}
	case StakeProgramInstrTypeMoveLamports:
		{
			lamports, err := readLamports(decoder)
			return StakeInstrMoveLamports{Lamports: lamports}, err
		}
	default:
		{
			return nil, &DecodeError{Kind: DecodeErrUnknownVariant, Detail: fmt.Sprintf("discriminant %d", instrType)}
		}
	}
}

func writeOptionalInt64(encoder *bin.Encoder, v *int64) error {
	err := encoder.WriteBool(v != nil)
	if err != nil || v == nil {
		return err
	}
	return encoder.WriteInt64(*v, bin.LE)
}

func (initialize StakeInstrInitialize) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := initialize.Authorized.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	return initialize.Lockup.MarshalWithEncoder(encoder)
}

func (auth StakeInstrAuthorize) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(auth.Pubkey[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteUint32(auth.StakeAuthorize, bin.LE)
}

func (StakeInstrDelegateStake) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (split StakeInstrSplit) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(split.Lamports, bin.LE)
}

func (withdraw StakeInstrWithdraw) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(withdraw.Lamports, bin.LE)
}

func (StakeInstrDeactivate) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (lockup StakeInstrSetLockup) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := writeOptionalInt64(encoder, lockup.UnixTimestamp)
	if err != nil {
		return err
	}

	err = writeOptionalSlot(encoder, lockup.Epoch)
	if err != nil {
		return err
	}

	err = encoder.WriteBool(lockup.Custodian != nil)
	if err != nil || lockup.Custodian == nil {
		return err
	}
	return encoder.WriteBytes(lockup.Custodian[:], false)
}

func (StakeInstrMerge) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (authWithSeed StakeInstrAuthorizeWithSeed) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(authWithSeed.NewAuthorizedPubkey[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint32(authWithSeed.StakeAuthorize, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteRustString(authWithSeed.AuthoritySeed)
	if err != nil {
		return err
	}

	return encoder.WriteBytes(authWithSeed.AuthorityOwner[:], false)
}

func (StakeInstrInitializeChecked) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (authChecked StakeInstrAuthorizeChecked) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint32(authChecked.StakeAuthorize, bin.LE)
}

func (authCheckedWithSeed StakeInstrAuthorizeCheckedWithSeed) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint32(authCheckedWithSeed.StakeAuthorize, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteRustString(authCheckedWithSeed.AuthoritySeed)
	if err != nil {
		return err
	}

	return encoder.WriteBytes(authCheckedWithSeed.AuthorityOwner[:], false)
}

func (lockup StakeInstrSetLockupChecked) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := writeOptionalInt64(encoder, lockup.UnixTimestamp)
	if err != nil {
		return err
	}
	return writeOptionalSlot(encoder, lockup.Epoch)
}

func (StakeInstrGetMinimumDelegation) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (StakeInstrDeactivateDelinquent) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (StakeInstrRedelegate) MarshalWithEncoder(encoder *bin.Encoder) error { return nil }

func (moveStake StakeInstrMoveStake) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(moveStake.Lamports, bin.LE)
}

func (moveLamports StakeInstrMoveLamports) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(moveLamports.Lamports, bin.LE)
}

// EncodeStakeInstruction serializes the discriminant followed by the payload.
func EncodeStakeInstruction(instr StakeInstruction) ([]byte, error) {
	buffer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buffer)

	err := encoder.WriteUint32(instr.InstrType(), bin.LE)
	if err != nil {
		return nil, err
	}

	err = instr.MarshalWithEncoder(encoder)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
