package sealevel

import (
	"bytes"
	"errors"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	StakeStateV2Size = 200
)

const (
	StakeStateV2StatusUninitialized = iota
	StakeStateV2StatusInitialized
	StakeStateV2StatusStake
	StakeStateV2StatusRewardsPool
)

const (
	StakeFlagsEmpty                                          = 0
	StakeFlagsMustFullyActivateBeforeDeactivationIsPermitted = 1
)

const stakeStateStatusLen = 4

// encoded sizes of the payload following the status tag
const (
	metaLen       = 120
	stakeLen      = 72
	stakeFlagsLen = 1
)

type Authorized struct {
	Staker     solana.PublicKey
	Withdrawer solana.PublicKey
}

type StakeLockup struct {
	UnixTimestamp int64
	Epoch         uint64
	Custodian     solana.PublicKey
}

type Meta struct {
	RentExemptReserve uint64
	Authorized        Authorized
	Lockup            StakeLockup
}

type Delegation struct {
	VoterPubkey        solana.PublicKey
	StakeLamports      uint64
	ActivationEpoch    uint64
	DeactivationEpoch  uint64
	WarmupCooldownRate float64
}

type Stake struct {
	Delegation      Delegation
	CreditsObserved uint64
}

type StakeFlags struct {
	Bits byte
}

type StakeStateV2Initialized struct {
	Meta Meta
}

type StakeStateV2Stake struct {
	Meta       Meta
	Stake      Stake
	StakeFlags StakeFlags
}

// StakeStateV2 is a tagged union keyed by Status; only the member matching Status is meaningful.
type StakeStateV2 struct {
	Status      uint32
	Initialized StakeStateV2Initialized
	Stake       StakeStateV2Stake
}

func NewUninitializedStakeState() *StakeStateV2 {
	return &StakeStateV2{Status: StakeStateV2StatusUninitialized}
}

func NewInitializedStakeState(meta Meta) *StakeStateV2 {
	return &StakeStateV2{Status: StakeStateV2StatusInitialized, Initialized: StakeStateV2Initialized{Meta: meta}}
}

func NewStakeStakeState(meta Meta, stake Stake, flags StakeFlags) *StakeStateV2 {
	return &StakeStateV2{Status: StakeStateV2StatusStake, Stake: StakeStateV2Stake{Meta: meta, Stake: stake, StakeFlags: flags}}
}

func NewDelegation(voter solana.PublicKey, stake uint64, activationEpoch uint64) Delegation {
	return Delegation{VoterPubkey: voter, StakeLamports: stake, ActivationEpoch: activationEpoch,
		DeactivationEpoch: math.MaxUint64, WarmupCooldownRate: DefaultWarmupCooldownRate}
}

func (delegation *Delegation) IsBootstrap() bool {
	return delegation.ActivationEpoch == math.MaxUint64
}

func (flags StakeFlags) Union(other StakeFlags) StakeFlags {
	return StakeFlags{Bits: flags.Bits | other.Bits}
}

func (flags StakeFlags) Contains(bits byte) bool {
	return flags.Bits&bits == bits
}

// Meta returns the metadata of an Initialized or Stake state.
func (state *StakeStateV2) Meta() (Meta, bool) {
	switch state.Status {
	case StakeStateV2StatusInitialized:
		{
			return state.Initialized.Meta, true
		}
	case StakeStateV2StatusStake:
		{
			return state.Stake.Meta, true
		}
	default:
		{
			return Meta{}, false
		}
	}
}

func (authorized *Authorized) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &authorized.Staker)
	if err != nil {
		return err
	}
	return readPubkey(decoder, &authorized.Withdrawer)
}

func (authorized *Authorized) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(authorized.Staker[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(authorized.Withdrawer[:], false)
}

func (lockup *StakeLockup) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	lockup.UnixTimestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return err
	}

	lockup.Epoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	return readPubkey(decoder, &lockup.Custodian)
}

func (lockup *StakeLockup) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteInt64(lockup.UnixTimestamp, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(lockup.Epoch, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteBytes(lockup.Custodian[:], false)
}

func (meta *Meta) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	meta.RentExemptReserve, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	err = meta.Authorized.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	return meta.Lockup.UnmarshalWithDecoder(decoder)
}

func (meta *Meta) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(meta.RentExemptReserve, bin.LE)
	if err != nil {
		return err
	}

	err = meta.Authorized.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	return meta.Lockup.MarshalWithEncoder(encoder)
}

func (delegation *Delegation) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &delegation.VoterPubkey)
	if err != nil {
		return err
	}

	delegation.StakeLamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegation.ActivationEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegation.DeactivationEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	delegation.WarmupCooldownRate, err = decoder.ReadFloat64(bin.LE)
	return err
}

func (delegation *Delegation) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(delegation.VoterPubkey[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(delegation.StakeLamports, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(delegation.ActivationEpoch, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(delegation.DeactivationEpoch, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteFloat64(delegation.WarmupCooldownRate, bin.LE)
}

func (stake *Stake) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := stake.Delegation.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	stake.CreditsObserved, err = decoder.ReadUint64(bin.LE)
	return err
}

func (stake *Stake) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := stake.Delegation.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	return encoder.WriteUint64(stake.CreditsObserved, bin.LE)
}

func (stakeFlags *StakeFlags) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	stakeFlags.Bits, err = decoder.ReadByte()
	return err
}

func (stakeFlags *StakeFlags) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteByte(stakeFlags.Bits)
}

func (initialized *StakeStateV2Initialized) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return initialized.Meta.UnmarshalWithDecoder(decoder)
}

func (initialized *StakeStateV2Initialized) MarshalWithEncoder(encoder *bin.Encoder) error {
	return initialized.Meta.MarshalWithEncoder(encoder)
}

func (stake *StakeStateV2Stake) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := stake.Meta.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = stake.Stake.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	return stake.StakeFlags.UnmarshalWithDecoder(decoder)
}

func (stake *StakeStateV2Stake) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := stake.Meta.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = stake.Stake.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	return stake.StakeFlags.MarshalWithEncoder(encoder)
}

func (state *StakeStateV2) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	status, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return &DecodeError{Kind: DecodeErrTruncatedPayload, Detail: "stake state status"}
	}
	state.Status = status

	switch status {
	case StakeStateV2StatusUninitialized, StakeStateV2StatusRewardsPool:
		{
			// no payload
		}

	case StakeStateV2StatusInitialized:
		{
			err = state.Initialized.UnmarshalWithDecoder(decoder)
		}

	case StakeStateV2StatusStake:
		{
			err = state.Stake.UnmarshalWithDecoder(decoder)
		}

	default:
		{
			return &DecodeError{Kind: DecodeErrUnknownVariant, Detail: "stake state status"}
		}
	}

	if err != nil {
		return &DecodeError{Kind: DecodeErrTruncatedPayload, Detail: err.Error()}
	}
	return nil
}

func (state *StakeStateV2) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint32(state.Status, bin.LE)
	if err != nil {
		return err
	}

	switch state.Status {
	case StakeStateV2StatusUninitialized, StakeStateV2StatusRewardsPool:
		{
			return nil
		}

	case StakeStateV2StatusInitialized:
		{
			return state.Initialized.MarshalWithEncoder(encoder)
		}

	case StakeStateV2StatusStake:
		{
			return state.Stake.MarshalWithEncoder(encoder)
		}

	default:
		{
			return InstrErrInvalidAccountData
		}
	}
}

// SerializedSize is the number of bytes the encoded state occupies, excluding padding.
func (state *StakeStateV2) SerializedSize() int {
	switch state.Status {
	case StakeStateV2StatusInitialized:
		{
			return stakeStateStatusLen + metaLen
		}
	case StakeStateV2StatusStake:
		{
			return stakeStateStatusLen + metaLen + stakeLen + stakeFlagsLen
		}
	default:
		{
			return stakeStateStatusLen
		}
	}
}

// DecodeStakeState decodes the state stored in a stake account's data.
func DecodeStakeState(data []byte) (*StakeStateV2, error) {
	state := new(StakeStateV2)
	err := state.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Marshal encodes the state without trailing padding.
func (state *StakeStateV2) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	err := state.MarshalWithEncoder(bin.NewBinEncoder(buffer))
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// MarshalAccountData encodes the state into a zero padded stake account buffer.
func (state *StakeStateV2) MarshalAccountData() ([]byte, error) {
	encoded, err := state.Marshal()
	if err != nil {
		return nil, err
	}
	if len(encoded) > StakeStateV2Size {
		return nil, InstrErrAccountDataTooSmall
	}
	data := make([]byte, StakeStateV2Size)
	copy(data, encoded)
	return data, nil
}

func unmarshalStakeState(data []byte) (*StakeStateV2, error) {
	state, err := DecodeStakeState(data)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return nil, InstrErrInvalidAccountData
		}
		return nil, err
	}
	return state, nil
}

func setStakeAccountState(acct *BorrowedAccount, state *StakeStateV2) error {
	encoded, err := state.Marshal()
	if err != nil {
		return err
	}
	return acct.SetState(encoded)
}
