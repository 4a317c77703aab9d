package sealevel

import (
	"bytes"
	"fmt"

	"github.com/edwingeng/deque/v2"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/btree"
)

const (
	VoteStateVersionV0_23_5 = iota
	VoteStateVersionV1_14_11
	VoteStateVersionCurrent
)

const (
	VoteStateV2Size = 3731
	VoteStateV3Size = 3762
)

const priorVotersMax = 32

type VoteLockout struct {
	Slot              uint64
	ConfirmationCount uint32
}

type LandedVote struct {
	Latency byte
	Lockout VoteLockout
}

type PriorVoter struct {
	Pubkey     solana.PublicKey
	EpochStart uint64
	EpochEnd   uint64
}

// legacy entries carry the slot at which the voter was replaced
type PriorVoter0_23_5 struct {
	PriorVoter
	Slot uint64
}

type PriorVoters0_23_5 struct {
	Buf   [priorVotersMax]PriorVoter0_23_5
	Index uint64
}

type PriorVoters struct {
	Buf     [priorVotersMax]PriorVoter
	Index   uint64
	IsEmpty bool
}

type EpochCredits struct {
	Epoch       uint64
	Credits     uint64
	PrevCredits uint64
}

type BlockTimestamp struct {
	Slot      uint64
	Timestamp int64
}

type AuthorizedVoter struct {
	Epoch  uint64
	Pubkey solana.PublicKey
}

type AuthorizedVoters struct {
	AuthorizedVoters *btree.BTreeG[AuthorizedVoter]
}

func NewAuthorizedVoters() AuthorizedVoters {
	return AuthorizedVoters{AuthorizedVoters: btree.NewBTreeG(func(a, b AuthorizedVoter) bool {
		return a.Epoch < b.Epoch
	})}
}

type VoteState0_23_5 struct {
	NodePubkey           solana.PublicKey
	AuthorizedVoter      solana.PublicKey
	AuthorizedVoterEpoch uint64
	PriorVoters          PriorVoters0_23_5
	AuthorizedWithdrawer solana.PublicKey
	Commission           byte
	Votes                *deque.Deque[VoteLockout]
	RootSlot             *uint64
	EpochCredits         []EpochCredits
	LastTimestamp        BlockTimestamp
}

type VoteState1_14_11 struct {
	NodePubkey           solana.PublicKey
	AuthorizedWithdrawer solana.PublicKey
	Commission           byte
	Votes                *deque.Deque[VoteLockout]
	RootSlot             *uint64
	AuthorizedVoters     AuthorizedVoters
	PriorVoters          PriorVoters
	EpochCredits         []EpochCredits
	LastTimestamp        BlockTimestamp
}

type VoteStateCurrent struct {
	NodePubkey           solana.PublicKey
	AuthorizedWithdrawer solana.PublicKey
	Commission           byte
	Votes                *deque.Deque[LandedVote]
	RootSlot             *uint64
	AuthorizedVoters     AuthorizedVoters
	PriorVoters          PriorVoters
	EpochCredits         []EpochCredits
	LastTimestamp        BlockTimestamp
}

type VoteStateVersions struct {
	Type     uint32
	V0_23_5  VoteState0_23_5
	V1_14_11 VoteState1_14_11
	Current  VoteStateCurrent
}

func readPubkey(decoder *bin.Decoder, dst *solana.PublicKey) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(dst[:], pk)
	return nil
}

func readOptionalSlot(decoder *bin.Decoder) (*uint64, error) {
	hasSlot, err := decoder.ReadBool()
	if err != nil {
		return nil, err
	}
	if !hasSlot {
		return nil, nil
	}
	slot, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func writeOptionalSlot(encoder *bin.Encoder, slot *uint64) error {
	err := encoder.WriteBool(slot != nil)
	if err != nil || slot == nil {
		return err
	}
	return encoder.WriteUint64(*slot, bin.LE)
}

func (lockout *VoteLockout) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	lockout.Slot, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	lockout.ConfirmationCount, err = decoder.ReadUint32(bin.LE)
	return err
}

func (lockout VoteLockout) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(lockout.Slot, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteUint32(lockout.ConfirmationCount, bin.LE)
}

func (landedVote *LandedVote) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	landedVote.Latency, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	return landedVote.Lockout.UnmarshalWithDecoder(decoder)
}

func (landedVote LandedVote) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(landedVote.Latency)
	if err != nil {
		return err
	}
	return landedVote.Lockout.MarshalWithEncoder(encoder)
}

func (priorVoter *PriorVoter) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &priorVoter.Pubkey)
	if err != nil {
		return err
	}

	priorVoter.EpochStart, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	priorVoter.EpochEnd, err = decoder.ReadUint64(bin.LE)
	return err
}

func (priorVoter *PriorVoter) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(priorVoter.Pubkey[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(priorVoter.EpochStart, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(priorVoter.EpochEnd, bin.LE)
}

func (priorVoters *PriorVoters0_23_5) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	for count := 0; count < priorVotersMax; count++ {
		entry := &priorVoters.Buf[count]
		err = entry.PriorVoter.UnmarshalWithDecoder(decoder)
		if err != nil {
			return err
		}
		entry.Slot, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
	}

	priorVoters.Index, err = decoder.ReadUint64(bin.LE)
	return err
}

func (priorVoters *PriorVoters0_23_5) MarshalWithEncoder(encoder *bin.Encoder) error {
	var err error
	for count := 0; count < priorVotersMax; count++ {
		entry := &priorVoters.Buf[count]
		err = entry.PriorVoter.MarshalWithEncoder(encoder)
		if err != nil {
			return err
		}
		err = encoder.WriteUint64(entry.Slot, bin.LE)
		if err != nil {
			return err
		}
	}

	return encoder.WriteUint64(priorVoters.Index, bin.LE)
}

func (priorVoters *PriorVoters) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	for count := 0; count < priorVotersMax; count++ {
		err = priorVoters.Buf[count].UnmarshalWithDecoder(decoder)
		if err != nil {
			return err
		}
	}

	priorVoters.Index, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	priorVoters.IsEmpty, err = decoder.ReadBool()
	return err
}

func (priorVoters *PriorVoters) MarshalWithEncoder(encoder *bin.Encoder) error {
	var err error
	for count := 0; count < priorVotersMax; count++ {
		err = priorVoters.Buf[count].MarshalWithEncoder(encoder)
		if err != nil {
			return err
		}
	}

	err = encoder.WriteUint64(priorVoters.Index, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteBool(priorVoters.IsEmpty)
}

func (epochCredits *EpochCredits) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	epochCredits.Epoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	epochCredits.Credits, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	epochCredits.PrevCredits, err = decoder.ReadUint64(bin.LE)
	return err
}

func (epochCredits *EpochCredits) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(epochCredits.Epoch, bin.LE)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(epochCredits.Credits, bin.LE)
	if err != nil {
		return err
	}

	return encoder.WriteUint64(epochCredits.PrevCredits, bin.LE)
}

func unmarshalEpochCreditsList(decoder *bin.Decoder) ([]EpochCredits, error) {
	numEpochCredits, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}

	// each entry is 24 bytes; a length prefix beyond the remaining input is malformed
	if numEpochCredits > uint64(decoder.Remaining())/24 {
		return nil, fmt.Errorf("epoch credits length %d exceeds remaining input", numEpochCredits)
	}

	list := make([]EpochCredits, 0, numEpochCredits)
	for count := uint64(0); count < numEpochCredits; count++ {
		var epochCredits EpochCredits
		err = epochCredits.UnmarshalWithDecoder(decoder)
		if err != nil {
			return nil, err
		}
		list = append(list, epochCredits)
	}
	return list, nil
}

func marshalEpochCreditsList(encoder *bin.Encoder, list []EpochCredits) error {
	err := encoder.WriteUint64(uint64(len(list)), bin.LE)
	if err != nil {
		return err
	}
	for idx := range list {
		err = list[idx].MarshalWithEncoder(encoder)
		if err != nil {
			return err
		}
	}
	return nil
}

func (blockTimestamp *BlockTimestamp) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	blockTimestamp.Slot, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	blockTimestamp.Timestamp, err = decoder.ReadInt64(bin.LE)
	return err
}

func (blockTimestamp *BlockTimestamp) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(blockTimestamp.Slot, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteInt64(blockTimestamp.Timestamp, bin.LE)
}

func (authVoter *AuthorizedVoter) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	authVoter.Epoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	return readPubkey(decoder, &authVoter.Pubkey)
}

func (authVoter *AuthorizedVoter) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(authVoter.Epoch, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(authVoter.Pubkey[:], false)
}

func (authVoters *AuthorizedVoters) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	numAuthVoters, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	*authVoters = NewAuthorizedVoters()
	for count := uint64(0); count < numAuthVoters; count++ {
		var authVoter AuthorizedVoter
		err = authVoter.UnmarshalWithDecoder(decoder)
		if err != nil {
			return err
		}
		authVoters.AuthorizedVoters.Set(authVoter)
	}
	return nil
}

func (authVoters *AuthorizedVoters) Len() int {
	if authVoters.AuthorizedVoters == nil {
		return 0
	}
	return authVoters.AuthorizedVoters.Len()
}

func (authVoters *AuthorizedVoters) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(uint64(authVoters.Len()), bin.LE)
	if err != nil || authVoters.Len() == 0 {
		return err
	}

	iter := authVoters.AuthorizedVoters.Iter()
	defer iter.Release()
	for ok := iter.First(); ok; ok = iter.Next() {
		authVoter := iter.Item()
		err = authVoter.MarshalWithEncoder(encoder)
		if err != nil {
			return err
		}
	}
	return nil
}

func unmarshalLockouts(decoder *bin.Decoder) (*deque.Deque[VoteLockout], error) {
	numLockouts, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}

	votes := deque.NewDeque[VoteLockout]()
	for count := uint64(0); count < numLockouts; count++ {
		var lockout VoteLockout
		err = lockout.UnmarshalWithDecoder(decoder)
		if err != nil {
			return nil, err
		}
		votes.PushBack(lockout)
	}
	return votes, nil
}

func marshalLockouts(encoder *bin.Encoder, votes *deque.Deque[VoteLockout]) error {
	if votes == nil {
		return encoder.WriteUint64(0, bin.LE)
	}

	err := encoder.WriteUint64(uint64(votes.Len()), bin.LE)
	if err != nil {
		return err
	}

	votes.Range(func(i int, lockout VoteLockout) bool {
		err = lockout.MarshalWithEncoder(encoder)
		return err == nil
	})
	return err
}

func (voteState *VoteState0_23_5) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &voteState.NodePubkey)
	if err != nil {
		return err
	}

	err = readPubkey(decoder, &voteState.AuthorizedVoter)
	if err != nil {
		return err
	}

	voteState.AuthorizedVoterEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	err = voteState.PriorVoters.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = readPubkey(decoder, &voteState.AuthorizedWithdrawer)
	if err != nil {
		return err
	}

	voteState.Commission, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	voteState.Votes, err = unmarshalLockouts(decoder)
	if err != nil {
		return err
	}

	voteState.RootSlot, err = readOptionalSlot(decoder)
	if err != nil {
		return err
	}

	voteState.EpochCredits, err = unmarshalEpochCreditsList(decoder)
	if err != nil {
		return err
	}

	return voteState.LastTimestamp.UnmarshalWithDecoder(decoder)
}

func (voteState *VoteState0_23_5) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(voteState.NodePubkey[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(voteState.AuthorizedVoter[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteUint64(voteState.AuthorizedVoterEpoch, bin.LE)
	if err != nil {
		return err
	}

	err = voteState.PriorVoters.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(voteState.AuthorizedWithdrawer[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteByte(voteState.Commission)
	if err != nil {
		return err
	}

	err = marshalLockouts(encoder, voteState.Votes)
	if err != nil {
		return err
	}

	err = writeOptionalSlot(encoder, voteState.RootSlot)
	if err != nil {
		return err
	}

	err = marshalEpochCreditsList(encoder, voteState.EpochCredits)
	if err != nil {
		return err
	}

	return voteState.LastTimestamp.MarshalWithEncoder(encoder)
}

func (voteState *VoteState1_14_11) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &voteState.NodePubkey)
	if err != nil {
		return err
	}

	err = readPubkey(decoder, &voteState.AuthorizedWithdrawer)
	if err != nil {
		return err
	}

	voteState.Commission, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	voteState.Votes, err = unmarshalLockouts(decoder)
	if err != nil {
		return err
	}

	voteState.RootSlot, err = readOptionalSlot(decoder)
	if err != nil {
		return err
	}

	err = voteState.AuthorizedVoters.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = voteState.PriorVoters.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	voteState.EpochCredits, err = unmarshalEpochCreditsList(decoder)
	if err != nil {
		return err
	}

	return voteState.LastTimestamp.UnmarshalWithDecoder(decoder)
}

func (voteState *VoteState1_14_11) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(voteState.NodePubkey[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(voteState.AuthorizedWithdrawer[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteByte(voteState.Commission)
	if err != nil {
		return err
	}

	err = marshalLockouts(encoder, voteState.Votes)
	if err != nil {
		return err
	}

	err = writeOptionalSlot(encoder, voteState.RootSlot)
	if err != nil {
		return err
	}

	err = voteState.AuthorizedVoters.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = voteState.PriorVoters.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = marshalEpochCreditsList(encoder, voteState.EpochCredits)
	if err != nil {
		return err
	}

	return voteState.LastTimestamp.MarshalWithEncoder(encoder)
}

func (voteState *VoteStateCurrent) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &voteState.NodePubkey)
	if err != nil {
		return err
	}

	err = readPubkey(decoder, &voteState.AuthorizedWithdrawer)
	if err != nil {
		return err
	}

	voteState.Commission, err = decoder.ReadByte()
	if err != nil {
		return err
	}

	numVotes, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	voteState.Votes = deque.NewDeque[LandedVote]()
	for count := uint64(0); count < numVotes; count++ {
		var landedVote LandedVote
		err = landedVote.UnmarshalWithDecoder(decoder)
		if err != nil {
			return err
		}
		voteState.Votes.PushBack(landedVote)
	}

	voteState.RootSlot, err = readOptionalSlot(decoder)
	if err != nil {
		return err
	}

	err = voteState.AuthorizedVoters.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	err = voteState.PriorVoters.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	voteState.EpochCredits, err = unmarshalEpochCreditsList(decoder)
	if err != nil {
		return err
	}

	return voteState.LastTimestamp.UnmarshalWithDecoder(decoder)
}

func (voteState *VoteStateCurrent) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(voteState.NodePubkey[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteBytes(voteState.AuthorizedWithdrawer[:], false)
	if err != nil {
		return err
	}

	err = encoder.WriteByte(voteState.Commission)
	if err != nil {
		return err
	}

	if voteState.Votes == nil {
		err = encoder.WriteUint64(0, bin.LE)
	} else {
		err = encoder.WriteUint64(uint64(voteState.Votes.Len()), bin.LE)
		if err == nil {
			voteState.Votes.Range(func(i int, landedVote LandedVote) bool {
				err = landedVote.MarshalWithEncoder(encoder)
				return err == nil
			})
		}
	}
	if err != nil {
		return err
	}

	err = writeOptionalSlot(encoder, voteState.RootSlot)
	if err != nil {
		return err
	}

	err = voteState.AuthorizedVoters.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = voteState.PriorVoters.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	err = marshalEpochCreditsList(encoder, voteState.EpochCredits)
	if err != nil {
		return err
	}

	return voteState.LastTimestamp.MarshalWithEncoder(encoder)
}

func (voteStateVersions *VoteStateVersions) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	voteStateVersions.Type, err = decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}

	switch voteStateVersions.Type {
	case VoteStateVersionV0_23_5:
		{
			err = voteStateVersions.V0_23_5.UnmarshalWithDecoder(decoder)
		}
	case VoteStateVersionV1_14_11:
		{
			err = voteStateVersions.V1_14_11.UnmarshalWithDecoder(decoder)
		}
	case VoteStateVersionCurrent:
		{
			err = voteStateVersions.Current.UnmarshalWithDecoder(decoder)
		}
	default:
		{
			err = InstrErrInvalidAccountData
		}
	}
	return err
}

func (voteStateVersions *VoteStateVersions) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint32(voteStateVersions.Type, bin.LE)
	if err != nil {
		return err
	}

	switch voteStateVersions.Type {
	case VoteStateVersionV0_23_5:
		{
			err = voteStateVersions.V0_23_5.MarshalWithEncoder(encoder)
		}
	case VoteStateVersionV1_14_11:
		{
			err = voteStateVersions.V1_14_11.MarshalWithEncoder(encoder)
		}
	case VoteStateVersionCurrent:
		{
			err = voteStateVersions.Current.MarshalWithEncoder(encoder)
		}
	default:
		{
			err = InstrErrInvalidAccountData
		}
	}

	return err
}

// EpochCredits returns the (epoch, credits, prev_credits) history regardless of layout version.
func (voteStateVersions *VoteStateVersions) EpochCredits() []EpochCredits {
	switch voteStateVersions.Type {
	case VoteStateVersionV0_23_5:
		{
			return voteStateVersions.V0_23_5.EpochCredits
		}
	case VoteStateVersionV1_14_11:
		{
			return voteStateVersions.V1_14_11.EpochCredits
		}
	default:
		{
			return voteStateVersions.Current.EpochCredits
		}
	}
}

// Credits is the running total of credits earned, zero for a vote account that never voted.
func (voteStateVersions *VoteStateVersions) Credits() uint64 {
	epochCredits := voteStateVersions.EpochCredits()
	if len(epochCredits) == 0 {
		return 0
	}
	return epochCredits[len(epochCredits)-1].Credits
}

func (voteStateVersions *VoteStateVersions) IsInitialized() bool {
	switch voteStateVersions.Type {
	case VoteStateVersionV0_23_5:
		{
			return voteStateVersions.V0_23_5.AuthorizedVoter != solana.PublicKey{}
		}
	case VoteStateVersionV1_14_11:
		{
			return voteStateVersions.V1_14_11.AuthorizedVoters.Len() != 0
		}
	default:
		{
			return voteStateVersions.Current.AuthorizedVoters.Len() != 0
		}
	}
}

// NewVoteStateCurrent builds an initialized vote state with the given credit history.
func NewVoteStateCurrent(nodePubkey solana.PublicKey, authorizedVoter solana.PublicKey, epochCredits []EpochCredits) *VoteStateVersions {
	voteState := VoteStateCurrent{
		NodePubkey:           nodePubkey,
		AuthorizedWithdrawer: authorizedVoter,
		Votes:                deque.NewDeque[LandedVote](),
		AuthorizedVoters:     NewAuthorizedVoters(),
		PriorVoters:          PriorVoters{IsEmpty: true},
		EpochCredits:         epochCredits,
	}
	voteState.AuthorizedVoters.AuthorizedVoters.Set(AuthorizedVoter{Epoch: 0, Pubkey: authorizedVoter})
	return &VoteStateVersions{Type: VoteStateVersionCurrent, Current: voteState}
}

func unmarshalVersionedVoteState(data []byte) (*VoteStateVersions, error) {
	versioned := new(VoteStateVersions)
	decoder := bin.NewBinDecoder(data)

	err := versioned.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, InstrErrInvalidAccountData
	} else {
		return versioned, nil
	}
}

func marshalVersionedVoteState(voteStateVersions *VoteStateVersions) ([]byte, error) {
	buffer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buffer)

	err := voteStateVersions.MarshalWithEncoder(encoder)
	if err != nil {
		return nil, err
	} else {
		return buffer.Bytes(), nil
	}
}

// MarshalVoteAccountData serializes a vote state padded to the current vote account size.
func MarshalVoteAccountData(voteStateVersions *VoteStateVersions) ([]byte, error) {
	data, err := marshalVersionedVoteState(voteStateVersions)
	if err != nil {
		return nil, err
	}
	if len(data) < VoteStateV3Size {
		padded := make([]byte, VoteStateV3Size)
		copy(padded, data)
		data = padded
	}
	return data, nil
}
