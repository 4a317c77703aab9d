package sealevel

import (
	"bytes"
	"fmt"
	"sort"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stake/pkg/base58"
)

const SysvarStakeHistoryAddrStr = "SysvarStakeHistory1111111111111111111111111"

var SysvarStakeHistoryAddr = base58.MustDecodeFromString(SysvarStakeHistoryAddrStr)

// MaxStakeHistoryEntries is the capacity of the stake history sysvar, one entry per epoch.
const MaxStakeHistoryEntries = 512

const stakeHistoryPairLen = 32

type StakeHistoryEntry struct {
	Effective    uint64
	Activating   uint64
	Deactivating uint64
}

type StakeHistoryPair struct {
	Epoch uint64
	Entry StakeHistoryEntry
}

// SysvarStakeHistory holds cluster-wide stake totals, newest epoch first.
type SysvarStakeHistory []StakeHistoryPair

func (sh *SysvarStakeHistory) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	entriesLen, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read length of entries when decoding SysvarStakeHistory: %w", err)
	}

	if entriesLen > uint64(decoder.Remaining())/stakeHistoryPairLen {
		return fmt.Errorf("failed to decode SysvarStakeHistory: %d entries exceeds remaining %d bytes", entriesLen, decoder.Remaining())
	}

	// entries past the newest MaxStakeHistoryEntries are read and dropped
	stakeHistory := make(SysvarStakeHistory, 0, min(entriesLen, MaxStakeHistoryEntries))

	for count := uint64(0); count < entriesLen; count++ {
		stakeHistoryPair := StakeHistoryPair{}
		stakeHistoryPair.Epoch, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return fmt.Errorf("failed to read Epoch when decoding SysvarStakeHistory: %w", err)
		}

		stakeHistoryPair.Entry.Effective, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return fmt.Errorf("failed to read Effective when decoding SysvarStakeHistory: %w", err)
		}

		stakeHistoryPair.Entry.Activating, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return fmt.Errorf("failed to read Activating when decoding SysvarStakeHistory: %w", err)
		}

		stakeHistoryPair.Entry.Deactivating, err = decoder.ReadUint64(bin.LE)
		if err != nil {
			return fmt.Errorf("failed to read Deactivating when decoding SysvarStakeHistory: %w", err)
		}

		if len(stakeHistory) < MaxStakeHistoryEntries {
			stakeHistory = append(stakeHistory, stakeHistoryPair)
		}
	}

	*sh = stakeHistory

	return
}

func (sh *SysvarStakeHistory) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(uint64(len(*sh)), bin.LE)
	if err != nil {
		return fmt.Errorf("failed to serialize len of StakeHistory for StakeHistory sysvar: %w", err)
	}

	for _, pair := range *sh {
		err = encoder.WriteUint64(pair.Epoch, bin.LE)
		if err != nil {
			return fmt.Errorf("failed to serialize Epoch for StakeHistory sysvar: %w", err)
		}

		err = encoder.WriteUint64(pair.Entry.Effective, bin.LE)
		if err != nil {
			return fmt.Errorf("failed to serialize Effective for StakeHistory sysvar: %w", err)
		}

		err = encoder.WriteUint64(pair.Entry.Activating, bin.LE)
		if err != nil {
			return fmt.Errorf("failed to serialize Activating for StakeHistory sysvar: %w", err)
		}

		err = encoder.WriteUint64(pair.Entry.Deactivating, bin.LE)
		if err != nil {
			return fmt.Errorf("failed to serialize Deactivating for StakeHistory sysvar: %w", err)
		}
	}
	return nil
}

func (sh *SysvarStakeHistory) Marshal() ([]byte, error) {
	data := new(bytes.Buffer)
	err := sh.MarshalWithEncoder(bin.NewBinEncoder(data))
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

// search returns the position of epoch, or where it would be inserted, in the
// descending list.
func (sh SysvarStakeHistory) search(epoch uint64) (int, bool) {
	idx := sort.Search(len(sh), func(i int) bool {
		return sh[i].Epoch <= epoch
	})
	return idx, idx < len(sh) && sh[idx].Epoch == epoch
}

func (sh *SysvarStakeHistory) Get(epoch uint64) *StakeHistoryEntry {
	if sh == nil {
		return nil
	}
	idx, found := sh.search(epoch)
	if !found {
		return nil
	}
	entry := (*sh)[idx].Entry
	return &entry
}

// Add records the totals for epoch, replacing an existing entry, and drops the
// oldest entries beyond MaxStakeHistoryEntries.
func (sh *SysvarStakeHistory) Add(epoch uint64, entry StakeHistoryEntry) {
	idx, found := sh.search(epoch)
	if found {
		(*sh)[idx].Entry = entry
		return
	}

	history := append(*sh, StakeHistoryPair{})
	copy(history[idx+1:], history[idx:])
	history[idx] = StakeHistoryPair{Epoch: epoch, Entry: entry}

	if len(history) > MaxStakeHistoryEntries {
		history = history[:MaxStakeHistoryEntries]
	}
	*sh = history
}

func checkAcctForStakeHistorySysvar(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) error {
	return checkAcctForSysvar(txCtx, instrCtx, instrAcctIdx, SysvarStakeHistoryAddr)
}
