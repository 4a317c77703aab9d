package sealevel

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stake/pkg/accounts"
	"k8s.io/klog/v2"
)

// SysvarCache holds the decoded sysvars visible to an invocation. A nil entry means
// the sysvar is not available.
type SysvarCache struct {
	clock         *SysvarClock
	rent          *SysvarRent
	stakeHistory  *SysvarStakeHistory
	epochSchedule *SysvarEpochSchedule
	epochRewards  *SysvarEpochRewards
}

func (sysvarCache *SysvarCache) SetClock(clock SysvarClock) {
	sysvarCache.clock = &clock
}

func (sysvarCache *SysvarCache) SetRent(rent SysvarRent) {
	sysvarCache.rent = &rent
}

func (sysvarCache *SysvarCache) SetStakeHistory(stakeHistory SysvarStakeHistory) {
	sysvarCache.stakeHistory = &stakeHistory
}

func (sysvarCache *SysvarCache) SetEpochSchedule(epochSchedule SysvarEpochSchedule) {
	sysvarCache.epochSchedule = &epochSchedule
}

func (sysvarCache *SysvarCache) SetEpochRewards(epochRewards SysvarEpochRewards) {
	sysvarCache.epochRewards = &epochRewards
}

func (sysvarCache *SysvarCache) GetClock() (SysvarClock, error) {
	if sysvarCache.clock == nil {
		return SysvarClock{}, InstrErrUnsupportedSysvar
	}
	return *sysvarCache.clock, nil
}

func (sysvarCache *SysvarCache) GetRent() (SysvarRent, error) {
	if sysvarCache.rent == nil {
		return SysvarRent{}, InstrErrUnsupportedSysvar
	}
	return *sysvarCache.rent, nil
}

func (sysvarCache *SysvarCache) GetStakeHistory() (SysvarStakeHistory, error) {
	if sysvarCache.stakeHistory == nil {
		return nil, InstrErrUnsupportedSysvar
	}
	return *sysvarCache.stakeHistory, nil
}

func (sysvarCache *SysvarCache) GetEpochSchedule() (SysvarEpochSchedule, error) {
	if sysvarCache.epochSchedule == nil {
		return SysvarEpochSchedule{}, InstrErrUnsupportedSysvar
	}
	return *sysvarCache.epochSchedule, nil
}

func (sysvarCache *SysvarCache) GetEpochRewards() (SysvarEpochRewards, error) {
	if sysvarCache.epochRewards == nil {
		return SysvarEpochRewards{}, InstrErrUnsupportedSysvar
	}
	return *sysvarCache.epochRewards, nil
}

type sysvarDecoder interface {
	UnmarshalWithDecoder(decoder *bin.Decoder) error
}

func readSysvarAccount(accts accounts.Accounts, addr [32]byte, sysvar sysvarDecoder) (bool, error) {
	acct, err := accts.GetAccount(&addr)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if acct.Lamports == 0 && len(acct.Data) == 0 {
		return false, nil
	}

	err = sysvar.UnmarshalWithDecoder(bin.NewBinDecoder(acct.Data))
	if err != nil {
		return false, err
	}
	return true, nil
}

// PopulateFromAccounts loads every sysvar account present in accts into the cache.
func (sysvarCache *SysvarCache) PopulateFromAccounts(accts accounts.Accounts) error {
	var clock SysvarClock
	found, err := readSysvarAccount(accts, SysvarClockAddr, &clock)
	if err != nil {
		return fmt.Errorf("failed to load clock sysvar: %w", err)
	}
	if found {
		sysvarCache.SetClock(clock)
	}

	var rent SysvarRent
	found, err = readSysvarAccount(accts, SysvarRentAddr, &rent)
	if err != nil {
		return fmt.Errorf("failed to load rent sysvar: %w", err)
	}
	if found {
		sysvarCache.SetRent(rent)
	}

	var stakeHistory SysvarStakeHistory
	found, err = readSysvarAccount(accts, SysvarStakeHistoryAddr, &stakeHistory)
	if err != nil {
		return fmt.Errorf("failed to load stake history sysvar: %w", err)
	}
	if found {
		sysvarCache.SetStakeHistory(stakeHistory)
	}

	var epochSchedule SysvarEpochSchedule
	found, err = readSysvarAccount(accts, SysvarEpochScheduleAddr, &epochSchedule)
	if err != nil {
		return fmt.Errorf("failed to load epoch schedule sysvar: %w", err)
	}
	if found {
		sysvarCache.SetEpochSchedule(epochSchedule)
	}

	var epochRewards SysvarEpochRewards
	found, err = readSysvarAccount(accts, SysvarEpochRewardsAddr, &epochRewards)
	if err != nil {
		return fmt.Errorf("failed to load epoch rewards sysvar: %w", err)
	}
	if found {
		sysvarCache.SetEpochRewards(epochRewards)
	}

	return nil
}

// positional sysvar accounts must carry the sysvar's address; the value itself is read
// from the cache
func checkAcctForSysvar(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64, sysvarAddr [32]byte) error {
	pk, err := instrCtx.KeyOfInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	if pk != sysvarAddr {
		klog.Errorf("expected sysvar account at index %d, got %s", instrAcctIdx, pk)
		return InstrErrInvalidArgument
	}
	return nil
}
