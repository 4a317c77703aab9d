package simulator

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/sealevel"
)

// setup writes the scenario's accounts, the sysvars and the stake program
// into the store and returns the name to address mapping.
func (runner *Runner) setup(scenario *Scenario) (keyring, error) {
	keys := make(keyring, len(scenario.Accounts))
	for idx := range scenario.Accounts {
		key, err := scenario.Accounts[idx].key()
		if err != nil {
			return nil, err
		}
		keys[scenario.Accounts[idx].Name] = key
	}

	rent := sealevel.DefaultRent()
	for idx := range scenario.Accounts {
		def := &scenario.Accounts[idx]
		acct, err := buildAccount(keys, def, &rent)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", def.Name, err)
		}
		if err = runner.store.SetAccount((*[32]byte)(&acct.Key), acct); err != nil {
			return nil, err
		}
	}

	builtins, err := builtinAccounts(scenario, &rent)
	if err != nil {
		return nil, err
	}
	for _, acct := range builtins {
		if err = runner.store.SetAccount((*[32]byte)(&acct.Key), acct); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func buildAccount(keys keyring, def *AccountSpec, rent *sealevel.SysvarRent) (*accounts.Account, error) {
	owner := def.Owner
	var data []byte
	var err error

	switch {
	case def.Stake != nil:
		if owner == "" {
			owner = "stake"
		}
		var state *sealevel.StakeStateV2
		state, err = buildStakeState(keys, def.Stake, rent)
		if err != nil {
			return nil, err
		}
		data, err = state.MarshalAccountData()
	case def.Vote != nil:
		if owner == "" {
			owner = "vote"
		}
		credits := make([]sealevel.EpochCredits, len(def.Vote.EpochCredits))
		for idx, c := range def.Vote.EpochCredits {
			credits[idx] = sealevel.EpochCredits{Epoch: c.Epoch, Credits: c.Credits, PrevCredits: c.PrevCredits}
		}
		key := keys.key(def.Name)
		data, err = sealevel.MarshalVoteAccountData(sealevel.NewVoteStateCurrent(key, key, credits))
	default:
		data = make([]byte, def.DataLen)
	}
	if err != nil {
		return nil, err
	}

	ownerAddr, err := resolveOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("bad owner %q: %w", owner, err)
	}

	lamports := def.Lamports
	if def.Vote != nil && lamports == 0 {
		lamports = defaultVoteBalance
	}
	return &accounts.Account{Key: keys.key(def.Name), Lamports: lamports, Data: data, Owner: ownerAddr}, nil
}

func buildStakeState(keys keyring, def *StakeSpec, rent *sealevel.SysvarRent) (*sealevel.StakeStateV2, error) {
	meta := sealevel.Meta{
		RentExemptReserve: rent.MinimumBalance(sealevel.StakeStateV2Size),
		Authorized:        sealevel.Authorized{Staker: keys.key(def.Staker), Withdrawer: keys.key(def.Withdrawer)},
		Lockup:            keys.lockup(def.Lockup),
	}
	if def.RentExemptReserve != nil {
		meta.RentExemptReserve = *def.RentExemptReserve
	}

	switch def.State {
	case "uninitialized":
		return sealevel.NewUninitializedStakeState(), nil
	case "initialized", "":
		return sealevel.NewInitializedStakeState(meta), nil
	case "stake":
		delegation := sealevel.NewDelegation(keys.key(def.Voter), def.Delegated, def.ActivationEpoch)
		if def.DeactivationEpoch != nil {
			delegation.DeactivationEpoch = *def.DeactivationEpoch
		}
		stake := sealevel.Stake{Delegation: delegation, CreditsObserved: def.CreditsObserved}
		return sealevel.NewStakeStakeState(meta, stake, sealevel.StakeFlags{}), nil
	default:
		return nil, fmt.Errorf("unknown stake state %q", def.State)
	}
}

func builtinAccounts(scenario *Scenario, rent *sealevel.SysvarRent) ([]*accounts.Account, error) {
	clock := sealevel.SysvarClock{
		Slot:                scenario.Clock.Slot,
		Epoch:               scenario.Clock.Epoch,
		LeaderScheduleEpoch: scenario.Clock.Epoch + 1,
		UnixTimestamp:       scenario.Clock.UnixTimestamp,
		EpochStartTimestamp: scenario.Clock.UnixTimestamp,
	}
	clockData, err := clock.Marshal()
	if err != nil {
		return nil, err
	}

	rentData, err := rent.Marshal()
	if err != nil {
		return nil, err
	}

	var stakeHistory sealevel.SysvarStakeHistory
	for _, entry := range scenario.StakeHistory {
		stakeHistory.Add(entry.Epoch, sealevel.StakeHistoryEntry{Effective: entry.Effective, Activating: entry.Activating, Deactivating: entry.Deactivating})
	}
	historyData, err := stakeHistory.Marshal()
	if err != nil {
		return nil, err
	}

	epochSchedule := sealevel.DefaultEpochSchedule()
	scheduleData, err := epochSchedule.Marshal()
	if err != nil {
		return nil, err
	}

	config := sealevel.DefaultStakeConfig()
	configData, err := config.Marshal()
	if err != nil {
		return nil, err
	}

	accts := []*accounts.Account{
		sysvarAccount(sealevel.SysvarClockAddr, clockData),
		sysvarAccount(sealevel.SysvarRentAddr, rentData),
		sysvarAccount(sealevel.SysvarStakeHistoryAddr, historyData),
		sysvarAccount(sealevel.SysvarEpochScheduleAddr, scheduleData),
		{Key: sealevel.StakeProgramConfigAddr, Lamports: rent.MinimumBalance(uint64(len(configData))), Data: configData, Owner: configProgramAddr},
		{Key: sealevel.StakeProgramAddr, Lamports: 1, Owner: sealevel.NativeLoaderAddr, Executable: true, RentEpoch: math.MaxUint64},
	}

	if scenario.EpochRewardsActive {
		epochRewards := sealevel.SysvarEpochRewards{Active: true}
		rewardsData, err := epochRewards.Marshal()
		if err != nil {
			return nil, err
		}
		accts = append(accts, sysvarAccount(sealevel.SysvarEpochRewardsAddr, rewardsData))
	}
	return accts, nil
}

func sysvarAccount(addr solana.PublicKey, data []byte) *accounts.Account {
	return &accounts.Account{Key: addr, Lamports: 1, Data: data, Owner: sysvarOwnerAddr}
}
