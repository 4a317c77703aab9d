// Package simulator replays scripted stake instruction sequences against an
// account store and checks every result against the scenario's expectations.
package simulator

import (
	"fmt"
	"io"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/zeebo/blake3"
	"go.firedancer.io/stake/pkg/base58"
	"go.firedancer.io/stake/pkg/features"
	"go.firedancer.io/stake/pkg/sealevel"
	"gopkg.in/yaml.v3"
)

type Scenario struct {
	Name               string        `yaml:"name"`
	Clock              ClockSpec     `yaml:"clock"`
	Features           []FeatureSpec `yaml:"features"`
	StakeHistory       []HistorySpec `yaml:"stake_history"`
	EpochRewardsActive bool          `yaml:"epoch_rewards_active"`
	ComputeBudget      uint64        `yaml:"compute_budget"`
	Accounts           []AccountSpec `yaml:"accounts"`
	Steps              []StepSpec    `yaml:"steps"`
}

type ClockSpec struct {
	Slot          uint64 `yaml:"slot"`
	Epoch         uint64 `yaml:"epoch"`
	UnixTimestamp int64  `yaml:"unix_timestamp"`
}

type FeatureSpec struct {
	Name string `yaml:"name"`
	Slot uint64 `yaml:"slot"`
}

type HistorySpec struct {
	Epoch        uint64 `yaml:"epoch"`
	Effective    uint64 `yaml:"effective"`
	Activating   uint64 `yaml:"activating"`
	Deactivating uint64 `yaml:"deactivating"`
}

// AccountSpec describes one account present before the first step. Accounts
// are referred to by Name everywhere else in the scenario.
type AccountSpec struct {
	Name     string     `yaml:"name"`
	Pubkey   string     `yaml:"pubkey"`
	Lamports uint64     `yaml:"lamports"`
	Owner    string     `yaml:"owner"`
	DataLen  int        `yaml:"data_len"`
	Stake    *StakeSpec `yaml:"stake"`
	Vote     *VoteSpec  `yaml:"vote"`
}

type StakeSpec struct {
	State             string      `yaml:"state"`
	Staker            string      `yaml:"staker"`
	Withdrawer        string      `yaml:"withdrawer"`
	RentExemptReserve *uint64     `yaml:"rent_exempt_reserve"`
	Lockup            *LockupSpec `yaml:"lockup"`
	Voter             string      `yaml:"voter"`
	Delegated         uint64      `yaml:"delegated"`
	ActivationEpoch   uint64      `yaml:"activation_epoch"`
	DeactivationEpoch *uint64     `yaml:"deactivation_epoch"`
	CreditsObserved   uint64      `yaml:"credits_observed"`
}

type LockupSpec struct {
	UnixTimestamp *int64  `yaml:"unix_timestamp"`
	Epoch         *uint64 `yaml:"epoch"`
	Custodian     string  `yaml:"custodian"`
}

type VoteSpec struct {
	EpochCredits []EpochCreditsSpec `yaml:"epoch_credits"`
}

type EpochCreditsSpec struct {
	Epoch       uint64 `yaml:"epoch"`
	Credits     uint64 `yaml:"credits"`
	PrevCredits uint64 `yaml:"prev_credits"`
}

// StepSpec is one instruction. Which fields are read depends on Instruction.
type StepSpec struct {
	Instruction   string      `yaml:"instruction"`
	Stake         string      `yaml:"stake"`
	Source        string      `yaml:"source"`
	Destination   string      `yaml:"destination"`
	Authority     string      `yaml:"authority"`
	NewAuthority  string      `yaml:"new_authority"`
	AuthorityKind string      `yaml:"authority_kind"`
	Custodian     string      `yaml:"custodian"`
	Staker        string      `yaml:"staker"`
	Withdrawer    string      `yaml:"withdrawer"`
	Vote          string      `yaml:"vote"`
	ReferenceVote string      `yaml:"reference_vote"`
	Seed          string      `yaml:"seed"`
	SeedOwner     string      `yaml:"seed_owner"`
	Lamports      uint64      `yaml:"lamports"`
	Lockup        *LockupSpec `yaml:"lockup"`
	Unsigned      []string    `yaml:"unsigned"`
	Expect        string      `yaml:"expect"`
	ExpectReturn  *uint64     `yaml:"expect_return"`
}

func ParseScenario(r io.Reader) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := scenario.validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scenario, err := ParseScenario(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if scenario.Name == "" {
		scenario.Name = path
	}
	return scenario, nil
}

func (scenario *Scenario) validate() error {
	seen := make(map[string]bool)
	for _, acct := range scenario.Accounts {
		if acct.Name == "" {
			return fmt.Errorf("account without a name")
		}
		if seen[acct.Name] {
			return fmt.Errorf("duplicate account %q", acct.Name)
		}
		seen[acct.Name] = true
		if acct.Stake != nil && acct.Vote != nil {
			return fmt.Errorf("account %q cannot be both a stake and a vote account", acct.Name)
		}
	}
	for _, feature := range scenario.Features {
		if _, ok := features.GateByName(feature.Name); !ok {
			return fmt.Errorf("unknown feature %q", feature.Name)
		}
	}
	for idx, step := range scenario.Steps {
		if _, ok := instructionBuilders[step.Instruction]; !ok {
			return fmt.Errorf("step %d: unknown instruction %q", idx, step.Instruction)
		}
	}
	return nil
}

// ResolveKey maps an account name to its address. Names that are valid base58
// public keys stand for themselves; anything else is hashed.
func ResolveKey(name string) solana.PublicKey {
	if key, err := base58.DecodeFromString(name); err == nil {
		return key
	}
	return blake3.Sum256([]byte(name))
}

func (acct *AccountSpec) key() (solana.PublicKey, error) {
	if acct.Pubkey == "" {
		return ResolveKey(acct.Name), nil
	}
	key, err := base58.DecodeFromString(acct.Pubkey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("account %q: bad pubkey: %w", acct.Name, err)
	}
	return key, nil
}

var ownerAliases = map[string][32]byte{
	"":       sealevel.SystemProgramAddr,
	"system": sealevel.SystemProgramAddr,
	"stake":  sealevel.StakeProgramAddr,
	"vote":   sealevel.VoteProgramAddr,
}

func resolveOwner(owner string) ([32]byte, error) {
	if addr, ok := ownerAliases[owner]; ok {
		return addr, nil
	}
	return base58.DecodeFromString(owner)
}
