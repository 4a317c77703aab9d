package simulator

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/sealevel"
)

type keyring map[string]solana.PublicKey

func (keys keyring) key(name string) solana.PublicKey {
	if key, ok := keys[name]; ok {
		return key
	}
	return ResolveKey(name)
}

func (keys keyring) optionalKey(name string) *solana.PublicKey {
	if name == "" {
		return nil
	}
	key := keys.key(name)
	return &key
}

func (keys keyring) lockupArgs(lockup *LockupSpec) sealevel.StakeLockupArgs {
	if lockup == nil {
		return sealevel.StakeLockupArgs{}
	}
	return sealevel.StakeLockupArgs{UnixTimestamp: lockup.UnixTimestamp, Epoch: lockup.Epoch, Custodian: keys.optionalKey(lockup.Custodian)}
}

func (keys keyring) lockup(lockup *LockupSpec) sealevel.StakeLockup {
	var out sealevel.StakeLockup
	if lockup == nil {
		return out
	}
	if lockup.UnixTimestamp != nil {
		out.UnixTimestamp = *lockup.UnixTimestamp
	}
	if lockup.Epoch != nil {
		out.Epoch = *lockup.Epoch
	}
	if lockup.Custodian != "" {
		out.Custodian = keys.key(lockup.Custodian)
	}
	return out
}

func authorityKind(kind string) (uint32, error) {
	switch kind {
	case "staker", "":
		return sealevel.StakeAuthorizeStaker, nil
	case "withdrawer":
		return sealevel.StakeAuthorizeWithdrawer, nil
	default:
		return 0, fmt.Errorf("unknown authority kind %q", kind)
	}
}

type instructionBuilder func(keys keyring, step *StepSpec) (sealevel.Instruction, error)

var instructionBuilders = map[string]instructionBuilder{
	"initialize": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		authorized := sealevel.Authorized{Staker: keys.key(step.Staker), Withdrawer: keys.key(step.Withdrawer)}
		return sealevel.NewStakeInstrInitialize(keys.key(step.Stake), authorized, keys.lockup(step.Lockup))
	},
	"initialize_checked": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		authorized := sealevel.Authorized{Staker: keys.key(step.Staker), Withdrawer: keys.key(step.Withdrawer)}
		return sealevel.NewStakeInstrInitializeChecked(keys.key(step.Stake), authorized)
	},
	"authorize": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		kind, err := authorityKind(step.AuthorityKind)
		if err != nil {
			return sealevel.Instruction{}, err
		}
		return sealevel.NewStakeInstrAuthorize(keys.key(step.Stake), keys.key(step.Authority), keys.key(step.NewAuthority), kind, keys.optionalKey(step.Custodian))
	},
	"authorize_checked": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		kind, err := authorityKind(step.AuthorityKind)
		if err != nil {
			return sealevel.Instruction{}, err
		}
		return sealevel.NewStakeInstrAuthorizeChecked(keys.key(step.Stake), keys.key(step.Authority), keys.key(step.NewAuthority), kind, keys.optionalKey(step.Custodian))
	},
	"authorize_with_seed": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		kind, err := authorityKind(step.AuthorityKind)
		if err != nil {
			return sealevel.Instruction{}, err
		}
		return sealevel.NewStakeInstrAuthorizeWithSeed(keys.key(step.Stake), keys.key(step.Authority), step.Seed, keys.key(step.SeedOwner), keys.key(step.NewAuthority), kind, keys.optionalKey(step.Custodian))
	},
	"authorize_checked_with_seed": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		kind, err := authorityKind(step.AuthorityKind)
		if err != nil {
			return sealevel.Instruction{}, err
		}
		return sealevel.NewStakeInstrAuthorizeCheckedWithSeed(keys.key(step.Stake), keys.key(step.Authority), step.Seed, keys.key(step.SeedOwner), keys.key(step.NewAuthority), kind, keys.optionalKey(step.Custodian))
	},
	"delegate_stake": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrDelegateStake(keys.key(step.Stake), keys.key(step.Authority), keys.key(step.Vote))
	},
	"split": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrSplit(keys.key(step.Stake), keys.key(step.Authority), step.Lamports, keys.key(step.Destination))
	},
	"withdraw": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrWithdraw(keys.key(step.Stake), keys.key(step.Authority), keys.key(step.Destination), step.Lamports, keys.optionalKey(step.Custodian))
	},
	"deactivate": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrDeactivate(keys.key(step.Stake), keys.key(step.Authority))
	},
	"set_lockup": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrSetLockup(keys.key(step.Stake), keys.lockupArgs(step.Lockup), keys.key(step.Authority))
	},
	"set_lockup_checked": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrSetLockupChecked(keys.key(step.Stake), keys.lockupArgs(step.Lockup), keys.key(step.Authority))
	},
	"merge": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrMerge(keys.key(step.Stake), keys.key(step.Source), keys.key(step.Authority))
	},
	"get_minimum_delegation": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrGetMinimumDelegation()
	},
	"deactivate_delinquent": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrDeactivateDelinquent(keys.key(step.Stake), keys.key(step.Vote), keys.key(step.ReferenceVote))
	},
	"move_stake": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrMoveStake(keys.key(step.Stake), keys.key(step.Destination), keys.key(step.Authority), step.Lamports)
	},
	"move_lamports": func(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
		return sealevel.NewStakeInstrMoveLamports(keys.key(step.Stake), keys.key(step.Destination), keys.key(step.Authority), step.Lamports)
	},
}

// buildInstruction encodes step and clears the signer flag of every account
// listed in step.Unsigned.
func buildInstruction(keys keyring, step *StepSpec) (sealevel.Instruction, error) {
	builder, ok := instructionBuilders[step.Instruction]
	if !ok {
		return sealevel.Instruction{}, fmt.Errorf("unknown instruction %q", step.Instruction)
	}
	instr, err := builder(keys, step)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	for _, name := range step.Unsigned {
		unsigned := keys.key(name)
		for idx := range instr.Accounts {
			if instr.Accounts[idx].Pubkey == unsigned {
				instr.Accounts[idx].IsSigner = false
			}
		}
	}
	return instr, nil
}
