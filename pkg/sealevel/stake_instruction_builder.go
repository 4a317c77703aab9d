package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

func newStakeInstruction(instr StakeInstruction, accounts []AccountMeta) (Instruction, error) {
	data, err := EncodeStakeInstruction(instr)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{ProgramId: StakeProgramAddr, Accounts: accounts, Data: data}, nil
}

func writableMeta(pubkey solana.PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsWritable: true}
}

func readonlyMeta(pubkey solana.PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pubkey}
}

func signerMeta(pubkey solana.PublicKey) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsSigner: true}
}

func appendCustodian(accounts []AccountMeta, custodian *solana.PublicKey) []AccountMeta {
	if custodian == nil {
		return accounts
	}
	return append(accounts, signerMeta(*custodian))
}

func NewStakeInstrInitialize(stakePubkey solana.PublicKey, authorized Authorized, lockup StakeLockup) (Instruction, error) {
	return newStakeInstruction(StakeInstrInitialize{Authorized: authorized, Lockup: lockup}, []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(SysvarRentAddr),
	})
}

func NewStakeInstrInitializeChecked(stakePubkey solana.PublicKey, authorized Authorized) (Instruction, error) {
	return newStakeInstruction(StakeInstrInitializeChecked{}, []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(SysvarRentAddr),
		readonlyMeta(authorized.Staker),
		signerMeta(authorized.Withdrawer),
	})
}

func NewStakeInstrAuthorize(stakePubkey solana.PublicKey, authorityPubkey solana.PublicKey, newAuthorizedPubkey solana.PublicKey, stakeAuthorize uint32, custodian *solana.PublicKey) (Instruction, error) {
	accounts := []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(SysvarClockAddr),
		signerMeta(authorityPubkey),
	}
	return newStakeInstruction(StakeInstrAuthorize{Pubkey: newAuthorizedPubkey, StakeAuthorize: stakeAuthorize}, appendCustodian(accounts, custodian))
}

func NewStakeInstrAuthorizeChecked(stakePubkey solana.PublicKey, authorityPubkey solana.PublicKey, newAuthorizedPubkey solana.PublicKey, stakeAuthorize uint32, custodian *solana.PublicKey) (Instruction, error) {
	accounts := []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(SysvarClockAddr),
		signerMeta(authorityPubkey),
		signerMeta(newAuthorizedPubkey),
	}
	return newStakeInstruction(StakeInstrAuthorizeChecked{StakeAuthorize: stakeAuthorize}, appendCustodian(accounts, custodian))
}

func NewStakeInstrAuthorizeWithSeed(stakePubkey solana.PublicKey, authorityBase solana.PublicKey, authoritySeed string, authorityOwner solana.PublicKey, newAuthorizedPubkey solana.PublicKey, stakeAuthorize uint32, custodian *solana.PublicKey) (Instruction, error) {
	accounts := []AccountMeta{
		writableMeta(stakePubkey),
		signerMeta(authorityBase),
		readonlyMeta(SysvarClockAddr),
	}
	instr := StakeInstrAuthorizeWithSeed{
		NewAuthorizedPubkey: newAuthorizedPubkey,
		StakeAuthorize:      stakeAuthorize,
		AuthoritySeed:       authoritySeed,
		AuthorityOwner:      authorityOwner,
	}
	return newStakeInstruction(instr, appendCustodian(accounts, custodian))
}

func NewStakeInstrAuthorizeCheckedWithSeed(stakePubkey solana.PublicKey, authorityBase solana.PublicKey, authoritySeed string, authorityOwner solana.PublicKey, newAuthorizedPubkey solana.PublicKey, stakeAuthorize uint32, custodian *solana.PublicKey) (Instruction, error) {
	accounts := []AccountMeta{
		writableMeta(stakePubkey),
		signerMeta(authorityBase),
		readonlyMeta(SysvarClockAddr),
		signerMeta(newAuthorizedPubkey),
	}
	instr := StakeInstrAuthorizeCheckedWithSeed{StakeAuthorize: stakeAuthorize, AuthoritySeed: authoritySeed, AuthorityOwner: authorityOwner}
	return newStakeInstruction(instr, appendCustodian(accounts, custodian))
}

func NewStakeInstrDelegateStake(stakePubkey solana.PublicKey, authorizedPubkey solana.PublicKey, votePubkey solana.PublicKey) (Instruction, error) {
	return newStakeInstruction(StakeInstrDelegateStake{}, []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(votePubkey),
		readonlyMeta(SysvarClockAddr),
		readonlyMeta(SysvarStakeHistoryAddr),
		readonlyMeta(StakeProgramConfigAddr),
		signerMeta(authorizedPubkey),
	})
}

func NewStakeInstrSplit(stakePubkey solana.PublicKey, authorizedPubkey solana.PublicKey, lamports uint64, splitStakePubkey solana.PublicKey) (Instruction, error) {
	return newStakeInstruction(StakeInstrSplit{Lamports: lamports}, []AccountMeta{
		writableMeta(stakePubkey),
		writableMeta(splitStakePubkey),
		signerMeta(authorizedPubkey),
	})
}

func NewStakeInstrWithdraw(stakePubkey solana.PublicKey, withdrawerPubkey solana.PublicKey, toPubkey solana.PublicKey, lamports uint64, custodian *solana.PublicKey) (Instruction, error) {
	accounts := []AccountMeta{
		writableMeta(stakePubkey),
		writableMeta(toPubkey),
		readonlyMeta(SysvarClockAddr),
		readonlyMeta(SysvarStakeHistoryAddr),
		signerMeta(withdrawerPubkey),
	}
	return newStakeInstruction(StakeInstrWithdraw{Lamports: lamports}, appendCustodian(accounts, custodian))
}

func NewStakeInstrDeactivate(stakePubkey solana.PublicKey, authorizedPubkey solana.PublicKey) (Instruction, error) {
	return newStakeInstruction(StakeInstrDeactivate{}, []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(SysvarClockAddr),
		signerMeta(authorizedPubkey),
	})
}

func NewStakeInstrSetLockup(stakePubkey solana.PublicKey, args StakeLockupArgs, custodianPubkey solana.PublicKey) (Instruction, error) {
	instr := StakeInstrSetLockup{UnixTimestamp: args.UnixTimestamp, Epoch: args.Epoch, Custodian: args.Custodian}
	return newStakeInstruction(instr, []AccountMeta{
		writableMeta(stakePubkey),
		signerMeta(custodianPubkey),
	})
}

func NewStakeInstrSetLockupChecked(stakePubkey solana.PublicKey, args StakeLockupArgs, custodianPubkey solana.PublicKey) (Instruction, error) {
	accounts := []AccountMeta{
		writableMeta(stakePubkey),
		signerMeta(custodianPubkey),
	}
	instr := StakeInstrSetLockupChecked{UnixTimestamp: args.UnixTimestamp, Epoch: args.Epoch}
	return newStakeInstruction(instr, appendCustodian(accounts, args.Custodian))
}

func NewStakeInstrMerge(destinationStakePubkey solana.PublicKey, sourceStakePubkey solana.PublicKey, authorizedPubkey solana.PublicKey) (Instruction, error) {
	return newStakeInstruction(StakeInstrMerge{}, []AccountMeta{
		writableMeta(destinationStakePubkey),
		writableMeta(sourceStakePubkey),
		readonlyMeta(SysvarClockAddr),
		readonlyMeta(SysvarStakeHistoryAddr),
		signerMeta(authorizedPubkey),
	})
}

func NewStakeInstrGetMinimumDelegation() (Instruction, error) {
	return newStakeInstruction(StakeInstrGetMinimumDelegation{}, nil)
}

func NewStakeInstrDeactivateDelinquent(stakePubkey solana.PublicKey, delinquentVotePubkey solana.PublicKey, referenceVotePubkey solana.PublicKey) (Instruction, error) {
	return newStakeInstruction(StakeInstrDeactivateDelinquent{}, []AccountMeta{
		writableMeta(stakePubkey),
		readonlyMeta(delinquentVotePubkey),
		readonlyMeta(referenceVotePubkey),
	})
}

func NewStakeInstrMoveStake(sourceStakePubkey solana.PublicKey, destinationStakePubkey solana.PublicKey, authorizedPubkey solana.PublicKey, lamports uint64) (Instruction, error) {
	return newStakeInstruction(StakeInstrMoveStake{Lamports: lamports}, []AccountMeta{
		writableMeta(sourceStakePubkey),
		writableMeta(destinationStakePubkey),
		signerMeta(authorizedPubkey),
	})
}

func NewStakeInstrMoveLamports(sourceStakePubkey solana.PublicKey, destinationStakePubkey solana.PublicKey, authorizedPubkey solana.PublicKey, lamports uint64) (Instruction, error) {
	return newStakeInstruction(StakeInstrMoveLamports{Lamports: lamports}, []AccountMeta{
		writableMeta(sourceStakePubkey),
		writableMeta(destinationStakePubkey),
		signerMeta(authorizedPubkey),
	})
}
