package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/cu"
	"go.firedancer.io/stake/pkg/features"
	"k8s.io/klog/v2"
)

type ExecutionCtx struct {
	Accounts           accounts.Accounts
	TransactionContext *TransactionCtx
	ComputeMeter       cu.ComputeMeter
	SysvarCache        SysvarCache
	Features           *features.Features
}

// InstructionAcctsFromAccountMetas maps account metas onto transaction account indices.
// A key repeated within the instruction resolves to the same transaction account, and
// the first position it occupies becomes its callee index.
func InstructionAcctsFromAccountMetas(instrAcctMetas []AccountMeta, txAccounts TransactionAccounts) []InstructionAccount {
	var instrAccts []InstructionAccount

	for instrAcctIdx, accountMeta := range instrAcctMetas {
		idxInTx := -1
		for pos, acct := range txAccounts.Accounts {
			if acct.Key == accountMeta.Pubkey {
				idxInTx = pos
				break
			}
		}
		if idxInTx == -1 {
			idxInTx = len(txAccounts.Accounts)
		}

		idxInCallee := -1
		for pos, instrAcct := range instrAccts {
			if instrAcct.IndexInTransaction == uint64(idxInTx) {
				idxInCallee = pos
				break
			}
		}
		if idxInCallee == -1 {
			idxInCallee = instrAcctIdx
		}

		newInstrAcct := InstructionAccount{IndexInTransaction: uint64(idxInTx), IndexInCaller: uint64(idxInTx), IndexInCallee: uint64(idxInCallee), IsSigner: accountMeta.IsSigner, IsWritable: accountMeta.IsWritable}
		instrAccts = append(instrAccts, newInstrAcct)
	}

	// signer and writable flags belong to the key, not to the position
	for i := range instrAccts {
		for j := range instrAccts {
			if instrAccts[i].IndexInTransaction == instrAccts[j].IndexInTransaction {
				instrAccts[i].IsSigner = instrAccts[i].IsSigner || instrAccts[j].IsSigner
				instrAccts[i].IsWritable = instrAccts[i].IsWritable || instrAccts[j].IsWritable
			}
		}
	}

	return instrAccts
}

// ProcessTopLevelInstruction runs instr against the transaction accounts, locating the
// program account by its key.
func (execCtx *ExecutionCtx) ProcessTopLevelInstruction(instr Instruction) error {
	txCtx := execCtx.TransactionContext

	programIdx, err := txCtx.IndexOfAccount(instr.ProgramId)
	if err != nil {
		klog.Errorf("unknown program %s", instr.ProgramId)
		return InstrErrUnsupportedProgramId
	}

	instructionAccts := InstructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)
	return execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{programIdx})
}

// ProcessInstruction executes one instruction. Accounts referenced by the instruction
// are restored to their prior contents when execution fails.
func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	txCtx := execCtx.TransactionContext

	nextInstrCtx, err := txCtx.NextInstructionCtx()
	if err != nil {
		return err
	}

	nextInstrCtx.Configure(programIndices, instructionAccts, instrData)

	err = txCtx.Push()
	if err != nil {
		return err
	}

	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	snapshots := txCtx.Accounts.snapshot(instrCtx.instructionAccountIndicesInTransaction())

	err1 := execCtx.ExecuteInstruction()
	if err1 != nil {
		txCtx.Accounts.restore(snapshots)
	}

	err2 := txCtx.Pop()

	if err1 != nil {
		return err1
	} else if err2 != nil {
		txCtx.Accounts.restore(snapshots)
		return err2
	}

	return nil
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	borrowedRootAccount, err := instrCtx.BorrowProgramAccount(txCtx, 0)
	if err != nil {
		klog.V(2).Infof("BorrowProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	ownerId := borrowedRootAccount.Owner()
	builtinId := ownerId
	if ownerId == NativeLoaderAddr {
		builtinId = borrowedRootAccount.Key()
	}
	borrowedRootAccount.Drop()

	nativeProgramFn, err := resolveNativeProgramById(builtinId)
	if err != nil {
		klog.Errorf("unsupported program %s", solana.PublicKey(builtinId))
		return err
	}

	klog.V(2).Infof("calling native program %s", solana.PublicKey(builtinId))
	return nativeProgramFn(execCtx)
}

func (execCtx *ExecutionCtx) StackHeight() uint64 {
	return execCtx.TransactionContext.InstructionCtxStackHeight()
}
