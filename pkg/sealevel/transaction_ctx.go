package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stake/pkg/accounts"
)

const (
	MaxInstructionStackDepth = 5
	MaxInstructionTraceLen   = 64
	MaxReturnData            = 1024
)

type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccounts := new(TransactionAccounts)
	for idx := range accts {
		acct := accts[idx]
		txAccounts.Accounts = append(txAccounts.Accounts, &acct)
	}
	txAccounts.Touched = make([]bool, len(accts))
	txAccounts.borrowed = make([]bool, len(accts))
	return txAccounts
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= uint64(len(txAccounts.Accounts)) {
		return nil, InstrErrMissingAccount
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= uint64(len(txAccounts.Touched)) {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) Len() uint64 {
	return uint64(len(txAccounts.Accounts))
}

// the borrow table is lazily sized so that a TransactionAccounts built by hand still works
func (txAccounts *TransactionAccounts) tryBorrow(idx uint64) error {
	if idx >= uint64(len(txAccounts.Accounts)) {
		return InstrErrMissingAccount
	}
	if len(txAccounts.borrowed) != len(txAccounts.Accounts) {
		txAccounts.borrowed = make([]bool, len(txAccounts.Accounts))
	}
	if txAccounts.borrowed[idx] {
		return InstrErrAccountBorrowFailed
	}
	txAccounts.borrowed[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) release(idx uint64) {
	if idx < uint64(len(txAccounts.borrowed)) {
		txAccounts.borrowed[idx] = false
	}
}

func (txAccounts *TransactionAccounts) anyBorrowed() bool {
	for _, borrowed := range txAccounts.borrowed {
		if borrowed {
			return true
		}
	}
	return false
}

type accountSnapshot struct {
	idx  uint64
	acct *accounts.Account
}

func (txAccounts *TransactionAccounts) snapshot(indices []uint64) []accountSnapshot {
	snapshots := make([]accountSnapshot, 0, len(indices))
	for _, idx := range indices {
		acct, err := txAccounts.GetAccount(idx)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, accountSnapshot{idx: idx, acct: acct.Clone()})
	}
	return snapshots
}

func (txAccounts *TransactionAccounts) restore(snapshots []accountSnapshot) {
	for _, snap := range snapshots {
		*txAccounts.Accounts[snap.idx] = *snap.acct
	}
}

type TxReturnData struct {
	programId solana.PublicKey
	data      []byte
}

type TransactionCtx struct {
	Accounts                 TransactionAccounts
	instructionStack         []uint64
	instructionTrace         []InstructionCtx
	instructionStackCapacity uint64
	instructionTraceCapacity uint64
	returnData               TxReturnData
}

func NewTransactionCtx(txAccts TransactionAccounts) *TransactionCtx {
	return NewTestTransactionCtx(txAccts, MaxInstructionStackDepth, MaxInstructionTraceLen)
}

func NewTestTransactionCtx(txAccts TransactionAccounts, instrStackCapacity uint64, instrTraceCapacity uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:                 txAccts,
		instructionTrace:         []InstructionCtx{{}},
		instructionStackCapacity: instrStackCapacity,
		instructionTraceCapacity: instrTraceCapacity,
	}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(index)
	if err != nil {
		return solana.PublicKey{}, InstrErrNotEnoughAccountKeys
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace) - 1)
}

// NextInstructionCtx is the slot at the end of the trace that the next pushed
// instruction will occupy.
func (txCtx *TransactionCtx) NextInstructionCtx() (*InstructionCtx, error) {
	if len(txCtx.instructionTrace) == 0 {
		return nil, InstrErrCallDepth
	}
	return &txCtx.instructionTrace[len(txCtx.instructionTrace)-1], nil
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	if len(txCtx.instructionStack) == 0 {
		return nil, InstrErrCallDepth
	}
	traceIdx := txCtx.instructionStack[len(txCtx.instructionStack)-1]
	return &txCtx.instructionTrace[traceIdx], nil
}

func (txCtx *TransactionCtx) Push() error {
	if txCtx.InstructionCtxStackHeight() >= txCtx.instructionStackCapacity {
		return InstrErrCallDepth
	}
	if txCtx.InstructionTraceLength() >= txCtx.instructionTraceCapacity {
		return InstrErrMaxInstructionTraceLengthExceeded
	}

	idx := uint64(len(txCtx.instructionTrace) - 1)
	txCtx.instructionStack = append(txCtx.instructionStack, idx)
	txCtx.instructionTrace = append(txCtx.instructionTrace, InstructionCtx{})
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if len(txCtx.instructionStack) == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]

	if txCtx.Accounts.anyBorrowed() {
		for idx := range txCtx.Accounts.borrowed {
			txCtx.Accounts.borrowed[idx] = false
		}
		return InstrErrAccountBorrowOutstanding
	}
	return nil
}

func (txCtx *TransactionCtx) SetReturnData(programId solana.PublicKey, data []byte) error {
	if len(data) > MaxReturnData {
		return InstrErrInvalidInstructionData
	}
	txCtx.returnData.programId = programId
	txCtx.returnData.data = append([]byte(nil), data...)
	return nil
}

func (txCtx *TransactionCtx) ReturnData() (solana.PublicKey, []byte) {
	return txCtx.returnData.programId, txCtx.returnData.data
}
