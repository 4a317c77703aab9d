package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/base58"
	"go.firedancer.io/stake/pkg/cu"
	"go.firedancer.io/stake/pkg/features"
	"go.firedancer.io/stake/pkg/metrics"
	"go.firedancer.io/stake/pkg/sealevel"
	"k8s.io/klog/v2"
)

var (
	sysvarOwnerAddr    = base58.MustDecodeFromString("Sysvar1111111111111111111111111111111111111")
	configProgramAddr  = base58.MustDecodeFromString("Config1111111111111111111111111111111111111")
	defaultVoteBalance = uint64(1_000_000_000)
)

type StepResult struct {
	Index        int
	Instruction  string
	Outcome      string
	Expected     string
	Formatted    string
	Code         int
	Custom       uint32
	ComputeUnits uint64
	ReturnData   []byte
	ReturnOk     bool
	Modified     []solana.PublicKey
}

func (step *StepResult) Passed() bool {
	return step.Outcome == step.Expected && step.ReturnOk
}

type Result struct {
	Scenario  string
	Steps     []StepResult
	StateHash [32]byte
}

func (result *Result) Passed() bool {
	return lo.EveryBy(result.Steps, func(step StepResult) bool { return step.Passed() })
}

func (result *Result) Failures() []StepResult {
	return lo.Filter(result.Steps, func(step StepResult, _ int) bool { return !step.Passed() })
}

// Runner executes scenarios against an account store. The store is shared by
// every scenario the Runner is given; scenarios that must not observe each
// other need separate stores.
type Runner struct {
	store    accounts.Accounts
	recorder *metrics.Recorder
}

func NewRunner(store accounts.Accounts, recorder *metrics.Recorder) *Runner {
	return &Runner{store: store, recorder: recorder}
}

func (runner *Runner) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	keys, err := runner.setup(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: setup: %w", scenario.Name, err)
	}

	feats := features.NewFeaturesDefault()
	for _, feature := range scenario.Features {
		gate, _ := features.GateByName(feature.Name)
		if feature.Slot <= scenario.Clock.Slot {
			feats.EnableFeature(gate, feature.Slot)
		}
	}

	budget := scenario.ComputeBudget
	if budget == 0 {
		budget = cu.DefaultComputeBudget
	}

	tracked := lo.Values(map[string]solana.PublicKey(keys))
	result := &Result{Scenario: scenario.Name}
	for idx := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := &scenario.Steps[idx]
		stepResult, touched, err := runner.runStep(keys, feats, budget, step)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: step %d (%s): %w", scenario.Name, idx, step.Instruction, err)
		}
		stepResult.Index = idx
		tracked = append(tracked, touched...)

		if stepResult.Passed() {
			klog.V(2).Infof("%s: step %d %s: %s", scenario.Name, idx, step.Instruction, stepResult.Formatted)
		} else {
			klog.Warningf("%s: step %d %s: got %s, expected %s", scenario.Name, idx, step.Instruction, stepResult.Outcome, stepResult.Expected)
		}
		result.Steps = append(result.Steps, *stepResult)
	}

	final, err := runner.loadAccounts(lo.Uniq(tracked))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.StateHash = StateHash(final)

	runner.recorder.ObserveScenario(result.Passed())
	return result, nil
}

func (runner *Runner) runStep(keys keyring, feats *features.Features, budget uint64, step *StepSpec) (*StepResult, []solana.PublicKey, error) {
	instr, err := buildInstruction(keys, step)
	if err != nil {
		return nil, nil, err
	}

	metaKeys := lo.Map(instr.Accounts, func(meta sealevel.AccountMeta, _ int) solana.PublicKey { return meta.Pubkey })
	acctKeys := lo.Uniq(append([]solana.PublicKey{instr.ProgramId}, metaKeys...))

	loaded, err := runner.loadAccounts(acctKeys)
	if err != nil {
		return nil, nil, err
	}
	txAccts := make([]accounts.Account, len(loaded))
	before := make([]uint64, len(loaded))
	for idx, acct := range loaded {
		txAccts[idx] = *acct
		before[idx] = acct.Fingerprint()
	}

	txCtx := sealevel.NewTransactionCtx(*sealevel.NewTransactionAccounts(txAccts))
	execCtx := &sealevel.ExecutionCtx{
		Accounts:           runner.store,
		TransactionContext: txCtx,
		ComputeMeter:       cu.NewComputeMeter(budget),
		Features:           feats,
	}
	err = execCtx.SysvarCache.PopulateFromAccounts(runner.store)
	if err != nil {
		return nil, nil, err
	}

	execErr := execCtx.ProcessTopLevelInstruction(instr)

	code, custom := sealevel.TranslateErrToInstrErrCode(execErr)
	stepResult := &StepResult{
		Instruction:  sealevel.StakeInstrName(binary.LittleEndian.Uint32(instr.Data)),
		Outcome:      outcomeName(execErr),
		Expected:     lo.Ternary(step.Expect == "", "ok", step.Expect),
		Formatted:    sealevel.FormatInstrErr(execErr),
		Code:         code,
		Custom:       custom,
		ComputeUnits: execCtx.ComputeMeter.Used(),
	}
	_, stepResult.ReturnData = txCtx.ReturnData()
	stepResult.ReturnOk = step.ExpectReturn == nil ||
		(len(stepResult.ReturnData) == 8 && binary.LittleEndian.Uint64(stepResult.ReturnData) == *step.ExpectReturn)

	if execErr == nil {
		for idx, key := range acctKeys {
			acct, err := txCtx.Accounts.GetAccount(uint64(idx))
			if err != nil {
				return nil, nil, err
			}
			if acct.Fingerprint() == before[idx] {
				continue
			}
			err = runner.store.SetAccount((*[32]byte)(&key), acct.Clone())
			if err != nil {
				return nil, nil, err
			}
			stepResult.Modified = append(stepResult.Modified, key)
		}
	}

	runner.recorder.ObserveInstruction(stepResult.Instruction, stepResult.Outcome, stepResult.ComputeUnits)
	return stepResult, acctKeys, nil
}

// loadAccounts returns copies of the stored accounts. Keys with no stored
// account yield an empty system account.
func (runner *Runner) loadAccounts(keys []solana.PublicKey) ([]*accounts.Account, error) {
	accts := make([]*accounts.Account, len(keys))
	for idx, key := range keys {
		acct, err := runner.store.GetAccount((*[32]byte)(&key))
		if errors.Is(err, accounts.ErrAccountNotFound) {
			accts[idx] = &accounts.Account{Key: key, Owner: sealevel.SystemProgramAddr}
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to load account %s: %w", key, err)
		}
		accts[idx] = acct.Clone()
	}
	return accts, nil
}

func outcomeName(err error) string {
	if err == nil {
		return "ok"
	}
	var decodeErr *sealevel.DecodeError
	if errors.As(err, &decodeErr) {
		return sealevel.InstrErrInvalidInstructionData.Error()
	}
	return err.Error()
}
