package sealevel

import (
	"errors"
	"fmt"
)

// instruction errors
var (
	InstrErrGenericError                      = errors.New("InstrErrGenericError")
	InstrErrInvalidArgument                   = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidInstructionData            = errors.New("InstrErrInvalidInstructionData")
	InstrErrInvalidAccountData                = errors.New("InstrErrInvalidAccountData")
	InstrErrAccountDataTooSmall               = errors.New("InstrErrAccountDataTooSmall")
	InstrErrInsufficientFunds                 = errors.New("InstrErrInsufficientFunds")
	InstrErrIncorrectProgramId                = errors.New("InstrErrIncorrectProgramId")
	InstrErrMissingRequiredSignature          = errors.New("InstrErrMissingRequiredSignature")
	InstrErrAccountAlreadyInitialized         = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount              = errors.New("InstrErrUninitializedAccount")
	InstrErrUnbalancedInstruction             = errors.New("InstrErrUnbalancedInstruction")
	InstrErrModifiedProgramId                 = errors.New("InstrErrModifiedProgramId")
	InstrErrExternalAccountLamportSpend       = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrExternalAccountDataModified       = errors.New("InstrErrExternalAccountDataModified")
	InstrErrReadonlyLamportChange             = errors.New("InstrErrReadonlyLamportChange")
	InstrErrReadonlyDataModified              = errors.New("InstrErrReadonlyDataModified")
	InstrErrNotEnoughAccountKeys              = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrAccountDataSizeChanged            = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrAccountNotExecutable              = errors.New("InstrErrAccountNotExecutable")
	InstrErrAccountBorrowFailed               = errors.New("InstrErrAccountBorrowFailed")
	InstrErrAccountBorrowOutstanding          = errors.New("InstrErrAccountBorrowOutstanding")
	InstrErrExecutableDataModified            = errors.New("InstrErrExecutableDataModified")
	InstrErrExecutableLamportChange           = errors.New("InstrErrExecutableLamportChange")
	InstrErrUnsupportedProgramId              = errors.New("InstrErrUnsupportedProgramId")
	InstrErrMissingAccount                    = errors.New("InstrErrMissingAccount")
	InstrErrMaxSeedLengthExceeded             = errors.New("InstrErrMaxSeedLengthExceeded")
	InstrErrInvalidSeeds                      = errors.New("InstrErrInvalidSeeds")
	InstrErrComputationalBudgetExceeded       = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrCallDepth                         = errors.New("InstrErrCallDepth")
	InstrErrMaxInstructionTraceLengthExceeded = errors.New("InstrErrMaxInstructionTraceLengthExceeded")
	InstrErrInvalidAccountOwner               = errors.New("InstrErrInvalidAccountOwner")
	InstrErrArithmeticOverflow                = errors.New("InstrErrArithmeticOverflow")
	InstrErrUnsupportedSysvar                 = errors.New("InstrErrUnsupportedSysvar")
	InstrErrIllegalOwner                      = errors.New("InstrErrIllegalOwner")
)

// stake program errors, surfaced as InstructionError::Custom(n)
var (
	StakeErrNoCreditsToRedeem                                              = errors.New("StakeErrNoCreditsToRedeem")
	StakeErrLockupInForce                                                  = errors.New("StakeErrLockupInForce")
	StakeErrAlreadyDeactivated                                             = errors.New("StakeErrAlreadyDeactivated")
	StakeErrTooSoonToRedelegate                                            = errors.New("StakeErrTooSoonToRedelegate")
	StakeErrInsufficientStake                                              = errors.New("StakeErrInsufficientStake")
	StakeErrMergeTransientStake                                            = errors.New("StakeErrMergeTransientStake")
	StakeErrMergeMismatch                                                  = errors.New("StakeErrMergeMismatch")
	StakeErrCustodianMissing                                               = errors.New("StakeErrCustodianMissing")
	StakeErrCustodianSignatureMissing                                      = errors.New("StakeErrCustodianSignatureMissing")
	StakeErrInsufficientReferenceVotes                                     = errors.New("StakeErrInsufficientReferenceVotes")
	StakeErrVoteAddressMismatch                                            = errors.New("StakeErrVoteAddressMismatch")
	StakeErrMinimumDelinquentEpochsForDeactivationNotMet                   = errors.New("StakeErrMinimumDelinquentEpochsForDeactivationNotMet")
	StakeErrInsufficientDelegation                                         = errors.New("StakeErrInsufficientDelegation")
	StakeErrRedelegateTransientOrInactiveStake                             = errors.New("StakeErrRedelegateTransientOrInactiveStake")
	StakeErrRedelegateToSameVoteAccount                                    = errors.New("StakeErrRedelegateToSameVoteAccount")
	StakeErrRedelegatedStakeMustFullyActivateBeforeDeactivationIsPermitted = errors.New("StakeErrRedelegatedStakeMustFullyActivateBeforeDeactivationIsPermitted")
	StakeErrEpochRewardsActive                                             = errors.New("StakeErrEpochRewardsActive")
)

// in native declaration order; the index is the custom error code
var stakeErrors = []error{
	StakeErrNoCreditsToRedeem,
	StakeErrLockupInForce,
	StakeErrAlreadyDeactivated,
	StakeErrTooSoonToRedelegate,
	StakeErrInsufficientStake,
	StakeErrMergeTransientStake,
	StakeErrMergeMismatch,
	StakeErrCustodianMissing,
	StakeErrCustodianSignatureMissing,
	StakeErrInsufficientReferenceVotes,
	StakeErrVoteAddressMismatch,
	StakeErrMinimumDelinquentEpochsForDeactivationNotMet,
	StakeErrInsufficientDelegation,
	StakeErrRedelegateTransientOrInactiveStake,
	StakeErrRedelegateToSameVoteAccount,
	StakeErrRedelegatedStakeMustFullyActivateBeforeDeactivationIsPermitted,
	StakeErrEpochRewardsActive,
}

// instruction errors - Solana numerical error codes (native enum index + 1, 0 is success)
const (
	InstrErrCodeSuccess                           = 0
	InstrErrCodeGenericError                      = 1
	InstrErrCodeInvalidArgument                   = 2
	InstrErrCodeInvalidInstructionData            = 3
	InstrErrCodeInvalidAccountData                = 4
	InstrErrCodeAccountDataTooSmall               = 5
	InstrErrCodeInsufficientFunds                 = 6
	InstrErrCodeIncorrectProgramId                = 7
	InstrErrCodeMissingRequiredSignature          = 8
	InstrErrCodeAccountAlreadyInitialized         = 9
	InstrErrCodeUninitializedAccount              = 10
	InstrErrCodeUnbalancedInstruction             = 11
	InstrErrCodeModifiedProgramId                 = 12
	InstrErrCodeExternalAccountLamportSpend       = 13
	InstrErrCodeExternalAccountDataModified       = 14
	InstrErrCodeReadonlyLamportChange             = 15
	InstrErrCodeReadonlyDataModified              = 16
	InstrErrCodeNotEnoughAccountKeys              = 20
	InstrErrCodeAccountDataSizeChanged            = 21
	InstrErrCodeAccountNotExecutable              = 22
	InstrErrCodeAccountBorrowFailed               = 23
	InstrErrCodeAccountBorrowOutstanding          = 24
	InstrErrCodeCustom                            = 26
	InstrErrCodeExecutableDataModified            = 28
	InstrErrCodeExecutableLamportChange           = 29
	InstrErrCodeUnsupportedProgramId              = 31
	InstrErrCodeCallDepth                         = 32
	InstrErrCodeMissingAccount                    = 33
	InstrErrCodeMaxSeedLengthExceeded             = 35
	InstrErrCodeInvalidSeeds                      = 36
	InstrErrCodeComputationalBudgetExceeded       = 38
	InstrErrCodeInvalidAccountOwner               = 47
	InstrErrCodeArithmeticOverflow                = 48
	InstrErrCodeUnsupportedSysvar                 = 49
	InstrErrCodeIllegalOwner                      = 50
	InstrErrCodeMaxInstructionTraceLengthExceeded = 53
)

var instrErrCodes = map[error]int{
	InstrErrGenericError:                      InstrErrCodeGenericError,
	InstrErrInvalidArgument:                   InstrErrCodeInvalidArgument,
	InstrErrInvalidInstructionData:            InstrErrCodeInvalidInstructionData,
	InstrErrInvalidAccountData:                InstrErrCodeInvalidAccountData,
	InstrErrAccountDataTooSmall:               InstrErrCodeAccountDataTooSmall,
	InstrErrInsufficientFunds:                 InstrErrCodeInsufficientFunds,
	InstrErrIncorrectProgramId:                InstrErrCodeIncorrectProgramId,
	InstrErrMissingRequiredSignature:          InstrErrCodeMissingRequiredSignature,
	InstrErrAccountAlreadyInitialized:         InstrErrCodeAccountAlreadyInitialized,
	InstrErrUninitializedAccount:              InstrErrCodeUninitializedAccount,
	InstrErrUnbalancedInstruction:             InstrErrCodeUnbalancedInstruction,
	InstrErrModifiedProgramId:                 InstrErrCodeModifiedProgramId,
	InstrErrExternalAccountLamportSpend:       InstrErrCodeExternalAccountLamportSpend,
	InstrErrExternalAccountDataModified:       InstrErrCodeExternalAccountDataModified,
	InstrErrReadonlyLamportChange:             InstrErrCodeReadonlyLamportChange,
	InstrErrReadonlyDataModified:              InstrErrCodeReadonlyDataModified,
	InstrErrNotEnoughAccountKeys:              InstrErrCodeNotEnoughAccountKeys,
	InstrErrAccountDataSizeChanged:            InstrErrCodeAccountDataSizeChanged,
	InstrErrAccountNotExecutable:              InstrErrCodeAccountNotExecutable,
	InstrErrAccountBorrowFailed:               InstrErrCodeAccountBorrowFailed,
	InstrErrAccountBorrowOutstanding:          InstrErrCodeAccountBorrowOutstanding,
	InstrErrExecutableDataModified:            InstrErrCodeExecutableDataModified,
	InstrErrExecutableLamportChange:           InstrErrCodeExecutableLamportChange,
	InstrErrUnsupportedProgramId:              InstrErrCodeUnsupportedProgramId,
	InstrErrMissingAccount:                    InstrErrCodeMissingAccount,
	InstrErrMaxSeedLengthExceeded:             InstrErrCodeMaxSeedLengthExceeded,
	InstrErrInvalidSeeds:                      InstrErrCodeInvalidSeeds,
	InstrErrComputationalBudgetExceeded:       InstrErrCodeComputationalBudgetExceeded,
	InstrErrCallDepth:                         InstrErrCodeCallDepth,
	InstrErrMaxInstructionTraceLengthExceeded: InstrErrCodeMaxInstructionTraceLengthExceeded,
	InstrErrInvalidAccountOwner:               InstrErrCodeInvalidAccountOwner,
	InstrErrArithmeticOverflow:                InstrErrCodeArithmeticOverflow,
	InstrErrUnsupportedSysvar:                 InstrErrCodeUnsupportedSysvar,
	InstrErrIllegalOwner:                      InstrErrCodeIllegalOwner,
}

// StakeErrCustomCode returns the custom error number of a stake program error.
func StakeErrCustomCode(err error) (uint32, bool) {
	for code, stakeErr := range stakeErrors {
		if errors.Is(err, stakeErr) {
			return uint32(code), true
		}
	}
	return 0, false
}

// TranslateErrToInstrErrCode maps an execution result to the numeric code reported to
// the host. Stake program errors report InstrErrCodeCustom plus their custom number.
func TranslateErrToInstrErrCode(err error) (int, uint32) {
	if err == nil {
		return InstrErrCodeSuccess, 0
	}

	if custom, ok := StakeErrCustomCode(err); ok {
		return InstrErrCodeCustom, custom
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return InstrErrCodeInvalidInstructionData, 0
	}

	for instrErr, code := range instrErrCodes {
		if errors.Is(err, instrErr) {
			return code, 0
		}
	}

	return InstrErrCodeGenericError, 0
}

// FormatInstrErr renders a result the way the native runtime prints it.
func FormatInstrErr(err error) string {
	code, custom := TranslateErrToInstrErrCode(err)
	switch code {
	case InstrErrCodeSuccess:
		{
			return "ok"
		}
	case InstrErrCodeCustom:
		{
			return fmt.Sprintf("custom program error: %#x (%s)", custom, err)
		}
	default:
		{
			return fmt.Sprintf("%s (code %d)", err, code)
		}
	}
}

// InstrErrCode returns the numeric instruction error code for err, 0 on success.
func InstrErrCode(err error) int {
	code, _ := TranslateErrToInstrErrCode(err)
	return code
}
