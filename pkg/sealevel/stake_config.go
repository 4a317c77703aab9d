package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DefaultSlashPenalty is 5% of u8::MAX, as the cluster's stake config carries it.
const DefaultSlashPenalty = 12

type ConfigKey struct {
	Pubkey   solana.PublicKey
	IsSigner bool
}

// StakeConfig is the legacy stake config account payload. Delegation reads it only to
// confirm the account is well formed.
type StakeConfig struct {
	Keys               []ConfigKey
	WarmupCooldownRate float64
	SlashPenalty       uint8
}

func DefaultStakeConfig() StakeConfig {
	return StakeConfig{WarmupCooldownRate: DefaultWarmupCooldownRate, SlashPenalty: DefaultSlashPenalty}
}

func (configKey *ConfigKey) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := readPubkey(decoder, &configKey.Pubkey)
	if err != nil {
		return err
	}

	configKey.IsSigner, err = decoder.ReadBool()
	return err
}

func (configKey *ConfigKey) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(configKey.Pubkey[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteBool(configKey.IsSigner)
}

func (config *StakeConfig) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	numKeys, err := decoder.ReadCompactU16()
	if err != nil {
		return fmt.Errorf("failed to read number of config keys: %w", err)
	}

	config.Keys = nil
	for i := 0; i < numKeys; i++ {
		var ck ConfigKey
		err = ck.UnmarshalWithDecoder(decoder)
		if err != nil {
			return fmt.Errorf("failed to read config key %d: %w", i, err)
		}
		config.Keys = append(config.Keys, ck)
	}

	config.WarmupCooldownRate, err = decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read WarmupCooldownRate when decoding StakeConfig: %w", err)
	}

	config.SlashPenalty, err = decoder.ReadUint8()
	if err != nil {
		return fmt.Errorf("failed to read SlashPenalty when decoding StakeConfig: %w", err)
	}
	return nil
}

func (config *StakeConfig) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteCompactU16(len(config.Keys))
	if err != nil {
		return err
	}

	for idx := range config.Keys {
		err = config.Keys[idx].MarshalWithEncoder(encoder)
		if err != nil {
			return err
		}
	}

	err = encoder.WriteFloat64(config.WarmupCooldownRate, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(config.SlashPenalty)
}

func (config *StakeConfig) Marshal() ([]byte, error) {
	data := new(bytes.Buffer)
	err := config.MarshalWithEncoder(bin.NewBinEncoder(data))
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

// checkStakeConfigAccount enforces that the account at instrAcctIdx is the stake config
// account and holds a decodable config.
func checkStakeConfigAccount(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) error {
	configAcct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer configAcct.Drop()

	if configAcct.Key() != StakeProgramConfigAddr {
		return InstrErrInvalidArgument
	}

	var config StakeConfig
	err = config.UnmarshalWithDecoder(bin.NewBinDecoder(configAcct.Data()))
	if err != nil {
		return InstrErrInvalidArgument
	}
	return nil
}
