package decode

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"go.firedancer.io/stake/pkg/sealevel"
	"gopkg.in/yaml.v3"
)

var (
	Cmd = cobra.Command{
		Use:   "decode <data>",
		Short: "Decode stake instruction data or stake account data",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	flagKind     string
	flagEncoding string
)

func init() {
	Cmd.Flags().StringVarP(&flagKind, "kind", "k", "instruction", "What the data holds: instruction or account")
	Cmd.Flags().StringVarP(&flagEncoding, "encoding", "e", "base58", "Input encoding: base58, base64 or hex")
}

func decodeInput(s string) ([]byte, error) {
	switch flagEncoding {
	case "base58":
		return base58.Decode(s)
	case "base64":
		return base64.StdEncoding.DecodeString(s)
	case "hex":
		return hex.DecodeString(s)
	default:
		return nil, fmt.Errorf("unknown encoding %q", flagEncoding)
	}
}

func run(c *cobra.Command, args []string) error {
	data, err := decodeInput(args[0])
	if err != nil {
		return fmt.Errorf("invalid %s input: %w", flagEncoding, err)
	}

	var out any
	switch flagKind {
	case "instruction":
		instr, err := sealevel.DecodeStakeInstruction(data)
		if err != nil {
			return err
		}
		out = map[string]any{sealevel.StakeInstrName(instr.InstrType()): instr}
	case "account":
		state, err := sealevel.DecodeStakeState(data)
		if err != nil {
			return err
		}
		out = state
	default:
		return fmt.Errorf("unknown kind %q", flagKind)
	}

	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(out)
}
