package cmd

import (
	"fmt"
	"os"

	"github.com/cidlib/macroeng/internal/classio"
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/engine"
	"github.com/spf13/cobra"
)

var disasmMethod string

var disasmCmd = &cobra.Command{
	Use:   "disasm <classdir> <classpath>",
	Short: "Disassemble one class's compiled methods",
	Long: `Load a directory of compiled classes and print the opcode stream of
one class's methods (or, with --method, a single named method).

macroeng has no source-level compiler of its own — class descriptors
arrive pre-compiled, as JSON. This command is a readability aid for
inspecting what one of those descriptors actually encodes.

Examples:
  macroeng disasm ./classes MEng.MyApp
  macroeng disasm ./classes MEng.MyApp --method Echo`,
	Args: cobra.ExactArgs(2),
	RunE: disassembleClass,
}

func init() {
	rootCmd.AddCommand(disasmCmd)

	disasmCmd.Flags().StringVar(&disasmMethod, "method", "", "disassemble only this method (default: all)")
}

func disassembleClass(_ *cobra.Command, args []string) error {
	classDir, classPath := args[0], args[1]

	loader, err := classio.NewDirLoader(classDir)
	if err != nil {
		return fmt.Errorf("loading class directory %s: %w", classDir, err)
	}

	reg := classmeta.NewRegistry()
	reg.AddLoader(loader)

	desc, err := reg.FindClassByPath(classPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", classPath, err)
	}

	found := false
	for _, m := range desc.Methods {
		if disasmMethod != "" && m.Name != disasmMethod {
			continue
		}
		found = true
		if len(m.Code) == 0 {
			fmt.Fprintf(os.Stderr, "%s.%s has no opcode stream (abstract/required or native)\n", classPath, m.Name)
			continue
		}
		instrs, err := engine.DecodeInstructions(m.Code)
		if err != nil {
			return fmt.Errorf("decoding %s.%s: %w", classPath, m.Name, err)
		}
		engine.Disassemble(os.Stdout, fmt.Sprintf("%s.%s", classPath, m.Name), instrs)
	}
	if disasmMethod != "" && !found {
		return fmt.Errorf("%s has no method %q", classPath, disasmMethod)
	}

	return nil
}
