package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cidlib/macroeng/internal/classio"
	"github.com/cidlib/macroeng/pkg/macro"
	"github.com/spf13/cobra"
)

var (
	entryPoint string
	sandboxDir string
)

var runCmd = &cobra.Command{
	Use:   "run <classdir>",
	Short: "Load a directory of compiled classes and invoke an entry method",
	Long: `Load every *.json class descriptor in classdir and invoke an entry method.

Examples:
  # Invoke MEng.MyApp.Main with no arguments
  macroeng run ./classes --entry MEng.MyApp.Main

  # Sandbox any file-system access inside a fixed base directory
  macroeng run ./classes --entry MEng.MyApp.Main --sandbox /srv/macros`,
	Args: cobra.ExactArgs(1),
	RunE: runClasses,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&entryPoint, "entry", "", "entry method as Class.Path.Method (required)")
	runCmd.Flags().StringVar(&sandboxDir, "sandbox", "", "fixed base directory for sandboxed file access")
	_ = runCmd.MarkFlagRequired("entry")
}

func runClasses(_ *cobra.Command, args []string) error {
	classDir := args[0]

	loader, err := classio.NewDirLoader(classDir)
	if err != nil {
		return fmt.Errorf("loading class directory %s: %w", classDir, err)
	}

	classPath, methodName, err := splitEntryPoint(entryPoint)
	if err != nil {
		return err
	}

	opts := []macro.Option{macro.RegisterLoader(loader)}
	if sandboxDir != "" {
		opts = append(opts, macro.SetFileResolver(sandboxDir))
	}
	opts = append(opts, macro.SetUnhandledExceptionHandler(reportUnhandled))

	if verbose {
		fmt.Fprintf(os.Stderr, "Loading classes from %s...\n", classDir)
		fmt.Fprintf(os.Stderr, "Invoking %s.%s\n", classPath, methodName)
	}

	engine := macro.NewEngine(opts...)
	result, err := engine.Invoke(classPath, methodName, nil)
	if err != nil {
		return fmt.Errorf("invoking %s: %w", entryPoint, err)
	}
	if result != nil && verbose {
		fmt.Fprintf(os.Stderr, "Result class id: %d\n", result.ClassID)
	}

	return nil
}

// splitEntryPoint separates "A.B.C.Method" into ("A.B.C", "Method") at the
// last dot, matching the class-path-then-method shape JSON descriptors use.
func splitEntryPoint(s string) (classPath, methodName string, err error) {
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return "", "", fmt.Errorf("entry point %q must be Class.Path.Method", s)
	}
	return s[:idx], s[idx+1:], nil
}

func reportUnhandled(exc macro.ExceptionInfo) {
	fmt.Fprintf(os.Stderr, "Unhandled exception: %s (%s)\n", exc.ErrorName, exc.ErrorText)
	for _, f := range exc.Frames {
		fmt.Fprintf(os.Stderr, "  at %s.%s:%d\n", f.ClassPath, f.MethodName, f.Line)
	}
}
