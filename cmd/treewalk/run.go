package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/treewalk/pkg/ast"
	"github.com/lemonberrylabs/treewalk/pkg/parser"
	"github.com/lemonberrylabs/treewalk/pkg/runtime"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a tree document and print the final environment",
		Long: `Run a YAML or JSON tree document. FILE may be "-" to read standard input.

Initial bindings come from the document's env section, then --env-file,
then each --env flag in order; later sources win.`,
		Args: cobra.ExactArgs(1),
		RunE: runProgram,
	}
	cmd.Flags().BoolP("quiet", "q", false, "Suppress program output (print and exit reports)")
	cmd.Flags().StringArrayP("env", "e", nil, "Initial binding as name=value (repeatable)")
	cmd.Flags().String("env-file", "", "YAML or JSON mapping of initial bindings")
	cmd.Flags().Int("max-steps", 0, "Maximum number of executed commands (0 = unlimited)")
	cmd.Flags().Duration("timeout", 0, "Maximum run time, e.g. 5s (0 = unlimited)")
	return cmd
}

func newFmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt FILE",
		Short: "Print a tree document as pseudocode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ast.Format(prog.Body))
			return nil
		},
	}
}

func runProgram(cmd *cobra.Command, args []string) error {
	prog, err := loadProgram(cmd, args[0])
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading env file: %w", err)
		}
		env, err := parser.ParseEnvironment(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for name, v := range env {
			prog.Environment[name] = v
		}
	}

	bindings, _ := cmd.Flags().GetStringArray("env")
	for _, b := range bindings {
		name, v, err := parser.ParseBinding(b)
		if err != nil {
			return err
		}
		prog.Environment[name] = v
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	interp := runtime.NewInterpreter(prog.Environment, runtime.Options{
		Output:   out,
		MaxSteps: maxSteps,
	})
	if _, err := interp.ExecuteContext(ctx, prog.Body, !quiet); err != nil {
		return err
	}

	fmt.Fprintln(out, "Environment after execution:")
	fmt.Fprintln(out, interp.Environment())
	return nil
}

func loadProgram(cmd *cobra.Command, path string) (*parser.Program, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}

	prog, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}
