package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"myshell/internal/config"
	"myshell/internal/eval"
	"myshell/internal/repl"
)

var (
	cfgPath   string
	noexec    bool
	printplan bool
	trace     bool
	command   string
)

var rootCmd = &cobra.Command{
	Use:   "myshell",
	Short: "A small command interpreter",
	Long: `myshell runs command lines with at most one special operator:
a pipeline (|), a background job (&), or an input (<) or output (>)
redirection.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command and exits with its status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file")
	rootCmd.Flags().BoolVarP(&noexec, "noexec", "n", false, "parse and build only")
	rootCmd.Flags().BoolVarP(&printplan, "plan", "p", false, "print plan")
	rootCmd.Flags().BoolVarP(&trace, "trace", "x", false, "trace commands")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command line")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		return err
	}

	engine := &eval.Engine{
		MaxStages:   cfg.MaxStages,
		Trace:       trace || cfg.Trace,
		TraceWriter: os.Stderr,
		Color:       cfg.Color && term.IsTerminal(int(os.Stderr.Fd())),
	}
	if err := engine.Prepare(); err != nil {
		return err
	}
	defer engine.Finalize()

	session := &repl.Session{
		Engine:    engine,
		Prompt:    cfg.Prompt,
		PrintPlan: printplan,
		NoExec:    noexec,
		Stderr:    os.Stderr,
	}

	switch {
	case command != "":
		if session.Eval(command) == eval.Stop && !session.Exited() {
			err = fmt.Errorf("engine stopped")
		}
	case term.IsTerminal(int(os.Stdin.Fd())):
		err = session.RunInteractive(cfg.HistoryFile)
	default:
		err = session.RunScript(os.Stdin)
	}
	if err != nil {
		return err
	}
	if code := session.ExitCode(); code != 0 {
		_ = engine.Finalize()
		os.Exit(code)
	}
	return nil
}
