package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"skillkit/internal/app"
	"skillkit/internal/config"
	"skillkit/internal/skillerr"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

// Exit codes by error kind. 1 is reserved for partial failures and
// unhealthy doctor runs.
var kindExitCodes = map[skillerr.Kind]int{
	skillerr.KindSourceInvalid:   2,
	skillerr.KindNotFound:        3,
	skillerr.KindConflict:        4,
	skillerr.KindProviderFailure: 5,
	skillerr.KindCorrupt:         6,
}

func exitCode(err error) int {
	var ex ExitCoder
	if errors.As(err, &ex) {
		return ex.ExitCode()
	}
	if code, ok := kindExitCodes[skillerr.KindOf(err)]; ok {
		return code
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorLabel(err))
		os.Exit(exitCode(err))
	}
}

type serviceFactory func() (*app.Service, error)

func newRootCmd() *cobra.Command {
	var scope string
	var jsonOutput bool

	newSvc := func() (*app.Service, error) {
		switch config.Scope(scope) {
		case config.ScopeGlobal:
			return app.New(app.Options{Global: true})
		case config.ScopeProject, "":
			return app.New(app.Options{})
		default:
			return nil, skillerr.New(skillerr.KindSourceInvalid, "CLI_SCOPE", "invalid scope %q; use 'global' or 'project'", scope)
		}
	}

	cmd := &cobra.Command{
		Use:           "skillkit",
		Short:         "Package manager for agent skills",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&scope, "scope", "", "store scope: project (default) or global")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newInitCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newInstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUninstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newListCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newSearchCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newSyncCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}
