package main

import (
	"errors"
	"fmt"
	"os"

	"rommate/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		var problem *verifyProblemError
		if !errors.As(err, &problem) && !errors.Is(err, services.ErrCanceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// verifyProblemError marks a run that completed but produced failed verdicts.
type verifyProblemError struct {
	failed int
}

func (e *verifyProblemError) Error() string {
	return fmt.Sprintf("%d file(s) failed verification", e.failed)
}

func exitCode(err error) int {
	var problem *verifyProblemError
	if errors.As(err, &problem) {
		return services.ExitVerifyProblem
	}
	return services.ExitCode(err)
}
