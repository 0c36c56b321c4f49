package cli_test

import (
	"fmt"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/cli"
)

func ExampleRun_noArguments() {
	// Calling Run with an empty args slice returns a deterministic error.
	var args []string
	if err := cli.Run(args); err != nil {
		fmt.Println("error:", err)
	}
	// Output: error: no arguments provided
}
