// Command poolctl drives a taskpool dispatcher: "serve" hosts a pool plus
// its admin API and dashboard websocket, "submit" posts a demo task
// against a running serve instance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "poolctl",
		Short: "Run and drive a taskpool worker pool",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newSubmitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
