// Command enginedemo exercises the audiocore engine end-to-end without the
// graphical shell: format negotiation, rendering a WAV file through the
// pipeline, and printing the equalizer's frequency response. Grounded on
// the teacher's cmd/root.go cobra-root-plus-subcommand style.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "enginedemo",
		Short: "Exercise the audiocore real-time DSP engine from the command line",
	}
	root.AddCommand(renderCommand())
	root.AddCommand(freqResponseCommand())
	return root
}
