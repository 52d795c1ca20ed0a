// Command draftforge is the entry point for the DraftForge LinkedIn post
// drafting engine. It provides a CLI interface (via Cobra) and an optional
// HTTP server exposing the same drafting pipeline over a REST API.
package main

import (
	"fmt"
	"os"

	"github.com/draftforge/draftforge-go/cmd/draftforge/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
