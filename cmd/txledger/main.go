// Command txledger applies a CSV stream of ledger instructions to client
// accounts and writes the final account state.
package main

import (
	"os"

	"github.com/roach88/txledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
