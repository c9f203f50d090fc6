// Command probesweep drives probing attacks over locked circuits.
package main

import (
	"os"

	"github.com/roach88/probesweep/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
