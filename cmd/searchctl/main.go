// Command searchctl runs game-tree searches on k-in-a-row positions from
// the command line.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("searchctl failed")
		os.Exit(1)
	}
}
