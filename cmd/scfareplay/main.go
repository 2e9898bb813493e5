// Command scfareplay inspects Supreme Commander: Forged Alliance replays.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("scfareplay failed")
		os.Exit(1)
	}
}
