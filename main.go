package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/cli"
)

func main() {
	if err := cli.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("flashsync failed")
		os.Exit(1)
	}
}
