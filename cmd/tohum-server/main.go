package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tohum-ai/tohum/assistantservice"
)

func main() {
	if err := assistantservice.Run(); err != nil {
		log.Error().Err(err).Msg("tohum-server exited with error")
		os.Exit(1)
	}
}
