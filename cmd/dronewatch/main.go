package main

import (
	"os"

	"github.com/dronewatch/drone-weather/cmd/dronewatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
