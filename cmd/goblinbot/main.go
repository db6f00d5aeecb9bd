package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/goblinlaunch/goblinbot/core/cmd"
	"github.com/goblinlaunch/goblinbot/internal/app"
)

func main() {
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("goblinbot: %v", err)
	}
}
