package main

import (
	"context"
	"log"
	"os"

	"github.com/proloapp/sparkle/internal/buildinfo"
	"github.com/proloapp/sparkle/internal/client/cli"
	"github.com/proloapp/sparkle/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(context.Background())
}
