package main

import (
	"context"
	"log"
	"os"

	"github.com/proloapp/sparkle/internal/buildinfo"
	"github.com/proloapp/sparkle/internal/server"
	"github.com/proloapp/sparkle/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
