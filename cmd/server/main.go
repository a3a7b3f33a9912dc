package main

import (
	"context"
	"log"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/config"
	_ "github.com/joho/godotenv/autoload"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
