package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"os"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/commands"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var indexHTML []byte

func main() {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to load embedded assets: %v", err)
	}

	root := commands.NewRootCommand(commands.Assets{
		Index:  indexHTML,
		Static: static,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
