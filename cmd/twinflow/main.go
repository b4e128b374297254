package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"twinflow/internal/config"
)

func main() {
	envFiles := []string{".env", filepath.Join(filepath.Dir(config.ResolveConfigPath()), ".env")}
	if err := config.LoadEnv(envFiles...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "twinflow: %v\n", err)
		os.Exit(1)
	}
}
