package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sealedchat/internal/config"
	"sealedchat/internal/cryptographic/vault"
	"sealedchat/internal/service/app"

	"golang.org/x/term"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: client [-config path] <username>")
	}
	username := flag.Arg(0)

	cfg := config.LoadFromPath(*configPath)

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatal("read password: ", err)
	}

	ctx := context.Background()

	a := app.NewApp(cfg, vault.New(kdfFromConfig(cfg.KDF)))
	go func() {
		done := make(chan os.Signal, 1)
		signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
		<-done
		a.Stop()
		os.Exit(0)
	}()

	a.Run(ctx, username, string(password))
	a.Stop()
}

// kdfFromConfig picks the derivation strategy once at startup; nothing
// downstream decides it per call.
func kdfFromConfig(cfg config.KDFConfig) vault.KeyDeriver {
	if cfg.Variant == "blake2b" {
		return vault.NewGenericHashFallback()
	}
	a := vault.DefaultArgon2id()
	if cfg.Time > 0 {
		a.Time = cfg.Time
	}
	if cfg.MemoryKB > 0 {
		a.MemoryKB = cfg.MemoryKB
	}
	if cfg.Threads > 0 {
		a.Threads = cfg.Threads
	}
	return a
}
