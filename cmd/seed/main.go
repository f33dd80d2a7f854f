// seed provisions a device in the local dev database, optionally signs it
// in against the storefront API, and prints a device token plus curl
// recipes for driving the shell by hand.
// Run: go run ./cmd/seed [-email you@example.com -password secret]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/ErlanBelekov/sultan-shell/config"
	"github.com/ErlanBelekov/sultan-shell/internal/device"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/postgres"
)

func main() {
	email := flag.String("email", "", "storefront customer email; skip to seed a signed-out device")
	password := flag.String("password", "", "storefront customer password")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StorageDriver != "postgres" {
		log.Fatal("seed writes to Postgres: set STORAGE_DRIVER=postgres and DATABASE_URL")
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	tokens := device.NewTokens([]byte(cfg.DeviceJWTSecret), cfg.DeviceTokenTTL)
	deviceID, deviceToken, err := tokens.Issue()
	if err != nil {
		log.Fatalf("issue device token: %v", err)
	}

	store, err := postgres.NewDeviceStore(pool).Open(ctx, deviceID)
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	if err := store.SetOnboarded(ctx); err != nil {
		log.Fatalf("mark onboarded: %v", err)
	}

	signedIn := "no"
	if *email != "" {
		api := customerapi.New(cfg.APIBaseURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
		sess, err := api.Login(ctx, customerapi.LoginInput{Email: *email, Password: *password})
		if err != nil {
			log.Fatalf("login %s: %v", *email, err)
		}
		if err := store.SaveSession(ctx, *sess); err != nil {
			log.Fatalf("store session: %v", err)
		}
		signedIn = fmt.Sprintf("yes (%s, user %d)", sess.User.Name, sess.User.ID)
	}

	base := "http://localhost:" + cfg.Port

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Device ID:    %s\n", deviceID)
	fmt.Printf("  Onboarded:    yes\n")
	fmt.Printf("  Signed in:    %s\n", signedIn)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Printf("    export DEVICE='Authorization: Device %s'\n", deviceToken)
	fmt.Println()
	fmt.Println("  Step 1. Leave the splash screen:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST %s/shell/splash/finish -H \"$DEVICE\"\n", base)
	fmt.Println()
	fmt.Println("  Step 2. Open a screen and load its data:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST %s/shell/navigate -H \"$DEVICE\" \\\n", base)
	fmt.Println("      -H 'Content-Type: application/json' \\")
	fmt.Println("      -d '{\"target\":\"auctions\"}'")
	fmt.Printf("    curl -s %s/screen -H \"$DEVICE\"\n", base)
	fmt.Println()
	fmt.Println("  Step 3. Watch frames arrive (needs websocat):")
	fmt.Println()
	fmt.Printf("    websocat -H \"$DEVICE\" ws://localhost:%s/shell/ws\n", cfg.Port)
	fmt.Println()
	fmt.Println("  What to expect:")
	fmt.Println("    signed in   →  splash opens home; navigate switches screens and returns history_push")
	fmt.Println("    signed out  →  splash opens login; guarded targets keep showing login")
}
