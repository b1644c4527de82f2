// migrate applies the embedded token store migrations to TOKEN_STORE_DSN. The client also runs
// "up" at startup; this command exists for shared postgres stores and for rolling back.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"inventory-mobile/client/internal/config"
	"inventory-mobile/client/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.TokenStoreDSN, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
