// Command useradd registers a user from the terminal, using the same store
// and validation as the web form.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/gotodo/internal/admin"
	"github.com/dmitrijs2005/gotodo/internal/server"
	"github.com/dmitrijs2005/gotodo/internal/server/config"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
)

func main() {
	if err := run(context.Background(), config.LoadConfig()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseDSN == config.MemoryDSN {
		return errors.New("useradd needs a persistent database")
	}

	hasher, codec, err := server.NewAuthCore(cfg)
	if err != nil {
		return err
	}

	rm, err := server.OpenRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer rm.Close()

	us := services.NewUserService(rm, hasher, codec, cfg.LoginTokenValidityDuration)

	u, err := admin.AddUser(ctx, bufio.NewReader(os.Stdin), os.Stdout, us)
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (id %d)\n", u.Username, u.ID)
	return nil
}
