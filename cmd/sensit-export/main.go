// sensit-export merges freshly fetched tank history with the local cache
// and writes it to an Excel workbook.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/tanksense/tanksense/pkg/config"
	"github.com/tanksense/tanksense/pkg/export"
	"github.com/tanksense/tanksense/pkg/history"
	"github.com/tanksense/tanksense/pkg/sensit"
	"github.com/tanksense/tanksense/pkg/types"
)

var cli struct {
	Config string `short:"c" required:"" help:"Config file in ini-format."`
	Output string `short:"o" default:"history.xlsx" help:"Excel output file for history."`
	Update bool   `short:"U" help:"Update the cache with newly fetched history."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("sensit-export"),
		kong.Description("Export tank history to a spreadsheet."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	client := sensit.NewClient()
	if err := client.Login(ctx, cfg.Sensit.Username, cfg.Sensit.Password); err != nil {
		failAPI(err)
	}
	tanks, err := client.Tanks()
	if err != nil {
		failAPI(err)
	}
	if len(tanks) == 0 {
		fmt.Fprintln(os.Stderr, "no tanks registered for this account")
		os.Exit(1)
	}

	fresh, err := tanks[0].History(ctx)
	if err != nil {
		failAPI(err)
	}

	merged := fresh
	if cfg.Sensit.Cache != "" {
		store := history.NewStore(cfg.Sensit.Cache)
		var cached []types.Reading
		cached, err = store.Load(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		merged = history.Merge(cached, fresh)
		if cli.Update {
			if err := store.Save(ctx, merged); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
	}

	filtered := history.FilterFrom(merged, cfg.Sensit.StartDate)
	if err := export.WriteXLSX(cli.Output, filtered); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func failAPI(err error) {
	if errors.Is(err, sensit.ErrInvalidCredentials) {
		fmt.Fprintln(os.Stderr, "Authentication Failed: invalid username or password")
	} else {
		fmt.Fprintf(os.Stderr, "SENSiT connect failed: %v\n", err)
	}
	os.Exit(1)
}
