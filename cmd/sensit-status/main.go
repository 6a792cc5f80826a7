// sensit-status prints the current level, metadata and reading history for
// every tank on a SENSiT account.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/tanksense/tanksense/pkg/log"
	"github.com/tanksense/tanksense/pkg/sensit"
)

var cli struct {
	Username string `required:"" help:"SENSiT account email address."`
	Password string `required:"" help:"SENSiT account password."`
	Debug    bool   `help:"Log redacted API requests and responses."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("sensit-status"),
		kong.Description("Show current tank levels and reading history."),
		kong.UsageOnError(),
	)
	if cli.Debug {
		log.SetDefaultLogLevel(slog.LevelDebug)
	}

	ctx := context.Background()
	client := sensit.NewClient()
	if err := client.Login(ctx, cli.Username, cli.Password); err != nil {
		fail(err)
	}

	tanks, err := client.Tanks()
	if err != nil {
		fail(err)
	}
	for _, tank := range tanks {
		snap, err := tank.Snapshot(ctx)
		if err != nil {
			fail(err)
		}
		percent := 0
		if snap.Capacity > 0 {
			percent = 100 * snap.LevelLitres / snap.Capacity
		}

		fmt.Printf("%s:\n", snap.Name)
		fmt.Printf("\tCapacity = %d\n", snap.Capacity)
		fmt.Printf("\tSerial Number = %s\n", snap.SerialNumber)
		fmt.Printf("\tModel = %s\n", snap.Model)
		fmt.Printf("\tLevel = %d%% (%d litres)\n", percent, snap.LevelLitres)
		fmt.Printf("\tLast Read = %s\n", snap.LastRead.Format("2006-01-02 15:04:05"))

		readings, err := tank.History(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Println("\nHistory:")
		fmt.Printf("\t%-22s %-6s %-5s\n", "Reading date", "%Full", "Litres")
		for _, r := range readings {
			fmt.Printf("\t%-22s %-6s %-5d\n",
				r.ReadingDate.Format("02-Jan-2006 15:04"),
				strconv.FormatFloat(r.LevelPercent, 'f', -1, 64),
				r.LevelLitres,
			)
		}
	}
}

func fail(err error) {
	if errors.Is(err, sensit.ErrInvalidCredentials) {
		fmt.Fprintln(os.Stderr, "Authentication Failed: invalid username or password")
	} else {
		fmt.Fprintf(os.Stderr, "Unknown API error: %v\n", err)
	}
	os.Exit(1)
}
