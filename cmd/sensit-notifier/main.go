// sensit-notifier forecasts days until the tank runs empty and emails a
// warning when the forecast falls below the notice horizon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kong"

	"github.com/tanksense/tanksense/pkg/config"
	"github.com/tanksense/tanksense/pkg/forecast"
	"github.com/tanksense/tanksense/pkg/history"
	"github.com/tanksense/tanksense/pkg/notify"
	"github.com/tanksense/tanksense/pkg/sensit"
	"github.com/tanksense/tanksense/pkg/types"
)

var cli struct {
	Config   string `short:"c" required:"" help:"Config file in ini-format."`
	NoUpdate bool   `short:"N" help:"Don't update the cache with new data."`
	Window   int    `short:"w" default:"14" help:"Number of days of history to consider."`
	Notice   int    `short:"n" default:"14" help:"Days of remaining oil below which to warn."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("sensit-notifier"),
		kong.Description("Email a warning when the tank is forecast to run empty soon."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.RequireSMTP(); err != nil {
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
		if !cli.NoUpdate {
			if err := store.Save(ctx, merged); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
	}

	readings := history.FilterFrom(merged, cfg.Sensit.StartDate)
	if len(readings) == 0 {
		fmt.Fprintln(os.Stderr, "no readings available to forecast from")
		os.Exit(1)
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].ReadingDate.Before(readings[j].ReadingDate)
	})
	latest := readings[len(readings)-1]

	daysToEmpty := forecast.Forecast(readings, forecast.Options{
		WindowDays:      cli.Window,
		RefillThreshold: cfg.Sensit.RefillThreshold,
	})

	fmt.Printf("Current level %d litres\n", latest.LevelLitres)

	notifier := &notify.Notifier{
		Sender: &notify.SMTPSender{
			Server:   cfg.SMTP.Server,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Email:    cfg.SMTP.Email,
		},
		NoticeDays: cli.Notice,
	}
	sent, err := notifier.Notify(ctx, latest.LevelPercent, latest.LevelLitres, daysToEmpty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to send notification: %v\n", err)
		os.Exit(1)
	}
	if sent {
		fmt.Printf("Sent notification: empty in %d days\n", daysToEmpty)
	} else {
		fmt.Printf("No notification; %d days oil remain\n", daysToEmpty)
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
