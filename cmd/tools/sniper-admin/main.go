// Command sniper-admin manages the tracked leagues and odds rows.
//
// Usage:
//
//	sniper-admin leagues add --name "Premier League" --url https://example.com/en/soccer/england-premier-league/matchups --sport soccer
//	sniper-admin leagues list
//	sniper-admin gc
//	sniper-admin watch --event 42 --market "Money Line – Match" --outcome Home
//	sniper-admin watch --event 42 --market "Money Line – Match" --outcome Home --off
//	sniper-admin movers --horizon 2h --min-shift 0.01
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Vodeneev/linesniper/internal/pkg/config"
	"github.com/Vodeneev/linesniper/internal/pkg/enums"
	"github.com/Vodeneev/linesniper/internal/pkg/storage"
	"github.com/Vodeneev/linesniper/internal/pkg/validation"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "sniper-admin",
		Short:        "Manage leagues and odds tracked by the sniper",
		SilenceUsage: true,
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/production.yaml"
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")

	root.AddCommand(leaguesCmd(&configPath))
	root.AddCommand(gcCmd(&configPath))
	root.AddCommand(watchCmd(&configPath))
	root.AddCommand(moversCmd(&configPath))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func withStore(configPath string, fn func(ctx context.Context, cfg *config.Config, store *storage.PostgresStore) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := storage.NewPostgresStore(ctx, &cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	return fn(ctx, cfg, store)
}

// --------------------------------------------------------------------------
// leagues
// --------------------------------------------------------------------------

func leaguesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leagues",
		Short: "Add or list tracked leagues",
	}
	cmd.AddCommand(leaguesAddCmd(configPath))
	cmd.AddCommand(leaguesListCmd(configPath))
	return cmd
}

func leaguesAddCmd(configPath *string) *cobra.Command {
	var name, url, sport string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a league matchups page",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, known := enums.ParseSport(sport)
			if s == "" {
				return fmt.Errorf("--sport must not be empty")
			}
			if err := validation.NewValidator().ValidateURL(url); err != nil {
				return err
			}
			return withStore(*configPath, func(ctx context.Context, cfg *config.Config, store *storage.PostgresStore) error {
				sports, err := cfg.SportSet()
				if err != nil {
					return err
				}
				if _, ok := sports.Lookup(s); !ok || !known {
					logger.Warn("Sport has no market configuration, its events will not be refreshed", "sport", s)
				}
				l, err := store.AddLeague(ctx, name, url, s)
				if err != nil {
					return err
				}
				logger.Info("League added", "id", l.ID, "name", l.Name, "sport", l.Sport)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "League display name")
	cmd.Flags().StringVar(&url, "url", "", "League matchups page URL")
	cmd.Flags().StringVar(&sport, "sport", "", "Sport key, e.g. soccer")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("sport")
	return cmd
}

func leaguesListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked leagues and their last sync time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configPath, func(ctx context.Context, cfg *config.Config, store *storage.PostgresStore) error {
				ls, err := store.ListLeagues(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSPORT\tNAME\tLAST SYNC\tURL")
				for _, l := range ls {
					synced := "never"
					if l.LastSyncedAt != nil {
						synced = l.LastSyncedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.Sport, l.Name, synced, l.URL)
				}
				return w.Flush()
			})
		},
	}
}

// --------------------------------------------------------------------------
// maintenance
// --------------------------------------------------------------------------

func gcCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Delete events that already kicked off, with their odds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configPath, func(ctx context.Context, _ *config.Config, store *storage.PostgresStore) error {
				n, err := store.DeleteStartedEvents(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Info("Started events deleted", "count", n)
				return nil
			})
		},
	}
}

func watchCmd(configPath *string) *cobra.Command {
	var (
		eventID         int64
		market, outcome string
		off             bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Flag an outcome so every price change is reported",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configPath, func(ctx context.Context, _ *config.Config, store *storage.PostgresStore) error {
				if err := store.SetWatch(ctx, eventID, market, outcome, !off); err != nil {
					return fmt.Errorf("event %d %q/%q: %w", eventID, market, outcome, err)
				}
				logger.Info("Watch flag updated", "event", eventID, "market", market, "outcome", outcome, "watch", !off)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&eventID, "event", 0, "Event id")
	cmd.Flags().StringVar(&market, "market", "", "Market title as shown on the page")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Outcome label")
	cmd.Flags().BoolVar(&off, "off", false, "Clear the flag instead of setting it")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("market")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func moversCmd(configPath *string) *cobra.Command {
	var (
		horizon  time.Duration
		minShift float64
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "movers",
		Short: "Show watched and recently moved outcomes of upcoming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configPath, func(ctx context.Context, cfg *config.Config, store *storage.PostgresStore) error {
				if !cmd.Flags().Changed("horizon") {
					horizon = cfg.Alerts.Horizon
				}
				if !cmd.Flags().Changed("min-shift") {
					minShift = cfg.Alerts.MinProbShift
				}
				movers, err := store.ListMovers(ctx, time.Now(), horizon, minShift)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(movers)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "EVENT\tKICKOFF\tMARKET\tOUTCOME\tPRICE\tSHIFT %\tWATCH")
				for _, m := range movers {
					price, _ := m.Current()
					fmt.Fprintf(w, "%d %s\t%s\t%s\t%s\t%s\t%s\t%t\n",
						m.EventID, m.EventName, m.KickoffAt.Format("Jan 2 15:04"), m.MarketType, m.OutcomeLabel,
						decimal.NewFromFloat(price).StringFixed(3),
						decimal.NewFromFloat(m.ShiftPercent()).StringFixed(2), m.Watch)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().DurationVar(&horizon, "horizon", 0, "Only events kicking off within this window (default alerts.horizon)")
	cmd.Flags().Float64Var(&minShift, "min-shift", 0, "Minimum implied probability shift (default alerts.min_prob_shift)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
