package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"safewalk/internal/config"
	"safewalk/internal/location"
	"safewalk/internal/logging"
	"safewalk/internal/route"
	"safewalk/internal/store"
)

var (
	replayInput   string
	replaySpeed   float64
	replayLogFile string
	replayDBPath  string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded location log through the route tracker",
	Long:  "replay feeds recorded fixes back through the acceptance filter and writes the resulting route points.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		log := logging.New()

		provider, err := location.NewReplay(replayInput, replaySpeed)
		if err != nil {
			return err
		}

		cfg := config.Default()
		feed := location.NewFeed(provider, cfg.Location, logging.Component(log, "location"))

		disp, dispCleanup, err := newDispatcher(replayLogFile)
		if err != nil {
			return err
		}
		defer dispCleanup()

		points, _, sinkCleanup, err := newSinks(replayLogFile)
		if err != nil {
			return err
		}
		defer sinkCleanup()

		st, err := store.NewSQLite(resolveDBPath(replayDBPath, cfg))
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		tracker := route.NewTracker(feed, st, disp, points, cfg.Route, logging.Component(log, "route"))

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		r := tracker.Start(ctx, "", nil)
		if r == nil {
			return fmt.Errorf("replay route could not start")
		}
		log.Info("replaying location log", "route_id", r.ID, "input", replayInput, "speed", replaySpeed)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-provider.Finished():
		case <-sigs:
		}

		stats := tracker.Statistics()
		tracker.Stop(context.Background())
		if stats != nil {
			log.Info("replay finished", "points", stats.Points, "distance_m", stats.DistanceM)
		} else {
			log.Info("replay finished")
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a JSONL location log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 removes delays)")
	replayCmd.Flags().StringVar(&replayLogFile, "log-file", "", "Base path to export points/notifications (JSONL)")
	replayCmd.Flags().StringVar(&replayDBPath, "db", "", "Path to the sqlite database (defaults to store_path from config)")
	replayCmd.MarkFlagRequired("input")
}
