package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"safewalk/internal/admin"
	"safewalk/internal/config"
	"safewalk/internal/emergency"
	"safewalk/internal/location"
	"safewalk/internal/logging"
	"safewalk/internal/route"
	"safewalk/internal/scenario"
	"safewalk/internal/store"
	"safewalk/internal/tui"
)

var (
	runConfigPath string
	runSchemaPath string
	runDBPath     string
	runLogFile    string
	runAdminAddr  string
	runTUI        bool
	runWalkFile   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the safety coordinator with a simulated location feed",
	Long:  "run starts the location feed, route tracker, emergency coordinator, and admin UI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}
		log := logging.New()

		st, err := store.NewSQLite(resolveDBPath(runDBPath, cfg))
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		prefs, err := st.GetPreferences(cmd.Context())
		if err != nil {
			return err
		}
		if prefs.CountdownSeconds > 0 {
			cfg.Emergency.CountdownSeconds = prefs.CountdownSeconds
		}

		walk, err := pickWalk(cfg, runWalkFile)
		if err != nil {
			return err
		}
		provider := location.NewSimulated(cfg.Sim, walk)
		feed := location.NewFeed(provider, cfg.Location, logging.Component(log, "location"))

		disp, dispCleanup, err := newDispatcher(runLogFile)
		if err != nil {
			return err
		}
		defer dispCleanup()

		points, alerts, sinkCleanup, err := newSinks(runLogFile)
		if err != nil {
			return err
		}
		defer sinkCleanup()

		coord := emergency.NewCoordinator(feed, st, disp, st, cfg.Emergency, logging.Component(log, "emergency"))
		tracker := route.NewTracker(feed, st, disp, points, cfg.Route, logging.Component(log, "route"))

		if alerts != nil {
			unsub := coord.Subscribe(func(ev emergency.Event) {
				if err := alerts.WriteAlertEvent(ev); err != nil {
					log.Warn("alert event sink failed", "err", err)
				}
			})
			defer unsub()
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		srv := admin.NewServer(coord, tracker, feed, st)
		go func() {
			log.Info("admin UI listening", "addr", runAdminAddr)
			if err := srv.Start(runAdminAddr); err != nil && err != http.ErrServerClosed {
				log.Error("admin server failed", "err", err)
			}
		}()

		var ui *tui.UI
		if runTUI {
			ui = tui.New(cfg)
			ui.Attach(coord, tracker, feed)
			defer ui.Close()
		}

		feed.StartTracking(ctx)
		defer feed.StopTracking()

		if prefs.ShareByDefault {
			if r := tracker.Start(ctx, "", prefs.DefaultSharedIDs); r != nil {
				log.Info("route tracking started from preferences", "route_id", r.ID)
			}
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		tracker.Stop(context.Background())
		log.Info("safewalk stopped")
		return nil
	},
}

// resolveDBPath resolves the sqlite path: an explicit --db flag wins, then
// the configured store_path.
func resolveDBPath(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.StorePath != "" {
		return cfg.StorePath
	}
	return "safewalk.db"
}

// pickWalk resolves the scripted walk: an explicit file wins, then the
// configured built-in name.
func pickWalk(cfg *config.Config, walkFile string) (*scenario.Walk, error) {
	if walkFile != "" {
		return scenario.Load(walkFile)
	}
	builtIn := scenario.BuiltIn()
	w, ok := builtIn[cfg.Sim.Scenario]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", cfg.Sim.Scenario)
	}
	return &w, nil
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/safewalk.yaml", "Path to configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/safewalk.cue", "Path to CUE schema file")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "Path to the sqlite database (defaults to store_path from config)")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Base path to export points/alerts/notifications (JSONL)")
	runCmd.Flags().StringVar(&runAdminAddr, "admin", ":8080", "Admin UI listen address")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Render the terminal dashboard")
	runCmd.Flags().StringVar(&runWalkFile, "walk-file", "", "Path to a scripted walk YAML (overrides the configured scenario)")
}
