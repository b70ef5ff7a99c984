package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akmonengine/anvil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	steps       int
	size        int
	pileSize    int
	length      int
	dt          float64
	workers     int
	substeps    int
	configFile  string
	plot        bool
	metricsAddr string
	verbosity   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "anvil",
		Short:        "rigid body scenes on the anvil physics core",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().IntVar(&steps, "steps", 100, "number of steps")
	rootCmd.PersistentFlags().Float64Var(&dt, "dt", 1.0/30.0, "step duration in seconds")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "worker count, 0 keeps the config value")
	rootCmd.PersistentFlags().IntVar(&substeps, "substeps", 0, "substep count, 0 keeps the config value")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVar(&plot, "plot", false, "plot the height of the tracked actor")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")

	stackCmd := &cobra.Command{
		Use:   "stack",
		Short: "throw a capsule at a pyramid of boxes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(stackScene(size))
		},
	}
	stackCmd.Flags().IntVar(&size, "size", 10, "boxes on the bottom row")

	chainCmd := &cobra.Command{
		Use:   "chain",
		Short: "swing spherical, fixed and D6 chains hanging from the world",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(chainScene(length))
		},
	}
	chainCmd.Flags().IntVar(&length, "length", 5, "links in each chain")

	capsuleCmd := &cobra.Command{
		Use:   "capsule",
		Short: "throw a spinning capsule and print its pose",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(capsuleScene())
		},
	}

	pileCmd := &cobra.Command{
		Use:   "pile",
		Short: "rain capsules, spheres and boxes into a pile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(pileScene(pileSize))
		},
	}
	pileCmd.Flags().IntVar(&pileSize, "size", 6, "bodies per side of the drop grid")

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the default config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return anvil.SaveConfig(args[0], anvil.DefaultConfig())
		},
	}

	rootCmd.AddCommand(stackCmd, chainCmd, capsuleCmd, pileCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func loadConfig() (anvil.Config, error) {
	cfg := anvil.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = anvil.LoadConfig(configFile); err != nil {
			return cfg, err
		}
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if substeps > 0 {
		cfg.Substeps = substeps
	}
	return cfg, cfg.Validate()
}

func run(build sceneBuilder) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()
	reg := prometheus.NewRegistry()
	world, err := anvil.NewWorld(cfg, anvil.WithLogger(log), anvil.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer world.Shutdown()

	if metricsAddr != "" {
		stop := serveMetrics(log, reg)
		defer stop()
	}

	sc, err := build(world)
	if err != nil {
		return err
	}

	var events eventCounter
	events.subscribe(world)

	heights := make([]float64, 0, steps)
	start := time.Now()
	for range steps {
		if err := world.Simulate(dt); err != nil {
			return err
		}
		if _, err := world.FetchResults(true); err != nil {
			return err
		}
		pose, err := world.Pose(sc.tracked)
		if err != nil {
			return err
		}
		heights = append(heights, pose.Position.Y())
		if sc.trace {
			fmt.Println(pose.Position, pose.Rotation)
		}
	}
	elapsed := time.Since(start)

	sleeping := 0
	for _, id := range sc.actors {
		if asleep, err := world.IsSleeping(id); err == nil && asleep {
			sleeping++
		}
	}

	fmt.Println(renderReport(report{
		scene:    sc.name,
		steps:    steps,
		dt:       dt,
		workers:  cfg.Workers,
		substeps: cfg.Substeps,
		actors:   world.ActorCount(),
		joints:   world.JointCount(),
		sleeping: sleeping,
		events:   &events,
		elapsed:  elapsed,
	}))
	if plot {
		fmt.Println(renderPlot(heights, sc.name))
	}
	return nil
}

// serveMetrics exposes reg on /metrics until the returned func is called
func serveMetrics(log logr.Logger, reg *prometheus.Registry) func() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: metricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("serving metrics", "addr", metricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "metrics server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
