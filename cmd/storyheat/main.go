package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyheat/storyheat/internal/config"
	"github.com/storyheat/storyheat/internal/decay"
	"github.com/storyheat/storyheat/internal/ingest"
	"github.com/storyheat/storyheat/internal/report"
	"github.com/storyheat/storyheat/internal/server"
	"github.com/storyheat/storyheat/internal/store"
	"github.com/storyheat/storyheat/internal/sweep"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storyheat",
	Short:   "Story-cluster heat and ranking engine",
	Long:    "storyheat groups news articles into story clusters, scores their real-time heat with category decay, tracks lifecycle trends and ranks them.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	sweepCmd.Flags().Bool("once", false, "Run a single sweep pass and exit")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mergeCmd)
}

func openStore() (*store.Store, error) {
	return store.Open(filepath.Join(cfg.GetDataDir(), "storyheat.db"))
}

func newProvider(s *store.Store) *decay.Provider {
	return decay.NewProvider(s, time.Duration(cfg.Decay.CacheTTLMinutes)*time.Minute)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storyheat", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storyheat/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, categories and the sweep schedule.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status and the current heat report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", db.Path())
		fmt.Printf("  Clusters:      %d\n", stats.Clusters)
		fmt.Printf("  Articles:      %d\n", stats.Articles)
		fmt.Printf("  Entities:      %d\n", stats.Entities)
		fmt.Printf("  History rows:  %d\n", stats.HistoryRows)
		fmt.Printf("  Anomalies:     %d\n", stats.Anomalies)
		if !stats.LastUpdated.IsZero() {
			fmt.Printf("  Last updated:  %s\n", stats.LastUpdated.Format(time.RFC3339))
		}

		markdown, err := report.NewBuilder(db).BuildMarkdown(cfg.Sweep.WindowHours)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(markdown)
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest configured feeds into the cluster store",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		in := ingest.New(db, newProvider(db), cfg.Ingest, nil)
		result, err := in.Run()
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d articles (%d new clusters, %d duplicate titles)\n",
			result.Articles, result.NewClusters, result.Duplicates)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the trend/rank/anomaly sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		sw := sweep.New(db, cfg.Sweep.WindowHours, cfg.Sweep.TrendWindow)

		once, _ := cmd.Flags().GetBool("once")
		if once {
			result, err := sw.RunOnce()
			if err != nil {
				return err
			}
			fmt.Printf("Swept %d clusters, %d anomalies flagged\n", result.Clusters, result.Anomalies)
			return nil
		}

		if err := sw.Start(cfg.Sweep.Schedule); err != nil {
			return err
		}
		defer sw.Stop()
		log.Printf("sweep scheduled: %s", cfg.Sweep.Schedule)
		select {}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API and heat report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		sw := sweep.New(db, cfg.Sweep.WindowHours, cfg.Sweep.TrendWindow)
		if err := sw.Start(cfg.Sweep.Schedule); err != nil {
			return err
		}
		defer sw.Stop()

		engine := server.NewStoreEngine(db)
		r := server.Router(engine, cfg.Server.AllowedOrigins)

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Printf("serving on %s", addr)
		return r.Run(addr)
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <target-cluster-id> <source-cluster-id>",
	Short: "Fold one cluster into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := db.MergeClusters(args[0], args[1])
		if err != nil {
			return err
		}
		if !result.Deleted {
			fmt.Println("Nothing merged: check that both clusters exist and differ.")
			return nil
		}
		fmt.Printf("Moved %d article links from %s into %s\n", result.Moved, args[1], args[0])
		return nil
	},
}
