// Command oma-analysis runs the operational modal analysis pipeline over a
// batch of modal estimates: harmonic artifact removal against rotor speed
// telemetry, density clustering into mode families, reference tracking, and
// persistence of the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/WEILMAX/oma-tracking/internal/config"
	"github.com/WEILMAX/oma-tracking/internal/modal"
	"github.com/WEILMAX/oma-tracking/internal/modestore"
	"github.com/WEILMAX/oma-tracking/internal/monitor"
	"github.com/WEILMAX/oma-tracking/internal/runs"
	"github.com/WEILMAX/oma-tracking/internal/version"
)

var (
	modalFile     = flag.String("modal", "", "CSV file of modal estimates (required)")
	scadaFile     = flag.String("scada", "", "CSV file of rotor telemetry; empty skips harmonic removal")
	configFile    = flag.String("config", "", "Tuning config JSON (default: built-in defaults)")
	dbFile        = flag.String("db", "oma_artifacts.db", "Path to the SQLite artifact database")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations directory")
	outDir        = flag.String("out", "", "Directory for PNG plots; empty skips plotting")
	listen        = flag.String("listen", "", "HTTP listen address for charts; empty skips serving")
	modelName     = flag.String("model", "", "Reference set name to save the fitted clusters under")
	trackModel    = flag.String("track", "", "Reference set name to classify observations against")
	trackVersion  = flag.Int("track-version", 0, "Reference set version for -track (0 = latest)")
	aggregateOut  = flag.String("aggregate-out", "", "CSV file for time-aggregated output; empty skips aggregation")
	migrateCmd    = flag.String("migrate", "", "Run a schema maintenance command (up, down, version, force) and exit")
	forceVersion  = flag.Int("force-version", 0, "Target schema version for '-migrate force'")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("oma-analysis %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *migrateCmd != "" {
		runMigrateCommand()
		return
	}

	if *modalFile == "" {
		log.Fatal("-modal is required")
	}

	cfg := loadConfig()
	roles := modal.DefaultRoles()

	store, err := modestore.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open artifact store: %v", err)
	}
	defer store.Close()
	if err := store.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate artifact store: %v", err)
	}

	manager := runs.NewManager(store)
	runID, err := manager.StartRun(cfg)
	if err != nil {
		log.Fatalf("failed to start run: %v", err)
	}

	if err := runPipeline(cfg, roles, store, manager, runID); err != nil {
		if ferr := manager.FailRun(err.Error()); ferr != nil {
			log.Printf("failed to record run failure: %v", ferr)
		}
		log.Fatalf("analysis failed: %v", err)
	}
	if err := manager.CompleteRun(); err != nil {
		log.Fatalf("failed to complete run: %v", err)
	}
}

func runMigrateCommand() {
	store, err := modestore.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open artifact store: %v", err)
	}
	defer store.Close()

	switch *migrateCmd {
	case "up":
		if err := store.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Printf("Schema migrated up")
	case "down":
		if err := store.MigrateDown(*migrationsDir); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Printf("Rolled back one migration")
	case "version":
		v, dirty, err := store.MigrateVersion(*migrationsDir)
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		log.Printf("Schema version %d (dirty=%v)", v, dirty)
	case "force":
		if *forceVersion <= 0 {
			log.Fatal("'-migrate force' requires -force-version")
		}
		if err := store.MigrateForce(*migrationsDir, *forceVersion); err != nil {
			log.Fatalf("migrate force: %v", err)
		}
		log.Printf("Schema version forced to %d", *forceVersion)
	default:
		log.Fatalf("unknown -migrate command %q; use up, down, version or force", *migrateCmd)
	}
}

func loadConfig() *config.TuningConfig {
	if *configFile == "" {
		return config.LoadDefaultConfig()
	}
	cfg, err := config.LoadTuningConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func runPipeline(cfg *config.TuningConfig, roles modal.Roles, store *modestore.Store, manager *runs.Manager, runID string) error {
	modalData, err := modal.LoadCSV(*modalFile)
	if err != nil {
		return err
	}
	manager.RecordInputRows(modalData.Len())
	log.Printf("Loaded %d modal rows from %s", modalData.Len(), *modalFile)

	cleaned := modalData
	var plotData *modal.Table
	if *scadaFile != "" {
		scada, err := modal.LoadCSV(*scadaFile)
		if err != nil {
			return err
		}

		hf := modal.NewHarmonicFilter(cfg.GetHarmonicOrders())
		hf.MinRPM = cfg.GetMinRPM()
		hf.MaxDistance = cfg.GetMaxHarmonicDistance()
		hf.Roles = roles

		cleaned, err = hf.RemoveHarmonics(modalData, scada)
		if err != nil {
			return err
		}
		plotData, err = hf.PlotDistanceData(modalData, scada, 0, 0)
		if err != nil {
			return err
		}
		removed := modalData.Len() - cleaned.Len()
		manager.RecordRemovedRows(removed)
		log.Printf("Removed %d harmonic rows (%d remain)", removed, cleaned.Len())
	}

	clusterer := modal.NewModeClusterer()
	clusterer.Algorithm = modal.ClusterAlgorithm(cfg.GetAlgorithm())
	clusterer.DBSCAN.Eps = cfg.GetEps()
	clusterer.DBSCAN.MinSamples = cfg.GetMinSamples()
	clusterer.HDBSCAN.MinClusterSize = cfg.GetMinClusterSize()
	clusterer.Features.Multipliers = cfg.GetMultipliers()
	clusterer.Features.TimeDivider = cfg.GetTimeDivider()
	clusterer.Roles = roles
	clusterer.MinModalSize = cfg.GetMinModalSize()
	clusterer.MaxModalDamping = cfg.GetMaxModalDamping()
	clusterer.FrequencyRange = cfg.GetFrequencyRange()

	fitted, err := clusterer.Fit(cleaned)
	if err != nil {
		return err
	}
	labeled := fitted.Predict(cfg.GetMinClusterSize())

	refs, err := modal.BuildReferenceClusters(labeled, roles)
	if err != nil {
		return err
	}
	manager.RecordClusters(len(refs))
	log.Printf("Found %d mode clusters", len(refs))

	summaries, err := modal.SummarizeClusters(labeled, roles)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		log.Printf("  mode %d: n=%d freq=%.3f±%.3f Hz damping=%.2f±%.2f%% size=%.1f",
			s.Label, s.Count, s.FrequencyMean, s.FrequencyStd, s.DampingMean, s.DampingStd, s.SizeMean)
	}

	if *modelName != "" {
		v, err := store.SaveReferenceSet(*modelName, refs)
		if err != nil {
			return err
		}
		log.Printf("Saved reference set %q version %d", *modelName, v)
	}

	if *trackModel != "" {
		trackRefs, err := store.LoadReferenceSet(*trackModel, *trackVersion)
		if err != nil {
			return err
		}
		names, err := modal.ClassifyTable(trackRefs, cleaned, roles)
		if err != nil {
			return err
		}
		tracked := 0
		for _, name := range names {
			if name != modal.LabelUndefined {
				tracked++
			}
		}
		log.Printf("Tracked %d of %d observations against %q", tracked, len(names), *trackModel)
	}

	if err := store.SaveLabeledModes(runID, labeled, roles); err != nil {
		return err
	}

	if *aggregateOut != "" {
		agg, err := modal.Aggregate(labeled, cfg.GetAggregatePeriod(), cfg.GetMinCoverage())
		if err != nil {
			return err
		}
		if err := modal.WriteCSV(agg, *aggregateOut); err != nil {
			return err
		}
		log.Printf("Wrote %d aggregated rows to %s", agg.Len(), *aggregateOut)
	}

	if *outDir != "" {
		if err := writePlots(plotData, labeled, roles, cfg.GetHarmonicOrders()); err != nil {
			return err
		}
	}

	if *listen != "" {
		serveCharts(labeled, plotData, roles, cfg.GetHarmonicOrders(), refs)
	}

	return nil
}

func writePlots(plotData, labeled *modal.Table, roles modal.Roles, orders []int) error {
	mp, err := monitor.NewModePlotter(*outDir)
	if err != nil {
		return err
	}
	if plotData != nil {
		file, err := mp.SaveHarmonicsPlot("harmonics", plotData, roles, orders)
		if err != nil {
			return err
		}
		log.Printf("Wrote %s", file)
	}
	file, err := mp.SaveModeScatterPlot("modes", labeled, roles)
	if err != nil {
		return err
	}
	log.Printf("Wrote %s", file)
	return nil
}

func serveCharts(labeled, plotData *modal.Table, roles modal.Roles, orders []int, refs []modal.ReferenceCluster) {
	ws := monitor.NewWebServer(*listen)
	ws.SetLabeledModes(labeled, roles, orders)
	if plotData != nil {
		ws.SetModalData(plotData)
	}
	ws.SetReferences(refs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ws.Start(ctx); err != nil {
		log.Printf("chart server error: %v", err)
	}
}
