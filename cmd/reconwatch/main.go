package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	"github.com/alexanderjulianmartinez/recon-watch/internal/config"
	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect/oracle"
	"github.com/alexanderjulianmartinez/recon-watch/internal/dialect/postgres"
	"github.com/alexanderjulianmartinez/recon-watch/internal/fkcheck"
	"github.com/alexanderjulianmartinez/recon-watch/internal/recon"
	"github.com/alexanderjulianmartinez/recon-watch/internal/report"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "reconwatch error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		printUsage()
		return nil
	}

	switch args[1] {
	case "run":
		return runRecon(args[2:])
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func runRecon(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("missing required flag: --config")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx := context.Background()

	oraDB, err := openDB(ctx, "oracle", cfg.Oracle.DSN)
	if err != nil {
		return fmt.Errorf("oracle connection: %w", err)
	}
	defer oraDB.Close()

	pgDB, err := openDB(ctx, "pgx", cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres connection: %w", err)
	}
	defer pgDB.Close()

	specs, err := tableSpecs(ctx, cfg, oraDB)
	if err != nil {
		return err
	}
	log.Infow("starting reconciliation", "tables", len(specs), "workers", cfg.Recon.Workers)

	orch := &recon.Orchestrator{
		Source: &recon.Side{
			Name:    "ORA",
			DB:      oraDB,
			Dialect: oracle.Dialect{},
			Timeout: cfg.Recon.QueryTimeout(),
			Log:     log,
		},
		Target: &recon.Side{
			Name:    "PG",
			DB:      pgDB,
			Dialect: postgres.Dialect{},
			Timeout: cfg.Recon.QueryTimeout(),
			Log:     log,
		},
		SizeThreshold: cfg.Recon.SizeThreshold,
		Workers:       cfg.Recon.Workers,
		Log:           log,
	}
	res := orch.Run(ctx, specs)

	sink := &report.CSVSink{Dir: cfg.Recon.OutputDir}
	if err := sink.Write(res); err != nil {
		return err
	}

	if cfg.Kafka.Topic != "" {
		pub := report.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err := pub.Publish(ctx, res.RunID, res.Mismatches()); err != nil {
			log.Errorw("mismatch event publishing failed", "error", err)
		}
		if err := pub.Close(); err != nil {
			log.Warnw("kafka writer close failed", "error", err)
		}
	}

	if cfg.Recon.FKSchema != "" {
		results, err := fkcheck.Run(ctx, pgDB, postgres.Dialect{}.FKOrphanSQLQuery(), cfg.Recon.FKSchema, cfg.Recon.QueryTimeout())
		if err != nil {
			log.Errorw("fk orphan checks failed", "schema", cfg.Recon.FKSchema, "error", err)
		}
		if len(results) > 0 || err == nil {
			if werr := sink.WriteFKOrphans(cfg.Recon.FKSchema, results); werr != nil {
				return werr
			}
		}
	}

	sum := res.Summary()
	log.Infow("reconciliation finished",
		"run_id", sum.RunID,
		"tables", sum.Tables,
		"done", sum.Done,
		"skipped_large", sum.SkippedLarge,
		"failed", sum.Failed,
		"mismatched", sum.Mismatched,
		"output_dir", cfg.Recon.OutputDir,
	)
	return nil
}

func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping failed: %w", driver, err)
	}
	return db, nil
}

func tableSpecs(ctx context.Context, cfg *config.Config, oraDB *sql.DB) ([]recon.TableSpec, error) {
	if len(cfg.Tables) > 0 {
		specs := make([]recon.TableSpec, 0, len(cfg.Tables))
		for _, t := range cfg.Tables {
			specs = append(specs, recon.TableSpec{
				SourceSchema: cfg.Oracle.Schema,
				SourceTable:  t.SourceTable,
				TargetSchema: cfg.Postgres.Schema,
				TargetTable:  t.TargetTable,
				PK:           t.PrimaryKey,
				TargetPK:     t.TargetPK,
				Chunks:       t.Chunks,
			})
		}
		return specs, nil
	}

	insp := oracle.NewInspector(oraDB, cfg.Recon.QueryTimeout())
	specs, err := insp.FetchTableSpecs(ctx, cfg.Oracle.Schema, cfg.Postgres.Schema, cfg.Recon.DefaultChunks)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no tables with primary keys found in schema %s", cfg.Oracle.Schema)
	}
	return specs, nil
}

func printUsage() {
	fmt.Print(`reconwatch - Oracle to Postgres migration reconciliation

Usage:
  reconwatch run --config <path>

Commands:
  run       Reconcile source and target per config
  help      Show this help message
`)
}
