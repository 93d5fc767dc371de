// admin is the operator tool for the parent problem register: inspect
// records, drive lifecycle transitions, and perform audited purges. It is
// the only purge path in the system.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/problem-register/internal/adapters/cache"
	"github.com/zatekoja/problem-register/internal/adapters/database"
	"github.com/zatekoja/problem-register/internal/application/services"
	"github.com/zatekoja/problem-register/internal/domain/entities"
	"github.com/zatekoja/problem-register/internal/domain/repositories"
	"github.com/zatekoja/problem-register/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/problem-register/internal/infrastructure/clients/redis"
	"github.com/zatekoja/problem-register/internal/infrastructure/observability"
	"github.com/zatekoja/problem-register/pkg/config"
)

func main() {
	var (
		createID    string
		summary     string
		getID       string
		listStatus  string
		updateID    string
		resolveID   string
		reopenID    string
		purgeID     string
		purgedBy    string
		purgeReason string
		history     bool
	)

	flag.StringVar(&createID, "create", "", "Create a problem with the given parent_id (requires -summary)")
	flag.StringVar(&summary, "summary", "", "Core issue summary for -create or -update-summary")
	flag.StringVar(&getID, "get", "", "Print the problem with the given parent_id")
	flag.StringVar(&listStatus, "list", "", "List problems by status (Active|Resolved)")
	flag.StringVar(&updateID, "update-summary", "", "Replace the summary of the given parent_id (requires -summary)")
	flag.StringVar(&resolveID, "resolve", "", "Mark the given parent_id Resolved")
	flag.StringVar(&reopenID, "reopen", "", "Mark the given parent_id Active again")
	flag.StringVar(&purgeID, "purge", "", "Physically delete the given parent_id (requires -by)")
	flag.StringVar(&purgedBy, "by", "", "Operator performing the purge")
	flag.StringVar(&purgeReason, "reason", "", "Reason for the purge")
	flag.BoolVar(&history, "history", false, "Print the purge audit trail")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var metrics *observability.Metrics
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			metrics, err = observability.InitMetrics()
			if err != nil {
				log.Fatalf("Failed to initialize metrics: %v", err)
			}
		}
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	var problemRepo repositories.ParentProblemRepository = database.NewParentProblemAdapter(pgClient)

	if cfg.Cache.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Printf("Warning: Redis unavailable, running uncached: %v", err)
		} else {
			defer redisClient.Close()
			cacheProvider := cache.NewRedisAdapter(redisClient)
			problemRepo = database.NewCachedParentProblemAdapter(problemRepo, cacheProvider, cfg.Cache.ProblemTTLSeconds, metrics)
		}
	}

	auditRepo := database.NewPurgeAuditAdapter(pgClient)
	svc := services.NewProblemService(problemRepo, auditRepo, metrics)

	switch {
	case createID != "":
		problem, err := svc.Create(ctx, createID, summary)
		exitOnErr(err)
		printJSON(problem)

	case getID != "":
		problem, err := svc.Get(ctx, getID)
		exitOnErr(err)
		printJSON(problem)

	case listStatus != "":
		status, ok := entities.ParseProblemStatus(listStatus)
		if !ok {
			log.Fatalf("Invalid status %q (want Active or Resolved)", listStatus)
		}
		problems, err := svc.ListByStatus(ctx, status)
		exitOnErr(err)
		printJSON(problems)

	case updateID != "":
		exitOnErr(svc.UpdateSummary(ctx, updateID, summary))
		log.Printf("Summary updated for %s", updateID)

	case resolveID != "":
		exitOnErr(svc.Resolve(ctx, resolveID))
		log.Printf("Resolved %s", resolveID)

	case reopenID != "":
		exitOnErr(svc.Reopen(ctx, reopenID))
		log.Printf("Reopened %s", reopenID)

	case purgeID != "":
		record, err := svc.Purge(ctx, purgeID, purgedBy, purgeReason)
		exitOnErr(err)
		printJSON(record)

	case history:
		records, err := svc.PurgeHistory(ctx)
		exitOnErr(err)
		printJSON(records)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func exitOnErr(err error) {
	if err != nil {
		log.Fatalf("Operation failed: %v", err)
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}
