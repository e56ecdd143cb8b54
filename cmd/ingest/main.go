// Command ingest processes a directory of webhook payload JSON files:
// new messages are upserted and status updates reconciled against the
// message store. Re-running the same directory is safe.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/chatflow/chatflow/internal/config"
	"github.com/chatflow/chatflow/internal/database"
	"github.com/chatflow/chatflow/internal/ingest"
	postgresrepo "github.com/chatflow/chatflow/internal/repository/postgres"
)

func main() {
	var (
		payloadsDir = pflag.String("payloads", "", "directory of payload JSON files (defaults to PAYLOADS_DIR)")
		envFile     = pflag.String("env", ".env", "environment file to load")
	)
	pflag.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.Load()

	dir := *payloadsDir
	if dir == "" {
		dir = cfg.PayloadsDir
	}

	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	docs, err := ingest.LoadDir(dir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Found %d payload documents in %s", len(docs), dir)

	reconciler := ingest.NewReconciler(postgresrepo.NewMessageRepo(pool))
	sum, err := reconciler.Reconcile(context.Background(), docs)
	if err != nil {
		log.Fatalf("reconcile aborted: %v (inserted=%d statuses_applied=%d orphan_statuses=%d skipped=%d)",
			err, sum.Inserted, sum.StatusesApplied, sum.OrphanStatuses, sum.Skipped)
	}
	log.Printf("Done: inserted=%d statuses_applied=%d orphan_statuses=%d skipped=%d",
		sum.Inserted, sum.StatusesApplied, sum.OrphanStatuses, sum.Skipped)
}
