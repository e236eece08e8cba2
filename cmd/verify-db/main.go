// Command verify-db checks database connectivity and prints the most recent
// archived runs. With "purge <days>" it instead deletes runs older than the
// given retention window.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cdg-engine/internal/db"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	archive := db.NewRunArchive(pool)

	if len(os.Args) > 1 && os.Args[1] == "purge" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: verify-db purge <days>")
		}
		days, err := strconv.Atoi(os.Args[2])
		if err != nil || days < 1 {
			log.Fatalf("Invalid retention days %q", os.Args[2])
		}
		cutoff := time.Now().AddDate(0, 0, -days)
		deleted, err := archive.PurgeBefore(ctx, cutoff)
		if err != nil {
			log.Fatalf("purge runs: %v", err)
		}
		fmt.Printf("Deleted %d runs older than %s.\n", deleted, cutoff.Format("2006-01-02"))
		return
	}

	runs, err := archive.ListRuns(ctx, "", "", 10)
	if err != nil {
		log.Fatalf("list runs: %v", err)
	}

	fmt.Println("Database connection OK.")
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return
	}
	fmt.Printf("%-38s %-10s %-8s %-9s %s\n", "RUN", "KIND", "PERIOD", "ANOMALIES", "CREATED")
	for _, r := range runs {
		fmt.Printf("%-38s %-10s %-8s %-9d %s\n",
			r.RunID, r.Kind, r.Period, r.AnomalyCount, r.CreatedAt.Format("2006-01-02 15:04"))
	}
}
