package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/utils"
)

// Recomputes variance on hygiene facts. Needed after goal rows are edited
// retroactively, since variance is stored denormalized on each fact.
func main() {
	tenantID := flag.String("tenant-id", "", "Optional: backfill only one tenant. If empty, backfills all tenants.")
	from := flag.String("from", "", "Optional: start date (YYYY-MM-DD). Defaults to the earliest hygiene fact.")
	to := flag.String("to", "", "Optional: end date (YYYY-MM-DD). Defaults to today.")
	dryRun := flag.Bool("dry-run", false, "Report rows that would change without writing")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	// Tenant scoping is applied per fact below; the guard would block the
	// cross-tenant scan otherwise.
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	query := db.WithContext(ctx).Model(&models.HygieneFact{})
	if strings.TrimSpace(*tenantID) != "" {
		query = query.Where("tenant_id = ?", strings.TrimSpace(*tenantID))
	}
	if *from != "" {
		start, err := time.Parse("2006-01-02", *from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -from date: %v\n", err)
			os.Exit(1)
		}
		query = query.Where("fact_date >= ?", start)
	}
	if *to != "" {
		end, err := time.Parse("2006-01-02", *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -to date: %v\n", err)
			os.Exit(1)
		}
		query = query.Where("fact_date <= ?", end)
	}

	var facts []models.HygieneFact
	if err := query.Order("tenant_id, location_id, fact_date").Find(&facts).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list hygiene facts: %v\n", err)
		os.Exit(1)
	}
	if len(facts) == 0 {
		fmt.Println("no hygiene facts in range; nothing to do")
		return
	}

	changed := 0
	for i := range facts {
		fact := &facts[i]
		before := fact.VariancePct
		fact.ComputeDerived()

		if variancesEqual(before, fact.VariancePct) {
			continue
		}
		changed++

		if *dryRun {
			fmt.Printf("would update fact %d (tenant %s, location %d, %s): %s -> %s\n",
				fact.ID, fact.TenantId, fact.LocationId, fact.FactDate.Format("2006-01-02"),
				varianceString(before), varianceString(fact.VariancePct))
			continue
		}

		if err := db.WithContext(ctx).Model(fact).Update("variance_pct", fact.VariancePct).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update fact %d: %v\n", fact.ID, err)
			os.Exit(1)
		}
	}

	if *dryRun {
		fmt.Printf("dry run: %d of %d facts would change\n", changed, len(facts))
		return
	}
	fmt.Printf("done: updated %d of %d facts\n", changed, len(facts))
}

func variancesEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func varianceString(v *decimal.Decimal) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}
