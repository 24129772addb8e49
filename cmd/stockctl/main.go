package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/panjf2000/ants/v2"
	"github.com/stockpiled/stockpile/config"
	"github.com/stockpiled/stockpile/internal/app"
	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stockpiled/stockpile/internal/inventory"
	"go.uber.org/zap"
)

// stockctl is the maintenance companion of the stockpile server: it lists
// the product table across all owners and repairs owner ids after an
// account migration.

var (
	conffile = flag.String("c", "/etc/stockpile.yml", "config file")
	csvOut   = flag.String("csv", "", "write the check report to a CSV file")
	since    = flag.String("since", "", "only include products created after this date")
	fromUID  = flag.Int64("from", 0, "owner id to reassign products from")
	toUID    = flag.Int64("to", 0, "owner id to reassign products to")
	workers  = flag.Int("workers", 8, "reassign worker pool size")
)

type productRow struct {
	ID        int64  `csv:"id"`
	OwnerID   int64  `csv:"owner_id"`
	Name      string `csv:"name"`
	Ref       int64  `csv:"ref"`
	Quantity  int64  `csv:"quantity"`
	CreatedAt string `csv:"created_at"`
}

func usage() {
	fmt.Fprint(os.Stderr, "stockctl usage:\nstockctl [-c configfile] check [-csv file] [-since date]\nstockctl [-c configfile] reassign -from OLDID -to NEWID [-workers N]\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg := config.LoadConfig(*conffile)
	cfg.Logger.FileEnable = false

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	repo := inventory.NewGormProductRepository(application.DB())

	switch flag.Arg(0) {
	case "check":
		runCheck(repo)
	case "reassign":
		runReassign(application, repo)
	default:
		usage()
	}
}

func runCheck(repo inventory.ProductRepository) {
	products, err := repo.ListAll(context.Background())
	if err != nil {
		zap.S().Fatalf("failed to list products: %v", err)
	}

	if *since != "" {
		cutoff, err := dateparse.ParseAny(*since)
		if err != nil {
			zap.S().Fatalf("invalid -since value %q: %v", *since, err)
		}
		filtered := products[:0]
		for _, p := range products {
			if p.CreatedAt.After(cutoff) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		fmt.Printf("DocID: %d | Name: %s | OwnerID: %d\n", p.ID, p.Name, p.OwnerID)
		rows = append(rows, productRow{
			ID:        p.ID,
			OwnerID:   p.OwnerID,
			Name:      p.Name,
			Ref:       p.Ref,
			Quantity:  p.Quantity,
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Printf("Total products: %d\n", len(products))

	if *csvOut != "" {
		f, err := os.Create(*csvOut)
		if err != nil {
			zap.S().Fatalf("failed to create %s: %v", *csvOut, err)
		}
		defer f.Close()
		if err := gocsv.MarshalFile(&rows, f); err != nil {
			zap.S().Fatalf("failed to write CSV: %v", err)
		}
		fmt.Printf("Report written to %s\n", *csvOut)
	}
}

func runReassign(application *app.Application, repo inventory.ProductRepository) {
	if *fromUID == 0 || *toUID == 0 {
		usage()
	}

	if *workers <= 1 {
		// single UPDATE, no per-row progress
		n, err := repo.ReassignOwner(context.Background(), *fromUID, *toUID)
		if err != nil {
			zap.S().Fatalf("reassign failed: %v", err)
		}
		fmt.Printf("Reassignment complete: %d updated\n", n)
		return
	}

	var products []domain.Product
	if err := application.DB().
		Select("id", "name").
		Where("owner_id = ?", *fromUID).
		Find(&products).Error; err != nil {
		zap.S().Fatalf("failed to query products: %v", err)
	}
	fmt.Printf("Products to reassign: %d\n", len(products))

	pool, err := ants.NewPool(*workers)
	if err != nil {
		zap.S().Fatalf("failed to create worker pool: %v", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var fixed, failed int64
	for _, p := range products {
		p := p
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			err := application.DB().
				Model(&domain.Product{}).
				Where("id = ?", p.ID).
				Update("owner_id", *toUID).Error
			if err != nil {
				atomic.AddInt64(&failed, 1)
				zap.S().Errorf("product %d failed: %v", p.ID, err)
				return
			}
			atomic.AddInt64(&fixed, 1)
			fmt.Printf("Product %d reassigned\n", p.ID)
		})
		if err != nil {
			wg.Done()
			zap.S().Errorf("submit failed: %v", err)
		}
	}
	wg.Wait()

	fmt.Printf("Reassignment complete: %d updated, %d failed\n", fixed, failed)
}
