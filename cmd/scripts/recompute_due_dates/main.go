// Command recompute_due_dates re-derives due_on for every activity that has
// a duration, repairing rows saved with a non-inclusive end date.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const batchSize = 500

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	dryRun := flag.Bool("dry-run", false, "report changes without writing them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := models.Open(&cfg.Database, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fmt.Println("Connected to database successfully!")
	checked, fixed, err := recompute(db, *dryRun)
	if err != nil {
		log.Fatalf("Failed to recompute due dates: %v", err)
	}

	verb := "Updated"
	if *dryRun {
		verb = "Would update"
	}
	fmt.Printf("Checked %d activities with a duration. %s %d.\n", checked, verb, fixed)
}

// recompute walks activities with a start and duration in batches and
// rewrites any due_on that differs from the derived one.
func recompute(db *gorm.DB, dryRun bool) (checked, fixed int, err error) {
	var batch []models.Activity
	err = db.Where("duration_days IS NOT NULL AND start_on IS NOT NULL").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				a := &batch[i]
				checked++
				want := scheduling.DueDateFor(*a.StartOn, *a.DurationDays)
				if a.DueOn != nil && scheduling.DateOf(*a.DueOn).Equal(want) {
					continue
				}
				fmt.Printf("%-6d %-40s %s -> %s\n", a.ID, a.Title, formatDate(a.DueOn), want.Format("2006-01-02"))
				fixed++
				if dryRun {
					continue
				}
				if err := db.Model(&models.Activity{}).Where("id = ?", a.ID).Update("due_on", want).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
	return checked, fixed, err
}

func formatDate(d *time.Time) string {
	if d == nil {
		return "(none)"
	}
	return d.Format("2006-01-02")
}
