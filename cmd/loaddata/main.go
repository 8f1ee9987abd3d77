package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chefshare/backend/config"
	"github.com/chefshare/backend/internal/database"
	"github.com/chefshare/backend/internal/logger"
	"github.com/chefshare/backend/internal/models"
)

// loaddata imports reference data from CSV files.
//
// Ingredients file: one "name,measurement_unit" record per line.
// Tags file: one "name,color[,slug]" record per line. When the slug column
// is empty or missing it is derived from the name.
func main() {
	ingredientsPath := flag.String("ingredients", "", "path to ingredients CSV")
	tagsPath := flag.String("tags", "", "path to tags CSV")
	flag.Parse()

	log := logger.New()

	if *ingredientsPath == "" && *tagsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: loaddata -ingredients data/ingredients.csv [-tags data/tags.csv]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	if *ingredientsPath != "" {
		n, err := loadIngredients(db, *ingredientsPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load ingredients")
		}
		log.WithField("count", n).Info("ingredients loaded")
	}

	if *tagsPath != "" {
		n, err := loadTags(db, *tagsPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load tags")
		}
		log.WithField("count", n).Info("tags loaded")
	}
}

func loadIngredients(db *gorm.DB, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	count := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			if len(row) < 2 || row[0] == "" || row[1] == "" {
				return fmt.Errorf("%s: malformed record on line %d", path, i+1)
			}
			// Ingredients carry no uniqueness constraint, so re-runs
			// dedupe by explicit lookup instead of ON CONFLICT.
			var existing models.Ingredient
			err := tx.Where("name = ? AND measurement_unit = ?", row[0], row[1]).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			ingredient := models.Ingredient{Name: row[0], MeasurementUnit: row[1]}
			if err := tx.Create(&ingredient).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func loadTags(db *gorm.DB, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	count := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			if len(row) < 2 || row[0] == "" || row[1] == "" {
				return fmt.Errorf("%s: malformed record on line %d", path, i+1)
			}
			tag := models.Tag{Name: row[0], Color: row[1]}
			if len(row) > 2 && row[2] != "" {
				tag.Slug = row[2]
			} else {
				tag.Slug = slug.Make(row[0])
			}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag)
			if result.Error != nil {
				return result.Error
			}
			count += int(result.RowsAffected)
		}
		return nil
	})
	return count, err
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}
