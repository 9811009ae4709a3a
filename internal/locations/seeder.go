package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seedBatchSize caps rows per insert so large ward files do not blow
// the statement size limit.
const seedBatchSize = 500

// provinceRecord matches the provinces reference JSON.
type provinceRecord struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	NameWithType string `json:"name_with_type"`
	Slug         string `json:"slug"`
	Type         string `json:"type"`
}

// wardRecord matches the wards reference JSON. ParentCode names the
// district the ward belongs to.
type wardRecord struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	NameWithType string `json:"name_with_type"`
	ParentCode   string `json:"parent_code"`
	Path         string `json:"path"`
}

// Seeder loads the province/ward reference JSON into the locations
// table and derives the district level from ward parent codes.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder constructs a Seeder.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed imports both reference files. Existing codes are left untouched,
// so reseeding is idempotent. An empty file path skips that level.
func (s *Seeder) Seed(ctx context.Context, provincesFile, wardsFile string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("locations: seeder not initialized")
	}
	if provincesFile != "" {
		if errSeed := s.seedProvinces(ctx, provincesFile); errSeed != nil {
			return errSeed
		}
	}
	if wardsFile != "" {
		if errSeed := s.seedWards(ctx, wardsFile); errSeed != nil {
			return errSeed
		}
		if errExtract := s.extractDistricts(ctx); errExtract != nil {
			return errExtract
		}
	}
	return nil
}

func (s *Seeder) seedProvinces(ctx context.Context, path string) error {
	raw, errRead := os.ReadFile(path)
	if errRead != nil {
		return fmt.Errorf("locations: read provinces file: %w", errRead)
	}

	var records []provinceRecord
	if errDecode := json.Unmarshal(raw, &records); errDecode != nil {
		return fmt.Errorf("locations: decode provinces file: %w", errDecode)
	}

	rows := make([]models.Location, 0, len(records))
	for _, rec := range records {
		if rec.Code == "" {
			continue
		}
		rows = append(rows, models.Location{
			Code:         rec.Code,
			Name:         rec.Name,
			NameWithType: rec.NameWithType,
			Level:        models.LevelProvince,
			Slug:         rec.Slug,
			Type:         rec.Type,
		})
	}

	if errInsert := s.insertBatched(ctx, rows); errInsert != nil {
		return fmt.Errorf("locations: seed provinces: %w", errInsert)
	}
	log.WithField("count", len(rows)).Info("locations: provinces seeded")
	return nil
}

func (s *Seeder) seedWards(ctx context.Context, path string) error {
	raw, errRead := os.ReadFile(path)
	if errRead != nil {
		return fmt.Errorf("locations: read wards file: %w", errRead)
	}

	var records []wardRecord
	if errDecode := json.Unmarshal(raw, &records); errDecode != nil {
		return fmt.Errorf("locations: decode wards file: %w", errDecode)
	}

	rows := make([]models.Location, 0, len(records))
	for _, rec := range records {
		if rec.Code == "" {
			continue
		}
		row := models.Location{
			Code:         rec.Code,
			Name:         rec.Name,
			NameWithType: rec.NameWithType,
			Level:        models.LevelWard,
			Path:         rec.Path,
		}
		if rec.ParentCode != "" {
			parent := rec.ParentCode
			row.ParentCode = &parent
		}
		rows = append(rows, row)
	}

	if errInsert := s.insertBatched(ctx, rows); errInsert != nil {
		return fmt.Errorf("locations: seed wards: %w", errInsert)
	}
	log.WithField("count", len(rows)).Info("locations: wards seeded")
	return nil
}

// extractDistricts derives the district level: every distinct ward
// parent code becomes a district row, parented to the province whose
// code is the leading two digits of the district code.
func (s *Seeder) extractDistricts(ctx context.Context) error {
	var parentCodes []string
	if errFind := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("level = ? AND parent_code IS NOT NULL", models.LevelWard).
		Distinct().
		Pluck("parent_code", &parentCodes).Error; errFind != nil {
		return fmt.Errorf("locations: collect district codes: %w", errFind)
	}

	rows := make([]models.Location, 0, len(parentCodes))
	for _, code := range parentCodes {
		if code == "" {
			continue
		}
		row := models.Location{
			Code:         code,
			Name:         code,
			NameWithType: code,
			Level:        models.LevelDistrict,
		}
		if len(code) >= 2 {
			province := code[:2]
			row.ParentCode = &province
		}
		rows = append(rows, row)
	}

	if errInsert := s.insertBatched(ctx, rows); errInsert != nil {
		return fmt.Errorf("locations: seed districts: %w", errInsert)
	}
	log.WithField("count", len(rows)).Info("locations: districts derived")
	return nil
}

func (s *Seeder) insertBatched(ctx context.Context, rows []models.Location) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, seedBatchSize).Error
}
