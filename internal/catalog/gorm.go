package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// EmbedFunc turns text into a vector; the signature matches chromem.EmbeddingFunc
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

type productRecord struct {
	PartNumber           string `gorm:"primaryKey;size:32"`
	Name                 string `gorm:"not null"`
	Description          string `gorm:"type:text"`
	Brand                string `gorm:"size:64;index"`
	ApplianceType        string `gorm:"size:32;index"`
	Price                float64
	ImageURL             string
	InstallationSteps    datatypes.JSON `gorm:"type:jsonb"`
	InstallationGuideURL string
	VideoURL             string
	Embedding            *pgvector.Vector      `gorm:"type:vector"`
	CompatibleModels     []compatibilityRecord `gorm:"foreignKey:PartNumber;references:PartNumber;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time             `gorm:"autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"autoUpdateTime"`
}

func (productRecord) TableName() string {
	return "products"
}

type compatibilityRecord struct {
	PartNumber  string `gorm:"primaryKey;size:32"`
	ModelNumber string `gorm:"primaryKey;size:32;index"`
}

func (compatibilityRecord) TableName() string {
	return "part_compatibility"
}

type guideRecord struct {
	ID            string           `gorm:"primaryKey;size:128"`
	Problem       string           `gorm:"not null"`
	ApplianceType string           `gorm:"size:32;index"`
	Brand         string           `gorm:"size:64"`
	Causes        datatypes.JSON   `gorm:"type:jsonb"`
	Steps         datatypes.JSON   `gorm:"type:jsonb"`
	RelatedParts  datatypes.JSON   `gorm:"type:jsonb"`
	Embedding     *pgvector.Vector `gorm:"type:vector"`
}

func (guideRecord) TableName() string {
	return "troubleshooting_guides"
}

// GormCatalog reads the catalog from Postgres. Embeddings live in pgvector
// columns so the same database can answer similarity queries.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// OpenPostgres connects with a small pool suitable for a read-mostly catalog
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates the vector extension and the catalog tables
func (c *GormCatalog) Migrate(ctx context.Context) error {
	db := c.db.WithContext(ctx)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&productRecord{}, &compatibilityRecord{}, &guideRecord{}); err != nil {
		return fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return nil
}

func (c *GormCatalog) GetProduct(ctx context.Context, partNumber string) (*models.Product, error) {
	var rec productRecord
	err := c.db.WithContext(ctx).
		Preload("CompatibleModels").
		First(&rec, "part_number = ?", strings.ToUpper(partNumber)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := toProduct(rec)
	return &p, nil
}

func (c *GormCatalog) ProductsForModel(ctx context.Context, modelNumber string) ([]models.Product, error) {
	var recs []productRecord
	err := c.db.WithContext(ctx).
		Preload("CompatibleModels").
		Joins("JOIN part_compatibility pc ON pc.part_number = products.part_number").
		Where("pc.model_number = ?", strings.ToUpper(modelNumber)).
		Order("products.part_number").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toProducts(recs), nil
}

func (c *GormCatalog) Products(ctx context.Context) ([]models.Product, error) {
	var recs []productRecord
	if err := c.db.WithContext(ctx).Preload("CompatibleModels").Order("part_number").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toProducts(recs), nil
}

func (c *GormCatalog) Guides(ctx context.Context) ([]models.TroubleshootingGuide, error) {
	var recs []guideRecord
	if err := c.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]models.TroubleshootingGuide, len(recs))
	for i, r := range recs {
		out[i] = toGuide(r)
	}
	return out, nil
}

// UpsertProducts writes products and their compatibility rows. When embed is
// set each product's search text is embedded into the vector column.
func (c *GormCatalog) UpsertProducts(ctx context.Context, products []models.Product, embed EmbedFunc) error {
	recs := make([]productRecord, 0, len(products))
	for _, p := range products {
		rec, err := fromProduct(p)
		if err != nil {
			return err
		}
		if embed != nil {
			vec, err := embed(ctx, p.SearchText())
			if err != nil {
				return fmt.Errorf("failed to embed %s: %w", p.PartNumber, err)
			}
			v := pgvector.NewVector(vec)
			rec.Embedding = &v
		}
		recs = append(recs, rec)
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			compat := rec.CompatibleModels
			rec.CompatibleModels = nil
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to upsert %s: %w", rec.PartNumber, err)
			}
			if err := tx.Where("part_number = ?", rec.PartNumber).Delete(&compatibilityRecord{}).Error; err != nil {
				return err
			}
			if len(compat) > 0 {
				if err := tx.Create(&compat).Error; err != nil {
					return fmt.Errorf("failed to store compatibility for %s: %w", rec.PartNumber, err)
				}
			}
		}
		return nil
	})
}

func (c *GormCatalog) UpsertGuides(ctx context.Context, guides []models.TroubleshootingGuide, embed EmbedFunc) error {
	for _, g := range guides {
		rec, err := fromGuide(g)
		if err != nil {
			return err
		}
		if embed != nil {
			vec, err := embed(ctx, g.SearchText())
			if err != nil {
				return fmt.Errorf("failed to embed guide %s: %w", g.ID, err)
			}
			v := pgvector.NewVector(vec)
			rec.Embedding = &v
		}
		if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to upsert guide %s: %w", g.ID, err)
		}
	}
	return nil
}

// SearchProducts returns the k nearest products by cosine distance
func (c *GormCatalog) SearchProducts(ctx context.Context, embedding []float32, k int, applianceType string) ([]models.ProductHit, error) {
	query := c.db.WithContext(ctx).
		Preload("CompatibleModels").
		Where("embedding IS NOT NULL")
	if applianceType != "" {
		query = query.Where("appliance_type = ?", applianceType)
	}

	var recs []productRecord
	err := query.
		Clauses(nearest(embedding)).
		Limit(k).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	hits := make([]models.ProductHit, len(recs))
	for i, r := range recs {
		hits[i] = models.ProductHit{Product: toProduct(r), Score: similarity(embedding, r.Embedding)}
	}
	return hits, nil
}

func (c *GormCatalog) SearchGuides(ctx context.Context, embedding []float32, k int, applianceType string) ([]models.GuideHit, error) {
	query := c.db.WithContext(ctx).Where("embedding IS NOT NULL")
	if applianceType != "" {
		query = query.Where("appliance_type = ?", applianceType)
	}

	var recs []guideRecord
	err := query.
		Clauses(nearest(embedding)).
		Limit(k).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	hits := make([]models.GuideHit, len(recs))
	for i, r := range recs {
		hits[i] = models.GuideHit{Guide: toGuide(r), Score: similarity(embedding, r.Embedding)}
	}
	return hits, nil
}

func nearest(embedding []float32) clause.OrderBy {
	return clause.OrderBy{Expression: clause.Expr{
		SQL:  "embedding <=> ?",
		Vars: []interface{}{pgvector.NewVector(embedding)},
	}}
}

func toProducts(recs []productRecord) []models.Product {
	out := make([]models.Product, len(recs))
	for i, r := range recs {
		out[i] = toProduct(r)
	}
	return out
}

func toProduct(r productRecord) models.Product {
	p := models.Product{
		PartNumber:           r.PartNumber,
		Name:                 r.Name,
		Description:          r.Description,
		Brand:                r.Brand,
		ApplianceType:        r.ApplianceType,
		Price:                r.Price,
		ImageURL:             r.ImageURL,
		InstallationGuideURL: r.InstallationGuideURL,
		VideoURL:             r.VideoURL,
		InstallationSteps:    decodeStrings(r.InstallationSteps),
	}
	for _, m := range r.CompatibleModels {
		p.CompatibleModels = append(p.CompatibleModels, m.ModelNumber)
	}
	if r.Embedding != nil {
		p.Embedding = r.Embedding.Slice()
	}
	return p
}

func fromProduct(p models.Product) (productRecord, error) {
	steps, err := json.Marshal(p.InstallationSteps)
	if err != nil {
		return productRecord{}, err
	}
	partNumber := strings.ToUpper(p.PartNumber)
	rec := productRecord{
		PartNumber:           partNumber,
		Name:                 p.Name,
		Description:          p.Description,
		Brand:                p.Brand,
		ApplianceType:        p.ApplianceType,
		Price:                p.Price,
		ImageURL:             p.ImageURL,
		InstallationSteps:    datatypes.JSON(steps),
		InstallationGuideURL: p.InstallationGuideURL,
		VideoURL:             p.VideoURL,
	}
	seen := make(map[string]bool)
	for _, m := range p.CompatibleModels {
		m = strings.ToUpper(m)
		if seen[m] {
			continue
		}
		seen[m] = true
		rec.CompatibleModels = append(rec.CompatibleModels, compatibilityRecord{PartNumber: partNumber, ModelNumber: m})
	}
	return rec, nil
}

func toGuide(r guideRecord) models.TroubleshootingGuide {
	return models.TroubleshootingGuide{
		ID:            r.ID,
		Problem:       r.Problem,
		ApplianceType: r.ApplianceType,
		Brand:         r.Brand,
		Causes:        decodeStrings(r.Causes),
		Steps:         decodeStrings(r.Steps),
		RelatedParts:  decodeStrings(r.RelatedParts),
	}
}

func fromGuide(g models.TroubleshootingGuide) (guideRecord, error) {
	rec := guideRecord{
		ID:            g.ID,
		Problem:       g.Problem,
		ApplianceType: g.ApplianceType,
		Brand:         g.Brand,
	}
	var err error
	if rec.Causes, err = encodeStrings(g.Causes); err != nil {
		return guideRecord{}, err
	}
	if rec.Steps, err = encodeStrings(g.Steps); err != nil {
		return guideRecord{}, err
	}
	if rec.RelatedParts, err = encodeStrings(g.RelatedParts); err != nil {
		return guideRecord{}, err
	}
	return rec, nil
}

func encodeStrings(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	return datatypes.JSON(data), err
}

func decodeStrings(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}

func similarity(query []float32, stored *pgvector.Vector) float32 {
	if stored == nil {
		return 0
	}
	v := stored.Slice()
	if len(v) != len(query) {
		return 0
	}
	var dot, na, nb float64
	for i := range v {
		dot += float64(query[i]) * float64(v[i])
		na += float64(query[i]) * float64(query[i])
		nb += float64(v[i]) * float64(v[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
