package vectorsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/philippgille/chromem-go"
)

const (
	module = "vectorsearch"

	productsCollection = "products"
	guidesCollection   = "troubleshooting_guides"

	metaAppliance = "appliance_type"
	metaBrand     = "brand"
	metaPayload   = "payload"
)

type ChromemConfig struct {
	// PersistPath keeps the index on disk; empty means memory only
	PersistPath string
	Compress    bool
}

// ChromemSearcher is an embedded vector index. Documents carry their JSON
// record in metadata so hits decode without a catalog round trip.
type ChromemSearcher struct {
	db       *chromem.DB
	products *chromem.Collection
	guides   *chromem.Collection
	logger   logger.ILogger
}

func NewChromemSearcher(cfg ChromemConfig, embed chromem.EmbeddingFunc, log logger.ILogger) (*ChromemSearcher, error) {
	var db *chromem.DB
	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		log.Info(module, "opened persistent vector database", map[string]interface{}{"path": cfg.PersistPath})
	} else {
		db = chromem.NewDB()
	}

	products, err := db.GetOrCreateCollection(productsCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", productsCollection, err)
	}
	guides, err := db.GetOrCreateCollection(guidesCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", guidesCollection, err)
	}

	return &ChromemSearcher{db: db, products: products, guides: guides, logger: log}, nil
}

// Counts reports how many products and guides are indexed
func (s *ChromemSearcher) Counts() (products, guides int) {
	return s.products.Count(), s.guides.Count()
}

// IndexProducts adds or replaces product documents
func (s *ChromemSearcher) IndexProducts(ctx context.Context, products []models.Product) error {
	docs := make([]chromem.Document, 0, len(products))
	for _, p := range products {
		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:      strings.ToUpper(p.PartNumber),
			Content: p.SearchText(),
			Metadata: map[string]string{
				metaAppliance: p.ApplianceType,
				metaBrand:     p.Brand,
				metaPayload:   string(payload),
			},
			Embedding: p.Embedding,
		})
	}
	if err := s.products.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index products: %w", err)
	}
	return nil
}

func (s *ChromemSearcher) IndexGuides(ctx context.Context, guides []models.TroubleshootingGuide) error {
	docs := make([]chromem.Document, 0, len(guides))
	for _, g := range guides {
		payload, err := json.Marshal(g)
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:      g.ID,
			Content: g.SearchText(),
			Metadata: map[string]string{
				metaAppliance: g.ApplianceType,
				metaBrand:     g.Brand,
				metaPayload:   string(payload),
			},
		})
	}
	if err := s.guides.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index guides: %w", err)
	}
	return nil
}

func (s *ChromemSearcher) SearchProducts(ctx context.Context, query string, k int, applianceType string) ([]models.ProductHit, error) {
	results, err := s.query(ctx, s.products, query, k, applianceType)
	if err != nil {
		return nil, err
	}

	hits := make([]models.ProductHit, 0, len(results))
	for _, r := range results {
		var p models.Product
		if err := json.Unmarshal([]byte(r.Metadata[metaPayload]), &p); err != nil {
			s.logger.Warn(module, "skipping undecodable product", map[string]interface{}{"id": r.ID, "error": err.Error()})
			continue
		}
		hits = append(hits, models.ProductHit{Product: p, Score: r.Similarity})
	}
	return hits, nil
}

func (s *ChromemSearcher) SearchGuides(ctx context.Context, query string, k int, applianceType string) ([]models.GuideHit, error) {
	results, err := s.query(ctx, s.guides, query, k, applianceType)
	if err != nil {
		return nil, err
	}

	hits := make([]models.GuideHit, 0, len(results))
	for _, r := range results {
		var g models.TroubleshootingGuide
		if err := json.Unmarshal([]byte(r.Metadata[metaPayload]), &g); err != nil {
			s.logger.Warn(module, "skipping undecodable guide", map[string]interface{}{"id": r.ID, "error": err.Error()})
			continue
		}
		hits = append(hits, models.GuideHit{Guide: g, Score: r.Similarity})
	}
	return hits, nil
}

func (s *ChromemSearcher) query(ctx context.Context, col *chromem.Collection, query string, k int, applianceType string) ([]chromem.Result, error) {
	if blank(query) || k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size
	if n := col.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	var where map[string]string
	if applianceType != "" {
		where = map[string]string{metaAppliance: applianceType}
	}

	results, err := col.Query(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
