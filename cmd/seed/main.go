// Command seed writes sample catalog documents into the catalog directory
// and, when Kafka is enabled, announces them with catalog.updated so running
// storefronts drop stale copies.
//
// Run: go run ./cmd/seed -extra 50
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/slug"
)

// IndexDocument lists every seeded category as a subcategory tile.
const IndexDocument = "index"

type categoryDef struct {
	name        string
	description string
}

type productDef struct {
	name        string
	description string
	category    string
	cents       int64
}

var categories = []categoryDef{
	{"Electronics", "Headphones, hubs and gadgets"},
	{"Clothing", "Everyday basics and outerwear"},
	{"Home & Kitchen", "Cookware and small appliances"},
	{"Sports & Outdoors", "Gear for the trail and the gym"},
	{"Books", "Reading for every shelf"},
}

var products = []productDef{
	// Electronics
	{"Wireless Bluetooth Headphones", "Noise-cancelling over-ear headphones with 30-hour battery life.", "Electronics", 7999},
	{"USB-C Hub Adapter", "7-in-1 hub with HDMI 4K output and 100W power delivery.", "Electronics", 3499},
	{"Mechanical Keyboard", "RGB backlit keyboard with detachable wrist rest.", "Electronics", 8999},
	{"Portable SSD 1TB", "USB 3.2 external drive with shock-resistant casing.", "Electronics", 9999},
	// Clothing
	{"Classic Cotton T-Shirt", "Organic cotton tee with a relaxed fit.", "Clothing", 2499},
	{"Slim Fit Jeans", "Stretch denim with classic 5-pocket styling.", "Clothing", 4999},
	{"Wool Sweater", "Merino pullover with ribbed cuffs and hem.", "Clothing", 5999},
	{"Rain Jacket", "Waterproof jacket with sealed seams and adjustable hood.", "Clothing", 7999},
	// Home & Kitchen
	{"Stainless Steel Cookware Set", "10-piece tri-ply set with tempered glass lids.", "Home & Kitchen", 14999},
	{"Coffee Maker", "12-cup programmable brewer with thermal carafe.", "Home & Kitchen", 4999},
	{"Knife Set", "8-piece forged high-carbon steel collection.", "Home & Kitchen", 7999},
	// Sports & Outdoors
	{"Yoga Mat", "6mm non-slip mat with carrying strap.", "Sports & Outdoors", 2999},
	{"Camping Tent", "4-person waterproof dome tent with rainfly.", "Sports & Outdoors", 15999},
	{"Insulated Water Bottle", "Keeps drinks cold for 24 hours.", "Sports & Outdoors", 2499},
	// Books
	{"The Go Programming Language", "A thorough introduction to Go.", "Books", 3999},
	{"Designing Data-Intensive Applications", "Storage, streams and distributed systems.", "Books", 4599},
}

var (
	prefixes = []string{"Essential", "Premium", "Classic", "Everyday", "Pro"}
	colors   = []string{"Black", "Navy", "Olive", "Sand", "Red", "White"}
)

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := flag.String("dir", cfg.CatalogDir, "catalog directory to write into")
	extra := flag.Int("extra", 0, "generated products added to each category")
	seed := flag.Uint64("seed", 42, "generator seed")
	publish := flag.Bool("publish", cfg.KafkaEnabled, "announce the documents with catalog.updated")
	flag.Parse()

	log := logger.New("storefront-seed", cfg.LogLevel)

	docs := buildDocuments(*extra, *seed)
	names, err := writeDocuments(*dir, docs)
	if err != nil {
		return err
	}
	log.Info("catalog documents written",
		slog.String("dir", *dir),
		slog.Int("documents", len(names)),
	)

	if !*publish {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	defer func() { _ = producer.Close() }()

	if err := event.NewProducer(producer, log).PublishCatalogUpdated(ctx, names); err != nil {
		return err
	}
	log.Info("catalog.updated published", slog.Any("documents", names))
	return nil
}

// buildDocuments groups the product table by category, appends extra
// generated products per category and adds the index document.
func buildDocuments(extra int, seed uint64) []*catalog.Document {
	rng := rand.New(rand.NewPCG(seed, seed))

	index := &catalog.Document{
		Name:     IndexDocument,
		Category: catalog.Category{Name: "All departments", Description: "Browse every department"},
	}
	docs := []*catalog.Document{index}

	nextID := 1
	for _, c := range categories {
		name := slug.Generate(c.name)
		doc := &catalog.Document{
			Name:     name,
			Category: catalog.Category{Name: c.name, Description: c.description},
		}
		for _, p := range products {
			if p.category != c.name {
				continue
			}
			doc.Products = append(doc.Products, product(nextID, p.name, p.description, p.cents))
			nextID++
		}
		for range extra {
			n := fmt.Sprintf("%s %s - %s",
				prefixes[rng.IntN(len(prefixes))], c.name, colors[rng.IntN(len(colors))])
			// 9.99 to 499.99, always ending in .99
			cents := int64(999 + rng.IntN(490)*100)
			doc.Products = append(doc.Products, product(nextID, n, "", cents))
			nextID++
		}
		docs = append(docs, doc)

		index.Subcategories = append(index.Subcategories, catalog.Subcategory{
			Name:        c.name,
			Description: c.description,
			Image:       "images/categories/" + name + ".jpg",
			Link:        "/catalog/" + name,
		})
	}
	return docs
}

func product(id int, name, description string, cents int64) catalog.Product {
	return catalog.Product{
		ID:          domain.FlexString(strconv.Itoa(id)),
		Name:        name,
		Price:       domain.PriceText(fmt.Sprintf("$%d.%02d", cents/100, cents%100)),
		Description: description,
		Image:       fmt.Sprintf("images/products/%s.jpg", slug.Generate(name)),
	}
}

// writeDocuments writes each document to <dir>/<name>.json and returns the
// names written.
func writeDocuments(dir string, docs []*catalog.Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if !catalog.ValidName(d.Name) {
			return nil, fmt.Errorf("invalid document name %q", d.Name)
		}
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", d.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, d.Name+".json"), append(data, '\n'), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", d.Name, err)
		}
		names = append(names, d.Name)
	}
	return names, nil
}
