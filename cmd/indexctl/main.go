package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/cisearch/ingest/internal/catalog"
	"github.com/cisearch/ingest/internal/embedding"
	"github.com/cisearch/ingest/internal/vectorindex"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "indexctl",
		Usage: "Operate index generations: create, reindex, promote, retire",
		Commands: []*cli.Command{
			{
				Name:   "create-generation",
				Usage:  "Create a new generation collection with the given mapping",
				Action: createGenerationCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "dimension",
						Usage: "Vector dimension (defaults to the configured text model dimension)",
					},
					&cli.BoolFlag{
						Name:  "normalized",
						Usage: "Vectors are unit length, use inner product similarity",
					},
					&cli.Uint64Flag{
						Name:  "ef-construction",
						Usage: "HNSW build-time beam width (0 uses the configured default)",
					},
					&cli.Uint64Flag{
						Name:  "m",
						Usage: "HNSW graph degree (0 uses the configured default)",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Copy every point from the active generation into the target",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "generation",
						Aliases:  []string{"g"},
						Usage:    "Destination generation collection",
						Required: true,
					},
				},
			},
			{
				Name:   "promote",
				Usage:  "Atomically repoint the read alias at the target generation",
				Action: promoteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "generation",
						Aliases:  []string{"g"},
						Usage:    "Generation to promote",
						Required: true,
					},
				},
			},
			{
				Name:   "retire",
				Usage:  "Delete a replaced generation after its retention window",
				Action: retireCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "generation",
						Aliases:  []string{"g"},
						Usage:    "Generation to delete",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip the retention window check",
					},
				},
			},
			{
				Name:   "generations",
				Usage:  "List generation collections and their catalog status",
				Action: generationsCommand,
			},
			{
				Name:   "failures",
				Usage:  "List recent terminal ingestion failures",
				Action: failuresCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum rows to print",
						Value: 50,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openManager() (*vectorindex.Manager, error) {
	return vectorindex.NewManager(vectorindex.NewConfig())
}

func openCatalog() (*catalog.Catalog, error) {
	return catalog.NewCatalog(catalog.NewConfig())
}

func createGenerationCommand(c *cli.Context) error {
	ctx := c.Context

	embCfg := embedding.NewConfig()
	mapping := vectorindex.Mapping{
		Dimension:      embCfg.TextDimension,
		Normalized:     embCfg.Normalized,
		EfConstruction: c.Uint64("ef-construction"),
		M:              c.Uint64("m"),
	}
	if d := c.Int("dimension"); d > 0 {
		mapping.Dimension = d
	}
	if c.IsSet("normalized") {
		mapping.Normalized = c.Bool("normalized")
	}

	mgr, err := openManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	name, err := mgr.CreateGeneration(ctx, mapping)
	if err != nil {
		return err
	}

	distance := "Cosine"
	if mapping.Normalized {
		distance = "Dot"
	}
	cat, err := openCatalog()
	if err != nil {
		return fmt.Errorf("generation '%s' created, but catalog is unreachable: %w", name, err)
	}
	defer cat.Close()
	if err := cat.RecordGeneration(ctx, name, mapping.Dimension, distance); err != nil {
		return fmt.Errorf("generation '%s' created, but recording it failed: %w", name, err)
	}

	fmt.Println(name)
	return nil
}

func reindexCommand(c *cli.Context) error {
	mgr, err := openManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	copied, err := mgr.ReindexInto(c.Context, c.String("generation"))
	if err != nil {
		return err
	}
	fmt.Printf("copied %d points into '%s'\n", copied, c.String("generation"))
	return nil
}

func promoteCommand(c *cli.Context) error {
	ctx := c.Context
	generation := c.String("generation")

	mgr, err := openManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.Promote(ctx, generation); err != nil {
		return err
	}

	cat, err := openCatalog()
	if err != nil {
		return fmt.Errorf("promoted '%s', but catalog is unreachable: %w", generation, err)
	}
	defer cat.Close()
	if err := cat.MarkPromoted(ctx, generation); err != nil {
		return fmt.Errorf("promoted '%s', but recording it failed: %w", generation, err)
	}

	fmt.Printf("promoted '%s'\n", generation)
	return nil
}

func retireCommand(c *cli.Context) error {
	ctx := c.Context
	generation := c.String("generation")

	mgr, err := openManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	// The retention window runs from the moment a successor replaced
	// this generation, which the catalog knows and the index does not.
	var replacedAt time.Time
	if !c.Bool("force") {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		rec, err := cat.GetGeneration(ctx, generation)
		cat.Close()
		if err != nil {
			return err
		}
		if rec != nil && rec.ReplacedAt != nil {
			replacedAt = *rec.ReplacedAt
		}
	}

	if err := mgr.Retire(ctx, generation, replacedAt); err != nil {
		return err
	}

	cat, err := openCatalog()
	if err != nil {
		return fmt.Errorf("retired '%s', but catalog is unreachable: %w", generation, err)
	}
	defer cat.Close()
	if err := cat.MarkRetired(ctx, generation); err != nil {
		return fmt.Errorf("retired '%s', but recording it failed: %w", generation, err)
	}

	fmt.Printf("retired '%s'\n", generation)
	return nil
}

func generationsCommand(c *cli.Context) error {
	ctx := c.Context

	mgr, err := openManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	gens, err := mgr.Generations(ctx)
	if err != nil {
		return err
	}

	status := map[string]catalog.GenerationStatus{}
	if cat, err := openCatalog(); err == nil {
		if recs, err := cat.ListGenerations(ctx); err == nil {
			for _, rec := range recs {
				status[rec.Name] = rec.Status
			}
		}
		cat.Close()
	}

	for _, g := range gens {
		marker := " "
		if g.Active {
			marker = "*"
		}
		fmt.Printf("%s %-40s points=%-10d dim=%-6d distance=%-8s %s\n",
			marker, g.Name, g.Points, g.Dimension, g.Distance, status[g.Name])
	}
	return nil
}

func failuresCommand(c *cli.Context) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	failures, err := cat.ListFailures(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, f := range failures {
		fmt.Printf("%s  %-9s %-12s attempts=%d  %s\n\t%s\n",
			f.OccurredAt.Format(time.RFC3339), f.Kind, f.Stage, f.AttemptCount, f.SourceLocator, f.Message)
	}
	return nil
}
