// Command schema regenerates the JSON schemas that editors use to validate
// the catalogs under content/data. Run it after changing the catalog structs:
//
//	go run ./content/cmd/schema --out content/schema
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"floorcrawl/content"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	enemySchema := reflector.Reflect(new(content.EnemyFile))
	enemySchema.Title = "Floorcrawl Enemy Catalog"
	enemySchema.Description = "Validates designer-authored entries in content/data/enemies.json"

	upgradeSchema := reflector.Reflect(new(content.UpgradeFile))
	upgradeSchema.Title = "Floorcrawl Upgrade Catalog"
	upgradeSchema.Description = "Validates designer-authored entries in content/data/upgrades.json"

	if err := writeSchema(filepath.Join(outDir, "enemies.schema.json"), enemySchema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write enemy schema: %v\n", err)
		os.Exit(1)
	}
	if err := writeSchema(filepath.Join(outDir, "upgrades.schema.json"), upgradeSchema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write upgrade schema: %v\n", err)
		os.Exit(1)
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
