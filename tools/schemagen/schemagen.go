// Package main generates JSON schemas for the session file and the MCP tool
// results.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/Sumatoshi-tech/xdsref/pkg/mcp"
	"github.com/Sumatoshi-tech/xdsref/pkg/reprocess"
	"github.com/Sumatoshi-tech/xdsref/pkg/session"
)

const draft = "https://json-schema.org/draft/2020-12/schema"

type document struct {
	name        string
	title       string
	description string
	typ         reflect.Type
}

var documents = []document{
	{
		name:        "session",
		title:       "xdsref session",
		description: "Selection and overrides saved per processing root",
		typ:         reflect.TypeFor[session.Session](),
	},
	{
		name:        "reprocess_command",
		title:       "Reprocessing command",
		description: "Arguments passed to the reprocessing script",
		typ:         reflect.TypeFor[reprocess.Command](),
	},
	{
		name:        "cell_stats",
		title:       "xdsref_cell_stats result",
		description: "Unit cell and space group statistics of a processing root",
		typ:         reflect.TypeFor[mcp.CellStatsOutput](),
	},
	{
		name:        "rank",
		title:       "xdsref_rank result",
		description: "Datasets ordered by the total row metric",
		typ:         reflect.TypeFor[mcp.RankOutput](),
	},
	{
		name:        "write_reference",
		title:       "xdsref_write_reference result",
		description: "Written reference file and its changed header lines",
		typ:         reflect.TypeFor[mcp.WriteReferenceOutput](),
	},
}

func main() {
	outputDir := flag.String("o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	written, err := generate(*outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
}

// generate writes one schema file per document and returns their paths.
func generate(dir string) ([]string, error) {
	mkdirErr := os.MkdirAll(dir, 0o755)
	if mkdirErr != nil {
		return nil, fmt.Errorf("create output directory: %w", mkdirErr)
	}

	written := make([]string, 0, len(documents))

	for _, doc := range documents {
		schema, err := jsonschema.ForType(doc.typ, nil)
		if err != nil {
			return written, fmt.Errorf("schema for %s: %w", doc.name, err)
		}

		schema.Schema = draft
		schema.Title = doc.title
		schema.Description = doc.description

		path, err := writeSchema(dir, doc.name, schema)
		if err != nil {
			return written, err
		}

		written = append(written, path)
	}

	return written, nil
}

func writeSchema(dir, name string, schema *jsonschema.Schema) (string, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema %s: %w", name, err)
	}

	path := filepath.Join(dir, name+".json")

	writeErr := os.WriteFile(path, append(data, '\n'), 0o644)
	if writeErr != nil {
		return "", fmt.Errorf("write schema %s: %w", name, writeErr)
	}

	return path, nil
}
