// Command schema writes JSON schemas of the record API request bodies, one file per entity
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/records"
)

func main() {
	outputDir := "schema"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		log.Fatalf("failed to create %s: %v", outputDir, err)
	}

	for _, entity := range enums.EntityValues {
		schema, err := records.Schema(entity)
		if err != nil {
			log.Fatalf("failed to make schema for %s: %v", entity, err)
		}
		schema.Description = fmt.Sprintf("Request body to create a %s record, updates accept any subset of the fields", entity)
		schema.Version = "1.0.0"

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal schema: %v", err)
		}

		outputPath := filepath.Join(outputDir, entity.String()+".json")
		if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
			log.Fatalf("failed to write schema file: %v", err)
		}
		fmt.Printf("Schema generated successfully at %s\n", outputPath)
	}
}
