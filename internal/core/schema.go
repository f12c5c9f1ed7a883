package core

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed pipeline.schema.json
var pipelineSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func getSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(pipelineSchema))
	})
	return compiledSchema, compileErr
}

// ValidateSchema checks a YAML pipeline document against the pipeline schema.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode pipeline: %w", err)
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return invalidf("pipeline is not representable as JSON: %v", err)
	}

	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("compiling pipeline schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("validating pipeline: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return invalidf("%s", strings.Join(errs, "; "))
}
