// Package artifact checks stage artifacts against JSON schemas before the
// pipeline resumes from them.
package artifact

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func compile() {
	compiled = make(map[string]*gojsonschema.Schema, len(schemas))
	for name, src := range schemas {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			compileErr = fmt.Errorf("compiling schema for %s: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

// Known reports whether name has a schema.
func Known(name string) bool {
	_, ok := schemas[name]
	return ok
}

// Validate checks data against the schema registered for name.
// Names without a schema pass unchecked. Violations wrap
// domain.ErrInvalidArtifact and list every failing field.
func Validate(name string, data []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}

	schema, ok := compiled[name]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", name, domain.ErrInvalidArtifact, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]error, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, errors.New(desc.String()))
	}
	return fmt.Errorf("%s: %w: %w", name, domain.ErrInvalidArtifact, errors.Join(errs...))
}
