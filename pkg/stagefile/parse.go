// SPDX-License-Identifier: MPL-2.0

package stagefile

import (
	_ "embed"
	"fmt"
	"os"

	"pipstage-cli/pkg/cueutil"
)

//go:embed stagefile_schema.cue
var recipeSchema []byte

// Parse decodes and validates a stagefile document.
func Parse(data []byte, filename string) (*Recipe, error) {
	result, err := cueutil.ParseAndDecode[Recipe](
		recipeSchema,
		data,
		"#Stagefile",
		cueutil.WithFilename(filename),
	)
	if err != nil {
		return nil, err
	}

	recipe := result.Value
	if err := recipe.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return recipe, nil
}

// ParseFile reads and parses the stagefile at path.
func ParseFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stagefile: %w", err)
	}
	return Parse(data, path)
}
