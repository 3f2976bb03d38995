// CUE schema validation code
package config

import (
	"os"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
	"github.com/rotisserie/eris"
)

// ValidateWithCue validates a YAML configuration file using a CUE schema file.
func ValidateWithCue(configFile, cueFile string) error {
	ctx := cuecontext.New()

	// Read YAML config
	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return eris.Wrap(err, "config: cannot read YAML config")
	}
	file, err := yaml.Extract(configFile, yamlBytes)
	if err != nil {
		return eris.Wrap(err, "config: cannot parse YAML config")
	}
	configVal := ctx.BuildFile(file)

	// Read CUE schema
	schemaBytes, err := os.ReadFile(cueFile)
	if err != nil {
		return eris.Wrap(err, "config: cannot read CUE schema")
	}
	schemaVal := ctx.CompileBytes(schemaBytes)

	// Merge values with schema
	final := configVal.Unify(schemaVal)
	if final.Err() != nil {
		return eris.Wrap(final.Err(), "config: schema unify failed")
	}

	// Validate final structure
	if err := final.Validate(); err != nil {
		return eris.Wrap(err, "config: schema validation failed")
	}
	return nil
}
