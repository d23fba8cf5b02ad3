package refract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Codec defines the deserialization contract for configuration data, such
// as project options files and middleware configuration.
type Codec interface {
	// Unmarshal deserializes bytes into a value.
	Unmarshal(data []byte, v any) error

	// ContentType returns the MIME type for observability and debugging.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct{}

// Unmarshal deserializes JSON bytes into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// Ensure JSONCodec implements Codec.
var _ Codec = JSONCodec{}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

// Unmarshal deserializes YAML bytes into v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// Ensure YAMLCodec implements Codec.
var _ Codec = YAMLCodec{}

// codecFor selects a codec by file extension. JSON is the default.
func codecFor(path string) Codec {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return YAMLCodec{}
	default:
		return JSONCodec{}
	}
}

// LoadProjectOptions reads ProjectOptions from a JSON or YAML file, chosen
// by extension. The options are validated by NewProject, not here.
func LoadProjectOptions(path string) (ProjectOptions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ProjectOptions{}, fmt.Errorf("failed to read options file: %w", err)
	}
	var options ProjectOptions
	if err := codecFor(path).Unmarshal(raw, &options); err != nil {
		return ProjectOptions{}, fmt.Errorf("invalid options file %s: %w", path, err)
	}
	return options, nil
}
