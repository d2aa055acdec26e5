package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingName          = errors.New("Operation name is required")
	ErrDuplicateName        = errors.New("Operation name is already in use")
	ErrUnknownOperationType = errors.New("Unknown operation type")
	ErrUnknownTriggerType   = errors.New("Unknown trigger type")
	ErrNoOperations         = errors.New("No operations configured")
)

const (
	DefaultPoolSize    = 5
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultServiceName = "minuteur"
)

// Raw is the unprocessed configuration specification for minuteur
type Raw struct {
	Logging    Logging         `yaml:"logging"`
	Pool       Pool            `yaml:"pool"`
	Metrics    Metrics         `yaml:"metrics"`
	Tracing    Tracing         `yaml:"tracing"`
	Operations []OperationSpec `yaml:"operations"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Pool struct {
	Size int `yaml:"size"`
}

// Metrics configures the prometheus textfile written when minuteur exits,
// no file is written when Textfile is empty
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// OperationSpec is a structural definition of an operation configuration,
// mirroring exactly how it is defined in YAML
type OperationSpec struct {
	Name    string         `yaml:"name"`
	Execute ComponentSpec  `yaml:"execute"`
	Trigger *ComponentSpec `yaml:"trigger"`
}

// ComponentSpec is a generic struct that corresponds
// to an operation or trigger element in the YAML specification
type ComponentSpec struct {
	Type   string    `yaml:"type"`
	Config yaml.Node `yaml:"config"`
}

// Decode decodes the component's config section into v, rejecting fields
// v does not declare. A component without a config section leaves v untouched.
func (c ComponentSpec) Decode(v any) error {
	if c.Config.Kind == 0 {
		return nil
	}

	// yaml.Node.Decode has no KnownFields option
	raw, err := yaml.Marshal(&c.Config)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	return decoder.Decode(v)
}

// New returns a configuration populated with defaults
func New() *Raw {
	return &Raw{
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Pool: Pool{Size: DefaultPoolSize},
		Tracing: Tracing{
			Service: DefaultServiceName,
		},
	}
}

// Parse reads config from the specified reader into the struct,
// fields missing from the document keep their current values
func (r *Raw) Parse(reader io.Reader) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	err := decoder.Decode(r)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// Load reads and validates the configuration file at path
func Load(path string) (*Raw, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := New()
	if err := cfg.Parse(file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that every operation is named uniquely and that
// operation and trigger types are known
func (r *Raw) Validate() error {
	if len(r.Operations) == 0 {
		return ErrNoOperations
	}

	seen := make(map[string]struct{}, len(r.Operations))

	for i, op := range r.Operations {
		if op.Name == "" {
			return fmt.Errorf("operation %d: %w", i, ErrMissingName)
		}

		if _, exists := seen[op.Name]; exists {
			return fmt.Errorf("%s: %w", op.Name, ErrDuplicateName)
		}
		seen[op.Name] = struct{}{}

		switch OperationType(op.Execute.Type) {
		case ShellKey, SleepKey:
		default:
			return fmt.Errorf("%s: %w %q", op.Name, ErrUnknownOperationType, op.Execute.Type)
		}

		if op.Trigger == nil {
			continue
		}

		switch Trigger(op.Trigger.Type) {
		case CronKey, FileKey, ProcessKey:
		default:
			return fmt.Errorf("%s: %w %q", op.Name, ErrUnknownTriggerType, op.Trigger.Type)
		}
	}

	return nil
}
