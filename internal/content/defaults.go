package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/robwestplumbing/sitecms/internal/docstore"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

var (
	defaultsMu    sync.RWMutex
	builtin       docstore.Fields
	defaultFields docstore.Fields
)

func init() {
	f, err := parseYAMLFields(embeddedDefaults)
	if err != nil {
		panic(fmt.Sprintf("content: embedded defaults: %v", err))
	}
	builtin = f
	defaultFields = docstore.CloneFields(f)
}

func parseYAMLFields(raw []byte) (docstore.Fields, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var f docstore.Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f == nil {
		f = docstore.Fields{}
	}
	return f, nil
}

// LoadDefaults overlays the YAML file at path on the built-in defaults. Keys
// missing from the file keep their built-in values.
func LoadDefaults(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read defaults: %w", err)
	}
	override, err := parseYAMLFields(raw)
	if err != nil {
		return fmt.Errorf("parse defaults %s: %w", path, err)
	}

	merged := docstore.MergeFields(docstore.CloneFields(builtin), override)
	c, err := FromFields(merged)
	if err != nil {
		return fmt.Errorf("decode defaults %s: %w", path, err)
	}
	if err := Validate(c); err != nil {
		return fmt.Errorf("defaults %s: %w", path, err)
	}

	defaultsMu.Lock()
	defaultFields = ToFields(c)
	defaultsMu.Unlock()
	return nil
}

// ResetDefaults restores the built-in defaults.
func ResetDefaults() {
	defaultsMu.Lock()
	defaultFields = docstore.CloneFields(builtin)
	defaultsMu.Unlock()
}

// DefaultFields returns a fresh copy of the default document.
func DefaultFields() docstore.Fields {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return docstore.CloneFields(defaultFields)
}

// Defaults returns the canonical default content.
func Defaults() SiteContent {
	c, err := FromFields(DefaultFields())
	if err != nil {
		panic(fmt.Sprintf("content: defaults do not decode: %v", err))
	}
	c.normalize()
	return c
}
