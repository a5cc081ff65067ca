package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// =============================================================================
// Infra Config
// =============================================================================

// Config is a rendered, self-contained configuration unit: a template bound
// to a complete parameter set. Materialize writes it into a working directory
// where the provisioning engine can execute it.
type Config struct {
	TemplateID string            `json:"template_id"`
	Params     map[string]string `json:"params"`
	WorkDir    string            `json:"work_dir,omitempty"`
}

// =============================================================================
// Rendering
// =============================================================================

// Render binds a parameter set to the named template.
//
// The parameter set must exactly cover the template's declared variables:
// missing or unknown keys are a construction-time ValidationError, never a
// provisioning-time surprise. Render performs no I/O beyond reading the
// embedded template manifest.
func Render(templateID string, params map[string]string) (*Config, error) {
	manifest, err := LoadManifest(templateID)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(manifest.Variables))
	for _, v := range manifest.Variables {
		declared[v] = true
	}

	verr := &ValidationError{TemplateID: templateID}
	for _, v := range manifest.Variables {
		if _, ok := params[v]; !ok {
			verr.Missing = append(verr.Missing, v)
		}
	}
	for k := range params {
		if !declared[k] {
			verr.Unknown = append(verr.Unknown, k)
		}
	}
	sort.Strings(verr.Missing)
	sort.Strings(verr.Unknown)
	if len(verr.Missing) > 0 || len(verr.Unknown) > 0 {
		return nil, verr
	}

	bound := make(map[string]string, len(params))
	for k, v := range params {
		bound[k] = v
	}
	return &Config{TemplateID: templateID, Params: bound}, nil
}

// Materialize writes the template's configuration files and the bound
// variable values into dir, making the config executable by the provisioning
// engine. The directory becomes the config's working directory.
func (c *Config) Materialize(dir string) error {
	files, err := templateFiles(c.TemplateID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create infra working directory: %w", err)
	}

	for _, name := range files {
		data, err := templatesFS.ReadFile(fmt.Sprintf("templates/%s/%s", c.TemplateID, name))
		if err != nil {
			return fmt.Errorf("read template file %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write template file %s: %w", name, err)
		}
	}

	// Variable bindings go through tfvars rather than -var flags so the
	// working directory is self-contained and reviewable.
	vars, err := json.MarshalIndent(c.Params, "", "  ")
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "terraform.tfvars.json"), vars, 0o644); err != nil {
		return fmt.Errorf("write variables: %w", err)
	}

	c.WorkDir = dir
	return nil
}
