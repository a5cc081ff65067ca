package infra

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var templatesFS embed.FS

// TemplateAppRunner is the identifier of the AWS App Runner template.
const TemplateAppRunner = "aws_app_runner"

// =============================================================================
// Template Manifest
// =============================================================================

// Manifest declares a template's contract: the variables it requires and the
// outputs it produces. Each template directory carries a template.yaml next
// to its configuration files.
type Manifest struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Variables   []string `yaml:"variables"`
	Outputs     []string `yaml:"outputs"`
}

// LoadManifest reads the manifest of the named embedded template.
func LoadManifest(templateID string) (*Manifest, error) {
	data, err := templatesFS.ReadFile(fmt.Sprintf("templates/%s/template.yaml", templateID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest for template %s: %w", templateID, err)
	}
	sort.Strings(m.Variables)
	return &m, nil
}

// templateFiles lists the configuration files of the named template,
// excluding the manifest itself.
func templateFiles(templateID string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, "templates/"+templateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "template.yaml" {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}
