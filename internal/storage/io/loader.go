package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// ManifestYAMLRepository loads the services manifest from YAML files.
type ManifestYAMLRepository struct {
	fs fs.FS
}

// NewManifestYAMLRepository creates a new YAML manifest repository.
func NewManifestYAMLRepository(filesystem fs.FS) *ManifestYAMLRepository {
	return &ManifestYAMLRepository{fs: filesystem}
}

// GetManifest loads a services manifest from a YAML file and returns a
// validated domain model.
func (r *ManifestYAMLRepository) GetManifest(ctx context.Context, path string) (model.Manifest, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("reading manifest file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Manifest{}, ctx.Err()
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return model.Manifest{}, fmt.Errorf("parsing YAML: %w", err)
	}

	m := manifest.toModel()
	if err := m.Validate(); err != nil {
		return model.Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}

	return m, nil
}

// Manifest represents the YAML structure of the services manifest.
type Manifest struct {
	APIURL   string          `yaml:"api_url"`
	Services []ServiceConfig `yaml:"services"`
}

// ServiceConfig represents the YAML structure of one declared service.
type ServiceConfig struct {
	Name     string            `yaml:"name"`
	Command  []string          `yaml:"command,omitempty"`
	Image    string            `yaml:"image,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Replicas int               `yaml:"replicas,omitempty"`
	Log      string            `yaml:"log,omitempty"`
}

func (m Manifest) toModel() model.Manifest {
	manifest := model.Manifest{
		APIURL:   m.APIURL,
		Services: make([]model.ServiceSpec, 0, len(m.Services)),
	}

	for _, s := range m.Services {
		manifest.Services = append(manifest.Services, model.ServiceSpec{
			Name:     s.Name,
			Command:  s.Command,
			Image:    s.Image,
			Env:      s.Env,
			Replicas: s.Replicas,
			LogPath:  s.Log,
		})
	}

	return manifest
}
