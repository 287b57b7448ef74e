package module

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rtuszik/flux-gallery/pkg/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// SettingsRecord is the whole persisted settings file. Writes are always a
// full-record replace, never a partial patch.
type SettingsRecord struct {
	ApiKey     string                   `yaml:"apiKey" json:"apiKey"`
	Models     []string                 `yaml:"models" json:"models"`
	LastParams models.GenerationRequest `yaml:"lastParams" json:"lastParams"`
	OutputDir  string                   `yaml:"outputDir" json:"outputDir"`
}

func DefaultSettings() *SettingsRecord {
	return &SettingsRecord{
		Models:     []string{},
		LastParams: models.DefaultGenerationRequest(),
	}
}

// SettingsManager load/save the settings record. One record per process.
type SettingsManager struct {
	path string

	mu     sync.Mutex
	record *SettingsRecord
}

func NewSettingsManager(path string) *SettingsManager {
	return &SettingsManager{
		path:   path,
		record: DefaultSettings(),
	}
}

// Load read the settings file. A missing file yields defaults. A malformed
// file yields defaults plus a ConfigError so the caller can warn, it never
// kills the process.
func (s *SettingsManager) Load() (*SettingsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.record = DefaultSettings()
			return s.snapshot(), nil
		}
		s.record = DefaultSettings()
		return s.snapshot(), &ConfigError{Path: s.path, Err: err}
	}
	record := DefaultSettings()
	if err := yaml.Unmarshal(data, record); err != nil {
		logrus.Warnf("settings file %s malformed, using defaults: %v", s.path, err)
		s.record = DefaultSettings()
		return s.snapshot(), &ConfigError{Path: s.path, Err: err}
	}
	if record.Models == nil {
		record.Models = []string{}
	}
	s.record = record
	return s.snapshot(), nil
}

// Save write the whole record atomically: temp file in the same directory,
// then rename over the target.
func (s *SettingsManager) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *SettingsManager) save() error {
	data, err := yaml.Marshal(s.record)
	if err != nil {
		return &ConfigError{Path: s.path, Err: err}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &ConfigError{Path: s.path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return &ConfigError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &ConfigError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &ConfigError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &ConfigError{Path: s.path, Err: err}
	}
	return nil
}

// Get returns a copy of the current record.
func (s *SettingsManager) Get() *SettingsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Set replace the whole record and persist it.
func (s *SettingsManager) Set(record *SettingsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.Models == nil {
		record.Models = []string{}
	}
	clone := *record
	clone.Models = append([]string{}, record.Models...)
	s.record = &clone
	return s.save()
}

// ApiKey current api key.
func (s *SettingsManager) ApiKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.ApiKey
}

// AddModel append a model identifier, keeping insertion order and
// uniqueness. Adding a known model is a no-op.
func (s *SettingsManager) AddModel(id string) error {
	if id == "" {
		return &ValidationError{Field: "model", Reason: "empty identifier"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.record.Models {
		if m == id {
			return nil
		}
	}
	s.record.Models = append(s.record.Models, id)
	return s.save()
}

// RemoveModel drop a model identifier. Removing an unknown model is a no-op.
func (s *SettingsManager) RemoveModel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.record.Models {
		if m == id {
			s.record.Models = append(s.record.Models[:i], s.record.Models[i+1:]...)
			return s.save()
		}
	}
	return nil
}

// Models returns the saved model identifiers in display order.
func (s *SettingsManager) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.record.Models...)
}

// RememberParams persist the last used parameter set.
func (s *SettingsManager) RememberParams(req models.GenerationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastParams = req
	return s.save()
}

func (s *SettingsManager) snapshot() *SettingsRecord {
	clone := *s.record
	clone.Models = append([]string{}, s.record.Models...)
	return &clone
}
