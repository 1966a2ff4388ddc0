package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/feichai0017/document-harvester/internal/models"
)

// fileFormat 自定义规则文件格式
type fileFormat struct {
	Rules []models.Rule `yaml:"rules"`
}

// LoadFile reads the custom rules file. A missing file means no custom rules.
func LoadFile(path string) ([]models.Rule, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	out := make([]models.Rule, 0, len(f.Rules))
	for _, r := range f.Rules {
		if strings.TrimSpace(r.Pattern) == "" {
			continue
		}
		r.Category = models.NormalizeCategory(string(r.Category))
		r.Source = models.SourceCustom
		out = append(out, r)
	}
	return out, nil
}

// saveFile rewrites the rules file atomically via a temp file and rename.
func saveFile(path string, rules []models.Rule) error {
	data, err := yaml.Marshal(fileFormat{Rules: rules})
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create rules dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rules-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp rules file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}
