package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// Registry holds the current rule library: built-ins followed by custom rules.
// Readers take a snapshot; Add swaps in a new library so in-flight harvests keep theirs.
type Registry struct {
	path    string
	mu      sync.Mutex // serialises writers
	custom  []models.Rule
	current atomic.Pointer[snapshot]
	logger  logger.Logger
}

type snapshot struct {
	library  models.RuleLibrary
	compiled *harvest.Compiled
}

// NewRegistry loads the custom rules file at path and builds the first snapshot.
func NewRegistry(path string, log logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.NewNop()
	}
	custom, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	r := &Registry{path: path, custom: custom, logger: log}
	r.publish()

	log.Info("Rule library loaded",
		logger.String("path", path),
		logger.Int("custom", len(custom)),
		logger.Int("total", r.Library().Len()),
	)
	return r, nil
}

// Library returns the current library snapshot.
func (r *Registry) Library() models.RuleLibrary {
	return r.current.Load().library
}

// Compiled returns the compiled form of the current snapshot.
func (r *Registry) Compiled() *harvest.Compiled {
	return r.current.Load().compiled
}

// Custom returns the custom rules in file order.
func (r *Registry) Custom() []models.Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Rule(nil), r.custom...)
}

// Add validates and appends a custom rule, persists the file and publishes a new snapshot.
func (r *Registry) Add(label, pattern string) (models.Rule, error) {
	category := models.NormalizeCategory(label)
	if category == "" {
		return models.Rule{}, fmt.Errorf("category is required")
	}
	if strings.TrimSpace(pattern) == "" {
		return models.Rule{}, fmt.Errorf("pattern is required")
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return models.Rule{}, fmt.Errorf("invalid pattern: %w", err)
	}

	rule := models.Rule{Category: category, Pattern: pattern, Source: models.SourceCustom}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := append(append([]models.Rule(nil), r.custom...), rule)
	if err := saveFile(r.path, next); err != nil {
		return models.Rule{}, err
	}
	r.custom = next
	r.publish()

	r.logger.Info("Custom rule added",
		logger.String("category", string(category)),
		logger.String("pattern", pattern),
	)
	return rule, nil
}

func (r *Registry) publish() {
	lib := harvest.Builtin().With(r.custom...)
	r.current.Store(&snapshot{library: lib, compiled: harvest.Compile(lib)})
}
