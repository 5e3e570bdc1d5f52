package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/trivia-engine/internal/models"
)

//go:embed default.yaml
var defaultCatalog []byte

// ErrEmptyCatalog is returned when a file holds no valid question
var ErrEmptyCatalog = errors.New("catalog contains no valid questions")

// Loader loads question catalogs from YAML. A question is identified by
// its prompt; a later file overrides an earlier one.
type Loader struct {
	mu        sync.RWMutex
	questions map[string]*models.Question
	order     []string
}

// NewLoader creates a new catalog loader
func NewLoader() *Loader {
	return &Loader{
		questions: make(map[string]*models.Question),
	}
}

// LoadDefault loads the built-in catalog
func (l *Loader) LoadDefault() error {
	_, err := l.Load("default.yaml", defaultCatalog)
	return err
}

// LoadPath loads a single file or every YAML file of a directory
func (l *Loader) LoadPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat catalog: %w", err)
	}

	if !info.IsDir() {
		_, err := l.LoadFromFile(path)
		return err
	}

	return l.LoadFromDir(path)
}

// LoadFromDir loads all YAML catalogs from a directory
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		n, err := l.LoadFromFile(file)
		if err != nil {
			slog.Warn("failed to load catalog file", "file", file, "error", err)
			continue
		}
		loaded += n
	}

	if loaded == 0 {
		return fmt.Errorf("%s: %w", dir, ErrEmptyCatalog)
	}

	slog.Info("catalog loaded", "questions", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single YAML catalog file
func (l *Loader) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}
	return l.Load(filepath.Base(path), data)
}

// Load parses a YAML catalog and adds its valid questions. Invalid
// questions are skipped with a warning. It returns how many were added.
func (l *Loader) Load(name string, data []byte) (int, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return 0, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var entries []entry
	for _, key := range sortedTierKeys(cf.Tiers) {
		tier, err := models.ParseTier(key)
		if err != nil {
			slog.Warn("skipping unknown tier", "file", name, "tier", key)
			continue
		}
		for _, item := range cf.Tiers[key] {
			entries = append(entries, entry{item: item, tier: tier})
		}
	}
	for _, item := range cf.Questions {
		tier, err := models.ParseTier(item.Difficulty)
		if err != nil {
			slog.Warn("skipping question", "file", name, "prompt", item.Prompt, "error", err)
			continue
		}
		entries = append(entries, entry{item: item, tier: tier})
	}

	added := 0
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		q := &models.Question{
			Prompt:        strings.TrimSpace(e.item.Prompt),
			Options:       e.item.Options,
			CorrectOption: e.item.Answer,
			Tier:          e.tier,
		}

		if err := q.Validate(); err != nil {
			slog.Warn("skipping invalid question", "file", name, "prompt", e.item.Prompt, "error", err)
			continue
		}

		if _, exists := l.questions[q.Prompt]; !exists {
			l.order = append(l.order, q.Prompt)
		}
		l.questions[q.Prompt] = q
		added++
	}

	if added == 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrEmptyCatalog)
	}

	slog.Debug("catalog file loaded", "file", name, "name", cf.Name, "questions", added)
	return added, nil
}

// Questions returns every loaded question in load order
func (l *Loader) Questions() []models.Question {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.Question, 0, len(l.order))
	for _, prompt := range l.order {
		result = append(result, l.questions[prompt].Clone())
	}
	return result
}

// ByTier returns the loaded questions of a tier in load order
func (l *Loader) ByTier(tier models.Tier) []models.Question {
	var result []models.Question
	for _, q := range l.Questions() {
		if q.Tier == tier {
			result = append(result, q)
		}
	}
	return result
}

// Len returns the number of loaded questions
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

func sortedTierKeys(tiers map[string][]questionItem) []string {
	keys := make([]string, 0, len(tiers))
	for k := range tiers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, _ := models.ParseTier(keys[i])
		tj, _ := models.ParseTier(keys[j])
		if ti == tj {
			return keys[i] < keys[j]
		}
		return ti.Less(tj)
	})
	return keys
}

type entry struct {
	item questionItem
	tier models.Tier
}

// --- YAML file structs ---

// catalogFile represents the YAML structure of a catalog file
type catalogFile struct {
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description"`
	Tiers       map[string][]questionItem `yaml:"tiers"`
	Questions   []questionItem            `yaml:"questions"`
}

// questionItem represents one question in a catalog file. Difficulty is
// only read from the flat questions list.
type questionItem struct {
	Prompt     string   `yaml:"prompt"`
	Options    []string `yaml:"options"`
	Answer     string   `yaml:"answer"`
	Difficulty string   `yaml:"difficulty"`
}
