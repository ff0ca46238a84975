package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store is an in-memory prompt registry.
type Store struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

// NewStore returns a store holding the given prompts.
// Every prompt needs a type, a non-empty instruction and a compilable schema.
func NewStore(list ...Prompt) (*Store, error) {
	s := &Store{prompts: map[string]Prompt{}}
	for _, p := range list {
		if err := s.Put(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// LoadDir reads every *.json prompt file in dir.
// A file's type defaults to its base name without extension.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prompts dir: %w", err)
	}
	s := &Store{prompts: map[string]Prompt{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", entry.Name(), err)
		}
		var p Prompt
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode prompt %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(p.Type) == "" {
			p.Type = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if err := s.Put(p); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", entry.Name(), err)
		}
	}
	return s, nil
}

// Put validates and stores p, replacing any prompt of the same type.
func (s *Store) Put(p Prompt) error {
	p.Type = NormalizeType(p.Type)
	if p.Type == "" {
		return fmt.Errorf("%w: type is empty", ErrInvalid)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt text is empty for %s", ErrInvalid, p.Type)
	}
	if _, err := p.CompileSchema(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, p.Type, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.Type] = p
	return nil
}

// Get returns the prompt for fileType.
func (s *Store) Get(ctx context.Context, fileType string) (Prompt, error) {
	if err := ctx.Err(); err != nil {
		return Prompt{}, err
	}
	fileType = NormalizeType(fileType)
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[fileType]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownType, fileType)
	}
	return p, nil
}

// Types lists stored prompt types in sorted order.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.prompts))
	for t := range s.prompts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

var _ Registry = (*Store)(nil)
