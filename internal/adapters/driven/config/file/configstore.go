package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/config"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// FileName is the settings file inside the data directory.
const FileName = "config.toml"

// ConfigStore keeps settings in config.toml. Tables are read as dotted
// keys, so [rag] chunk_size = 800 is "rag.chunk_size", and every Set
// rewrites the file.
type ConfigStore struct {
	*config.Values

	writeMu sync.Mutex
	path    string
}

// NewConfigStore opens dir/config.toml, creating dir if needed. An empty
// dir means ~/.docsearch. A missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".docsearch")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{Values: config.NewValues(nil), path: filepath.Join(dir, FileName)}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.path, err)
	}
	return s, nil
}

func (s *ConfigStore) Path() string { return s.path }

func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Snapshot()
	next[key] = value
	if err := s.write(next); err != nil {
		return err
	}
	s.Put(key, value)
	return nil
}

func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(s.Snapshot())
}

func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	flat := make(map[string]any)
	flatten(flat, "", doc)
	s.Replace(flat)
	return nil
}

// write encodes m into a temporary file beside the target and renames it
// into place, so a failed encode or a crash leaves the old file intact.
func (s *ConfigStore) write(m map[string]any) error {
	data, err := toml.Marshal(nest(m))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func flatten(dst map[string]any, prefix string, table map[string]any) {
	for k, v := range table {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(dst, key, sub)
			continue
		}
		dst[key] = v
	}
}

// nest turns dotted keys back into tables. Keys are visited in order so
// the result does not depend on map iteration. A key that collides with a
// value already placed on its path is kept at the top level as written.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		if !place(root, strings.Split(key, "."), flat[key]) {
			root[key] = flat[key]
		}
	}
	return root
}

func place(node map[string]any, path []string, value any) bool {
	for _, part := range path[:len(path)-1] {
		switch child := node[part].(type) {
		case nil:
			next := make(map[string]any)
			node[part] = next
			node = next
		case map[string]any:
			node = child
		default:
			return false
		}
	}
	last := path[len(path)-1]
	if _, isTable := node[last].(map[string]any); isTable {
		return false
	}
	node[last] = value
	return true
}
