package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

const ManifestFile = "manifest.json"

// Manifest describes one completed index build. Generation changes with every
// build and scopes cached query results.
type Manifest struct {
	Generation int64     `json:"generation"`
	DocCount   int       `json:"doc_count"`
	TermCount  int       `json:"term_count"`
	NumShards  int       `json:"num_shards"`
	BuiltAt    time.Time `json:"built_at"`
}

// GenerationKey is the generation as a cache-key fragment.
func (m Manifest) GenerationKey() string {
	return strconv.FormatInt(m.Generation, 10)
}

func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadManifest loads dir/manifest.json. A missing manifest means no index has
// been built there.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, dir)
	}
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}
