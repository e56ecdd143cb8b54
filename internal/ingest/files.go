package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir reads every .json file in dir into a raw document. Unreadable
// files are logged and skipped; parse failures are handled per document by
// the reconciler.
func LoadDir(dir string) ([]json.RawMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading payloads dir: %w", err)
	}

	var docs []json.RawMessage
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("ingest: skipping unreadable file %s: %v", entry.Name(), err)
			continue
		}
		docs = append(docs, data)
	}
	return docs, nil
}
