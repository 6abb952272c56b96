package corpusfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Himikid/andalus-taraweeh/internal/quran"
)

// Load reads the canonical corpus JSON from disk and builds the index.
func Load(path string, strict bool) (*quran.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var payload quran.CorpusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal corpus: %w", err)
	}

	idx, err := quran.NewIndex(payload, strict)
	if err != nil {
		return nil, fmt.Errorf("build corpus index: %w", err)
	}
	return idx, nil
}
