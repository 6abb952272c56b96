package overridesfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// file is the day-overrides JSON shape: either a top-level "day_overrides"
// object or the day map directly, keyed by the day number as a string.
type file struct {
	DayOverrides map[string]domain.DayOverrides `json:"day_overrides"`
}

// Load reads the overrides for one day. A missing file or an absent day key
// yields nil overrides, not an error.
func Load(path string, day int) (*domain.DayOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var wrapped file
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal overrides: %w", err)
	}
	dayMap := wrapped.DayOverrides
	if dayMap == nil {
		if err := json.Unmarshal(data, &dayMap); err != nil {
			return nil, fmt.Errorf("unmarshal overrides: %w", err)
		}
	}

	overrides, ok := dayMap[strconv.Itoa(day)]
	if !ok {
		return nil, nil
	}
	return &overrides, nil
}
