package quranapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Himikid/andalus-taraweeh/internal/domain"
)

// DefaultBaseURL serves the Muhammad Asad English edition used for marker
// enrichment.
const DefaultBaseURL = "https://api.alquran.cloud"

const asadEditionPath = "/v1/quran/en.asad"

// Client loads the translation lookup from a local cache file, falling back
// to a single API fetch whose trimmed payload is persisted for next time.
type Client struct {
	baseURL    string
	cachePath  string
	httpClient *http.Client
}

func NewClient(baseURL, cachePath string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		cachePath: cachePath,
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}
}

type translationPayload struct {
	Data *translationRoot `json:"data"`
	translationRoot
}

type translationRoot struct {
	Surahs []translationSurah `json:"surahs"`
}

type translationSurah struct {
	Number int               `json:"number"`
	Ayahs  []translationAyah `json:"ayahs"`
}

type translationAyah struct {
	Number        int    `json:"number"`
	NumberInSurah int    `json:"numberInSurah"`
	Text          string `json:"text"`
}

// Lookup returns the translation keyed by ayah. A network failure degrades to
// an empty map so enrichment never fails a run.
func (c *Client) Lookup(ctx context.Context) (map[domain.AyahKey]string, error) {
	if c.cachePath != "" {
		if data, err := os.ReadFile(c.cachePath); err == nil {
			if lookup, _ := parsePayload(data); len(lookup) > 0 {
				return lookup, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+asadEditionPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return map[domain.AyahKey]string{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return map[domain.AyahKey]string{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return map[domain.AyahKey]string{}, nil
	}

	lookup, trimmed := parsePayload(body)
	if len(lookup) > 0 && c.cachePath != "" {
		if data, err := json.MarshalIndent(trimmed, "", "  "); err == nil {
			if err := os.MkdirAll(filepath.Dir(c.cachePath), 0o755); err == nil {
				_ = os.WriteFile(c.cachePath, data, 0o644)
			}
		}
	}
	return lookup, nil
}

// parsePayload accepts both the raw API response (with its "data" wrapper and
// numberInSurah fields) and the trimmed cache format.
func parsePayload(data []byte) (map[domain.AyahKey]string, translationRoot) {
	var payload translationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, translationRoot{}
	}
	root := payload.translationRoot
	if payload.Data != nil {
		root = *payload.Data
	}

	lookup := make(map[domain.AyahKey]string)
	trimmed := translationRoot{}
	for _, surah := range root.Surahs {
		if surah.Number <= 0 {
			continue
		}
		out := translationSurah{Number: surah.Number}
		for _, ayah := range surah.Ayahs {
			number := ayah.NumberInSurah
			if number == 0 {
				number = ayah.Number
			}
			text := strings.TrimSpace(ayah.Text)
			if number <= 0 || text == "" {
				continue
			}
			lookup[domain.AyahKey{SurahNumber: surah.Number, Ayah: number}] = text
			out.Ayahs = append(out.Ayahs, translationAyah{Number: number, Text: text})
		}
		trimmed.Surahs = append(trimmed.Surahs, out)
	}
	return lookup, trimmed
}
