package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nq-deploy/deployctl/common"
)

// API routes the exporter reads from.
const (
	mushafsListRoute = "/mushaf"
	surahsListRoute  = "/surah"
)

// Export pulls the deployed API's quran content back out as JSON files:
// the mushaf list, the surah list for the given mushaf, and every surah
// document, written to outDir. The response bodies are stored as the API
// returned them.
func (c *Client) Export(ctx context.Context, outDir, mushaf string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	mushafs, err := c.getJSON(ctx, mushafsListRoute)
	if err != nil {
		return err
	}
	if err := writeExport(outDir, "mushafs_list", mushafs); err != nil {
		return err
	}

	surahs, err := c.getJSON(ctx, surahsListRoute+"?mushaf="+mushaf)
	if err != nil {
		return err
	}
	if err := writeExport(outDir, "surahs_list", surahs); err != nil {
		return err
	}

	var list []struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(surahs, &list); err != nil {
		return fmt.Errorf("surah list is not valid JSON: %w", err)
	}

	for _, entry := range list {
		body, err := c.getJSON(ctx, surahsListRoute+"/"+entry.UUID+"?mushaf="+mushaf)
		if err != nil {
			return err
		}
		var surah struct {
			SurahNumber int `json:"surah_number"`
		}
		if err := json.Unmarshal(body, &surah); err != nil {
			return fmt.Errorf("surah %s is not valid JSON: %w", entry.UUID, err)
		}
		if err := writeExport(outDir, fmt.Sprintf("surah_%d", surah.SurahNumber), body); err != nil {
			return err
		}
	}

	common.Logger.WithField("surahs", len(list)).WithField("dir", outDir).Info("export complete")
	return nil
}

// getJSON fetches one API route and returns the raw response body.
func (c *Client) getJSON(ctx context.Context, route string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			ErrRequestFailed, route, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func writeExport(outDir, name string, body []byte) error {
	return os.WriteFile(filepath.Join(outDir, name+".json"), body, 0644)
}
