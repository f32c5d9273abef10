package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
	zippkg "studio/pkg/zip"
)

// archiveFetchLimit caps how much of a single result we pull into memory.
const archiveFetchLimit = 64 << 20

var archiveClient = &http.Client{Timeout: 30 * time.Second}

// ArchiveResults downloads every completed result and streams them back as
// one zip file. Results that fail to download are skipped, not fatal.
func (a *App) ArchiveResults(w http.ResponseWriter, r *http.Request) {
	var assets []zippkg.Asset
	for _, task := range a.Orchestrator.Tasks() {
		if task.Status != domain.TaskStatusDone || task.URL == "" {
			continue
		}
		data, mime, err := fetchResult(r, task.URL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("task_id", task.ID).Msg("handlers: skipping result in archive")
			continue
		}
		assets = append(assets, zippkg.Asset{
			Filename: resultFilename(task.ID, mime),
			MIME:     mime,
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "no_results", "no completed results to archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="results.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(zippkg.ArchiveAssets(assets))
}

func fetchResult(r *http.Request, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := archiveClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, archiveFetchLimit))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func resultFilename(taskID, mime string) string {
	ext := ".png"
	switch {
	case strings.Contains(mime, "jpeg"):
		ext = ".jpg"
	case strings.Contains(mime, "webp"):
		ext = ".webp"
	}
	if len(taskID) > 8 {
		taskID = taskID[:8]
	}
	return taskID + ext
}
