package action

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// fallbackFileName — имя файла, если его нельзя вывести ни из заголовков, ни из URL.
const fallbackFileName = "unnamed_file"

// Download скачивает файл по URL в каталог.
//
// Аргументы: url (string), dir (string). Имя файла берётся из
// Content-Disposition, затем из пути URL. Тело пишется потоком во временный
// файл, который переименовывается только после успешного чтения.
func Download(ctx context.Context, args ...any) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: download expects (url, dir), got %d args", ErrBadArguments, len(args))
	}
	rawURL, ok1 := args[0].(string)
	dir, ok2 := args[1].(string)
	if !ok1 || !ok2 || rawURL == "" || dir == "" {
		return fmt.Errorf("%w: download expects two non-empty strings", ErrBadArguments)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	dir = os.ExpandEnv(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	name := FileName(resp.Header.Get("Content-Disposition"), rawURL)
	tmp, err := os.CreateTemp(dir, "."+name+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if copyErr != nil {
			return fmt.Errorf("write %s: %w", name, copyErr)
		}
		return fmt.Errorf("close %s: %w", name, closeErr)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// FileName выводит безопасное имя файла для скачивания.
func FileName(contentDisposition, rawURL string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := sanitizeFileName(params["filename"]); name != "" {
				return name
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		if name := sanitizeFileName(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return fallbackFileName
}

// sanitizeFileName убирает разделители путей и скрытые/служебные имена.
func sanitizeFileName(name string) string {
	name = strings.NewReplacer("/", "", "\\", "", ":", "", "\x00", "").Replace(name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	return name
}
