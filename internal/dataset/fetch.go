package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultCSVName is the filename used when the dataset URL returns a bare
// CSV payload instead of an archive.
const DefaultCSVName = "covid_19_data.csv"

// FetchError reports a failed dataset download: a transport error, a timeout,
// or a non-success HTTP status. Fetch failures are fatal and never retried.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch dataset %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch dataset %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher downloads the dataset payload and materializes it in the working
// directory. It only ever writes into an empty directory: once a CSV exists,
// EnsureData is a no-op.
type Fetcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher for the given dataset URL with a bounded
// request timeout.
func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// EnsureData guarantees dataDir contains at least one CSV file, downloading
// and unpacking the dataset on first call. Repeated calls after a successful
// fetch perform zero network requests.
func (f *Fetcher) EnsureData(ctx context.Context, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	existing, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return fmt.Errorf("scan data dir: %w", err)
	}
	if len(existing) > 0 {
		f.logger.Debug("dataset already present", "dir", dataDir, "files", len(existing))
		return nil
	}

	f.logger.Info("downloading dataset", "url", f.url)
	payload, err := f.download(ctx)
	if err != nil {
		return err
	}

	if extracted, err := extractZip(payload, dataDir); err != nil {
		return fmt.Errorf("extract dataset archive: %w", err)
	} else if extracted {
		f.logger.Info("extracted dataset archive", "dir", dataDir)
		return nil
	}

	// Not an archive: some mirrors return the CSV directly.
	dest := filepath.Join(dataDir, DefaultCSVName)
	if err := os.WriteFile(dest, payload, 0o644); err != nil {
		return fmt.Errorf("write dataset file: %w", err)
	}
	f.logger.Info("wrote dataset file", "path", dest, "bytes", len(payload))
	return nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	return payload, nil
}

// extractZip unpacks all members of a zip payload into dataDir. Returns
// (false, nil) when the payload is not a zip archive at all.
func extractZip(payload []byte, dataDir string) (bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return false, nil
	}

	for _, member := range zr.File {
		if member.FileInfo().IsDir() {
			continue
		}
		// Flatten archive paths; member names come from the dataset mirror
		// and must not escape the working directory.
		dest := filepath.Join(dataDir, filepath.Base(member.Name))
		if err := extractMember(member, dest); err != nil {
			return true, err
		}
	}
	return true, nil
}

func extractMember(member *zip.File, dest string) error {
	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", member.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", member.Name, err)
	}
	return nil
}
