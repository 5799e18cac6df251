package setup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/samvad-hq/osrm-kit/pkg/httpclient"
)

// Downloader streams extracts to disk.
type Downloader struct {
	client   *resty.Client
	progress io.Writer
}

// NewDownloader returns a downloader reporting progress to w. A nil w hides the bar.
func NewDownloader(client *resty.Client, w io.Writer) *Downloader {
	if client == nil {
		// No client timeout: ctx bounds the transfer.
		client = httpclient.NewRestyHTTPClient(httpclient.Options{})
		client.SetTimeout(0)
	}
	if w == nil {
		w = io.Discard
	}
	return &Downloader{client: client, progress: w}
}

// Fetch downloads region into dir and returns the local path. An existing
// non-empty file is kept.
func (d *Downloader) Fetch(ctx context.Context, region Region, dir string) (string, bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create %s: %w", dir, err)
	}
	dest := filepath.Join(dir, region.FileName())
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, false, nil
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(region.URL)
	if err != nil {
		return "", false, fmt.Errorf("download %s: %w", region.URL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return "", false, fmt.Errorf("download %s: status %d", region.URL, resp.StatusCode())
	}

	tmp, err := os.CreateTemp(dir, region.FileName()+".*.part")
	if err != nil {
		return "", false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bar := progressbar.NewOptions64(resp.RawResponse.ContentLength,
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription(region.Name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(0),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(d.progress) }),
	)

	if _, err := io.Copy(io.MultiWriter(tmp, bar), body); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	_ = bar.Finish()

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", false, fmt.Errorf("move %s: %w", dest, err)
	}
	return dest, true, nil
}
