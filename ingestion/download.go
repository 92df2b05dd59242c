package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/storage"
)

// Archive members are matched by these markers, in this order.
var memberMarkers = []string{"100K", "10K"}

// Downloader fetches the source archive and uploads its tables to the raw keys.
type Downloader struct {
	client   *resty.Client
	store    storage.BlobStore
	cfg      config.IngestConfig
	logger   log.Logger
	progress io.Writer
}

// NewDownloader creates a Downloader. progress receives a byte progress bar
// and may be nil.
func NewDownloader(store storage.BlobStore, cfg config.IngestConfig, logger log.Logger, progress io.Writer) *Downloader {
	if logger == nil {
		logger = log.GetLoggerWithName("ingestion")
	}
	return &Downloader{
		client:   resty.New(),
		store:    store,
		cfg:      cfg,
		logger:   logger.With(log.StageKey, log.StageIngest),
		progress: progress,
	}
}

// Download fetches SourceURL and stores the *100K* member under RawKeys[0]
// and the *10K* member under RawKeys[1]. It returns the stored URIs.
func (d *Downloader) Download(ctx context.Context) ([]string, error) {
	if d.cfg.SourceURL == "" {
		return nil, errors.NewValueError("Downloader.Download", "source_url is empty")
	}
	if len(d.cfg.RawKeys) < len(memberMarkers) {
		return nil, errors.NewValueError("Downloader.Download", "need one raw key per archive member")
	}

	archive, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}

	members := matchMembers(zr.File)
	var uris []string
	for i, marker := range memberMarkers {
		zf, ok := members[marker]
		if !ok {
			return uris, errors.Newf("archive has no member matching *%s*", marker)
		}
		data, err := readMember(zf)
		if err != nil {
			return uris, err
		}
		key := d.cfg.RawKeys[i]
		uri, err := d.store.Put(ctx, key, data)
		if err != nil {
			return uris, errors.NewArtifactError("put", key, true, err)
		}
		d.logger.Info("uploaded raw table", "member", zf.Name, log.ArtifactKey, uri)
		uris = append(uris, uri)
	}
	return uris, nil
}

func (d *Downloader) fetch(ctx context.Context) ([]byte, error) {
	res, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(d.cfg.SourceURL)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", d.cfg.SourceURL)
	}
	body := res.RawBody()
	defer body.Close()
	if !res.IsSuccess() {
		return nil, errors.Newf("download %s: status %d", d.cfg.SourceURL, res.StatusCode())
	}

	var buf bytes.Buffer
	dst := io.Writer(&buf)
	if d.progress != nil {
		bar := progressbar.NewOptions64(res.RawResponse.ContentLength,
			progressbar.OptionSetWriter(d.progress),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
		dst = io.MultiWriter(&buf, bar)
	}
	if _, err := io.Copy(dst, body); err != nil {
		return nil, errors.Wrap(err, "read archive")
	}
	return buf.Bytes(), nil
}

// matchMembers maps each marker to the first CSV member whose base name
// contains it.
func matchMembers(files []*zip.File) map[string]*zip.File {
	out := make(map[string]*zip.File)
	for _, zf := range files {
		base := path.Base(zf.Name)
		if zf.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(base), ".csv") {
			continue
		}
		for _, marker := range memberMarkers {
			if strings.Contains(base, marker) {
				if _, seen := out[marker]; !seen {
					out[marker] = zf
				}
				break
			}
		}
	}
	return out
}

func readMember(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", zf.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", zf.Name)
	}
	return data, nil
}
