package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/storage"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func seedStore(t *testing.T) (*storage.LocalStore, config.IngestConfig) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	cfg := config.Default().Ingest

	ctx := context.Background()
	_, err = store.Put(ctx, cfg.RawKeys[0], latin1(t, "id;address;price\n1;12 Café St;1000\n2;34;1100\n3;;1200\n4;;1300\n"))
	require.NoError(t, err)
	_, err = store.Put(ctx, cfg.RawKeys[1], latin1(t, "id;address;price\n5;;1400\n"))
	require.NoError(t, err)
	return store, cfg
}

func TestLoaderFetch(t *testing.T) {
	store, cfg := seedStore(t)
	f, err := NewLoader(store, cfg, nil).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, f.Len())
	addr, err := f.Column("address")
	require.NoError(t, err)
	s, ok := addr.StringAt(0)
	assert.True(t, ok)
	assert.Equal(t, "12 Café St", s)
	s, _ = addr.StringAt(1)
	assert.Equal(t, "34", s, "address is forced to string")
}

func TestLoaderFetchMissingKey(t *testing.T) {
	store, cfg := seedStore(t)
	cfg.RawKeys = append(cfg.RawKeys, "raw/absent.csv")
	_, err := NewLoader(store, cfg, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsEssential(err))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoaderLoadDeterministic(t *testing.T) {
	store, cfg := seedStore(t)
	l := NewLoader(store, cfg, nil)

	train1, test1, err := l.Load(context.Background())
	require.NoError(t, err)
	train2, test2, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, train1.Len())
	assert.Equal(t, 1, test1.Len())
	ids1, _ := train1.Floats("id")
	ids2, _ := train2.Floats("id")
	assert.Equal(t, ids1, ids2)
	t1, _ := test1.Floats("id")
	t2, _ := test2.Floats("id")
	assert.Equal(t, t1, t2)
	assert.ElementsMatch(t, []float64{1, 2, 3, 4, 5}, append(append([]float64{}, ids1...), t1...))
}

func TestSplitRejectsFraction(t *testing.T) {
	store, cfg := seedStore(t)
	f, err := NewLoader(store, cfg, nil).Fetch(context.Background())
	require.NoError(t, err)
	_, _, err = Split(f, 1, 42)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloaderDownload(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"apartments_for_rent_classified_10K.csv":  "id\n2\n",
		"apartments_for_rent_classified_100K.csv": "id\n1\n",
		"README.txt": "ignored",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	cfg := config.Default().Ingest
	cfg.SourceURL = srv.URL + "/data.zip"

	var progress bytes.Buffer
	uris, err := NewDownloader(store, cfg, nil, &progress).Download(context.Background())
	require.NoError(t, err)
	assert.Len(t, uris, 2)

	train, err := store.Get(context.Background(), cfg.RawKeys[0])
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(train))
	test, err := store.Get(context.Background(), cfg.RawKeys[1])
	require.NoError(t, err)
	assert.Equal(t, "id\n2\n", string(test))
}

func TestDownloaderErrors(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := config.Default().Ingest
		cfg.SourceURL = srv.URL
		_, err := NewDownloader(store, cfg, nil, nil).Download(context.Background())
		assert.Error(t, err)
	})

	t.Run("missing member", func(t *testing.T) {
		archive := buildZip(t, map[string]string{"only_100K.csv": "id\n1\n"})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(archive)
		}))
		defer srv.Close()
		cfg := config.Default().Ingest
		cfg.SourceURL = srv.URL
		uris, err := NewDownloader(store, cfg, nil, nil).Download(context.Background())
		assert.Error(t, err)
		assert.Len(t, uris, 1)
	})
}
