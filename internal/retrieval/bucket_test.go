package retrieval_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation/automationtest"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDownloader struct {
	urls []string
	err  error
}

func (d *recordingDownloader) Download(_ context.Context, rawURL, dst string) error {
	d.urls = append(d.urls, rawURL)
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(dst, []byte("Seq,縣市,區別\n"), 0o644)
}

func testProfile() retrieval.BucketProfile {
	p := retrieval.TainanBucketProfile()
	p.DatasetURL = "https://portal.test/DataSet/Detail/dengue"
	p.BaseURL = "https://portal.test"
	return p
}

// portalPage shows the year link on navigation; clicking it reveals the CSV
// resource anchor.
func portalPage(title, href string) *automationtest.Page {
	page := automationtest.NewPage()
	page.OnNavigate = func(p *automationtest.Page, _ string) {
		link := &automationtest.Node{CSS: fmt.Sprintf(`a[title=%q]`, title), Label: title}
		link.OnClick = func() {
			p.Add(
				&automationtest.Node{CSS: "a", Label: "JSON", Attrs: map[string]string{"href": "/x.json"}},
				&automationtest.Node{CSS: "a", Label: "CSV 下載", Attrs: map[string]string{"href": href}},
			)
		}
		p.Reset(link)
	}
	return page
}

var november2025 = domain.Period{Year: 2025, Month: time.November}

func TestBucketRetriever_DownloadsYearCSV(t *testing.T) {
	dir := t.TempDir()
	page := portalPage("114年臺南市登革熱誘卵桶監測資訊", "/Download/bucket.csv?format=csv")
	dl := &recordingDownloader{}
	r := retrieval.NewBucketRetriever(page, dl, testProfile(), dir, "", slog.Default())

	path, err := r.Retrieve(context.Background(), november2025)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bucket_114.csv"), path)
	assert.FileExists(t, path)
	assert.Equal(t, []string{"https://portal.test/Download/bucket.csv?format=csv"}, dl.urls)
	assert.Equal(t, []string{"https://portal.test/DataSet/Detail/dengue"}, page.Visited)
}

func TestBucketRetriever_AbsoluteHrefAndTitleOverride(t *testing.T) {
	dir := t.TempDir()
	page := portalPage("113年臺南市登革熱誘卵桶監測資訊", "https://cdn.test/b.csv")
	dl := &recordingDownloader{}
	r := retrieval.NewBucketRetriever(page, dl, testProfile(), dir, "113年臺南市登革熱誘卵桶監測資訊", slog.Default())

	path, err := r.Retrieve(context.Background(), november2025)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bucket_114.csv"), path)
	assert.Equal(t, []string{"https://cdn.test/b.csv"}, dl.urls)
}

func TestBucketRetriever_MissingYearLink(t *testing.T) {
	page := portalPage("113年臺南市登革熱誘卵桶監測資訊", "/b.csv")
	dl := &recordingDownloader{}
	r := retrieval.NewBucketRetriever(page, dl, testProfile(), t.TempDir(), "", slog.Default())

	_, err := r.Retrieve(context.Background(), november2025)
	require.ErrorIs(t, err, domain.ErrNavigationTimeout)
	assert.Empty(t, dl.urls)
}

func TestBucketRetriever_LinkWithoutHref(t *testing.T) {
	page := portalPage("114年臺南市登革熱誘卵桶監測資訊", "")
	r := retrieval.NewBucketRetriever(page, &recordingDownloader{}, testProfile(), t.TempDir(), "", slog.Default())

	_, err := r.Retrieve(context.Background(), november2025)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBucketRetriever_TransportFailure(t *testing.T) {
	page := portalPage("114年臺南市登革熱誘卵桶監測資訊", "/b.csv")
	dl := &recordingDownloader{err: fmt.Errorf("status 404: %w", domain.ErrTransport)}
	r := retrieval.NewBucketRetriever(page, dl, testProfile(), t.TempDir(), "", slog.Default())

	_, err := r.Retrieve(context.Background(), november2025)
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestBucketRetriever_NavigateFailure(t *testing.T) {
	page := portalPage("114年臺南市登革熱誘卵桶監測資訊", "/b.csv")
	page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	r := retrieval.NewBucketRetriever(page, &recordingDownloader{}, testProfile(), t.TempDir(), "", slog.Default())

	_, err := r.Retrieve(context.Background(), november2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open dataset page")
}

func TestYearLink(t *testing.T) {
	assert.Equal(t, `a[title="114年臺南市登革熱誘卵桶監測資訊"]`, retrieval.YearLink("114年臺南市登革熱誘卵桶監測資訊").CSS)
}
