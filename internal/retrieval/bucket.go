package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// Downloader fetches a URL and writes the body verbatim to dst.
type Downloader interface {
	Download(ctx context.Context, rawURL, dst string) error
}

// BucketProfile locates the surveillance dataset on the open-data portal.
type BucketProfile struct {
	DatasetURL string
	BaseURL    string // resolves relative CSV links
	CSVLink    automation.Selector
}

// TainanBucketProfile is the Tainan City oviposition-trap dataset.
func TainanBucketProfile() BucketProfile {
	return BucketProfile{
		DatasetURL: "https://data.tainan.gov.tw/DataSet/Detail/33a5bbc9-6898-4851-9147-4410f0b2f47e",
		BaseURL:    "https://data.tainan.gov.tw",
		CSVLink:    automation.CSS("a").WithText("CSV"),
	}
}

// BucketRetriever downloads the surveillance CSV for a year.
type BucketRetriever struct {
	session    automation.Session
	downloader Downloader
	profile    BucketProfile
	dir        string
	yearTitle  string
	logger     *slog.Logger
}

// NewBucketRetriever creates a BucketRetriever writing into dir. A non-empty
// yearTitle replaces the title derived from the period.
func NewBucketRetriever(session automation.Session, downloader Downloader, profile BucketProfile, dir, yearTitle string, logger *slog.Logger) *BucketRetriever {
	return &BucketRetriever{
		session:    session,
		downloader: downloader,
		profile:    profile,
		dir:        dir,
		yearTitle:  yearTitle,
		logger:     logger,
	}
}

// Retrieve follows the year link to its CSV resource and saves it as
// bucket_<ROC year>.csv, returning the written path.
func (r *BucketRetriever) Retrieve(ctx context.Context, period domain.Period) (string, error) {
	artifact := domain.BucketArtifact{Period: period}
	title := r.yearTitle
	if title == "" {
		title = artifact.YearTitle()
	}

	if err := r.session.Navigate(ctx, r.profile.DatasetURL); err != nil {
		return "", fmt.Errorf("open dataset page: %w", err)
	}

	year, err := r.session.WaitFor(ctx, YearLink(title))
	if err != nil {
		return "", fmt.Errorf("wait for year link %q: %w", title, err)
	}
	if err := year.Click(ctx); err != nil {
		return "", fmt.Errorf("open year %q: %w", title, err)
	}

	link, err := r.session.WaitFor(ctx, r.profile.CSVLink)
	if err != nil {
		return "", fmt.Errorf("wait for csv link: %w", err)
	}
	href, ok, err := link.Attribute(ctx, "href")
	if err != nil {
		return "", fmt.Errorf("read csv link: %w", err)
	}
	if !ok || href == "" {
		return "", fmt.Errorf("csv link has no href: %w", domain.ErrNotFound)
	}

	resolved, err := resolve(r.profile.BaseURL, href)
	if err != nil {
		return "", err
	}
	r.logger.Info("downloading surveillance csv", "url", resolved, "year_title", title)

	dst := artifact.Path(r.dir)
	if err := r.downloader.Download(ctx, resolved, dst); err != nil {
		return "", fmt.Errorf("download surveillance csv: %w", err)
	}
	r.logger.Info("surveillance csv saved", "path", dst)
	return dst, nil
}

// YearLink selects the dataset anchor whose title is exactly title.
func YearLink(title string) automation.Selector {
	return automation.CSS(fmt.Sprintf(`a[title=%q]`, title))
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse csv href %q: %w", href, err)
	}
	return b.ResolveReference(h).String(), nil
}
