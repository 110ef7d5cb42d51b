//go:build browser

package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/config"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/navigation"
)

// These tests drive a local Chrome against an httptest page.
// Run with: go test -tags=browser ./internal/adapter/browser/ -v -count=1

const stationPage = `<!doctype html><html><body>
<button onclick="document.getElementById('list').style.display='block'">測站清單</button>
<div id="list" style="display:none"><table><tbody style="display:block;height:200px;overflow-y:scroll">%s</tbody></table></div>
<select id="station"><option value="466920">466920</option><option value="467410">467410</option></select>
</body></html>`

func testSession(t *testing.T) *Session {
	t.Helper()
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("chrome not installed")
	}
	cfg := &config.Config{
		DownloadDir:     t.TempDir(),
		BrowserHeadless: true,
		WaitTimeout:     2 * time.Second,
	}
	s, err := Launch(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func serveStations(t *testing.T, n int) string {
	t.Helper()
	var rows strings.Builder
	for i := range n {
		fmt.Fprintf(&rows, `<tr style="display:block;height:40px"><td>4674%02d</td><td><i class="fa-chart-line" data-station="4674%02d">x</i></td></tr>`, i, i)
	}
	body := fmt.Sprintf(stationPage, rows.String())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, body) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestSession_LocateStationRow(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, serveStations(t, 60)))

	btn, err := s.WaitFor(ctx, automation.CSS("button").WithText("測站清單"))
	require.NoError(t, err)
	require.NoError(t, btn.Click(ctx))

	tbody, err := s.WaitFor(ctx, automation.CSS("table tbody"))
	require.NoError(t, err)

	opts := navigation.DefaultLocateOptions()
	opts.Settle = 50 * time.Millisecond
	icon, _, err := navigation.Locate(ctx, tbody, "467455", opts)
	require.NoError(t, err)

	id, ok, err := icon.Attribute(ctx, "data-station")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "467455", id)
}

func TestSession_SelectOption(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, serveStations(t, 1)))

	sel, err := s.WaitFor(ctx, automation.CSS("select#station"))
	require.NoError(t, err)
	require.NoError(t, sel.SelectOption(ctx, "467410"))
	assert.Error(t, sel.SelectOption(ctx, "000000"))
}

func TestSession_WaitForTimesOut(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, serveStations(t, 1)))

	_, err := s.WaitFor(ctx, automation.CSS("section.lightbox-tool"))
	require.ErrorIs(t, err, domain.ErrNavigationTimeout)
}
