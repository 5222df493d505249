package haltfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalscan/internal/domain/models"
	"signalscan/pkg/logger"
)

func feedLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:ndaq="http://www.nasdaqtrader.com/">
<channel>
<title>Trading Halts</title>
<item>
<title>ACME - Acme Corp</title>
<ndaq:IssueSymbol>ACME</ndaq:IssueSymbol>
<ndaq:HaltDate>01/05/2026</ndaq:HaltDate>
<ndaq:HaltTime>09:31:00</ndaq:HaltTime>
<ndaq:ReasonCode>LUDP</ndaq:ReasonCode>
<ndaq:Market>NASDAQ</ndaq:Market>
<ndaq:ResumptionDate>01/05/2026</ndaq:ResumptionDate>
<ndaq:ResumptionTradeTime>09:41:00</ndaq:ResumptionTradeTime>
</item>
<item>
<title>BETA - Beta Inc</title>
<ndaq:HaltDate>01/05/2026</ndaq:HaltDate>
<ndaq:HaltTime>10:00:00</ndaq:HaltTime>
<ndaq:ReasonCode>T1</ndaq:ReasonCode>
<ndaq:Market>NYSE</ndaq:Market>
</item>
<item>
<title></title>
</item>
</channel>
</rss>`

func TestRSSSourceFetch(t *testing.T) {
	srv := serve(t, "application/rss+xml", rssFixture)
	src := NewRSSSource(srv.URL, feedLogger(t))

	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2, "symbol-less entry is dropped")

	acme := recs[0]
	assert.Equal(t, "ACME", acme.Symbol)
	assert.Equal(t, models.HaltStatusResumed, acme.Status)
	assert.Equal(t, "LUDP", acme.Reason)
	assert.Equal(t, "NASDAQ", acme.Exchange)
	assert.Equal(t, "rss", acme.Source)

	want := time.Date(2026, 1, 5, 9, 31, 0, 0, etZone)
	assert.True(t, acme.HaltTime.Equal(want))
	require.NotNil(t, acme.ResumeTime)
	assert.True(t, acme.ResumeTime.Equal(want.Add(10*time.Minute)))

	// The second entry has no extension symbol; it comes from the title.
	beta := recs[1]
	assert.Equal(t, "BETA", beta.Symbol)
	assert.Equal(t, models.HaltStatusHalted, beta.Status)
	assert.Nil(t, beta.ResumeTime)
}

const tableFixture = `<html><body><table>
<tr><th>Halt Date</th><th>Halt Time</th><th>Issue Symbol</th><th>Issue Name</th>
<th>Market</th><th>Reason Codes</th><th>Pause Threshold Price</th>
<th>Resumption Date</th><th>Resumption Quote Time</th><th>Resumption Trade Time</th></tr>
<tr><td>01/05/2026</td><td>09:31:00</td><td>ACME</td><td>Acme Corp</td>
<td>NASDAQ</td><td>LUDP</td><td></td>
<td>01/05/2026</td><td>09:36:00</td><td>09:41:00</td></tr>
<tr><td>01/05/2026</td><td>10:00:00</td><td>beta</td><td>Beta Inc</td>
<td>NYSE</td><td>T1</td><td></td>
<td></td><td></td><td></td></tr>
<tr><td>bad date</td><td>bad time</td><td>GAMA</td><td>Gamma Ltd</td>
<td>NYSE</td><td>T1</td><td></td>
<td></td><td></td><td></td></tr>
</table></body></html>`

func TestTableSourceFetch(t *testing.T) {
	srv := serve(t, "text/html", tableFixture)
	src := NewTableSource(srv.URL, feedLogger(t))

	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2, "header and unparsable rows are skipped")

	acme := recs[0]
	assert.Equal(t, "ACME", acme.Symbol)
	assert.Equal(t, models.HaltStatusResumed, acme.Status)
	assert.Equal(t, "table", acme.Source)
	require.NotNil(t, acme.ResumeTime)

	beta := recs[1]
	assert.Equal(t, "BETA", beta.Symbol, "symbols are upper-cased")
	assert.Equal(t, models.HaltStatusHalted, beta.Status)
	assert.Nil(t, beta.ResumeTime, "empty resume columns stay open")
}

func TestTableSourceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	src := NewTableSource(srv.URL, feedLogger(t))
	_, err := src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestParseFeedTime(t *testing.T) {
	got, err := parseFeedTime("01/05/2026", "09:31:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 5, 9, 31, 0, 0, etZone)))

	// Minute precision without seconds is accepted too.
	got, err = parseFeedTime("01/05/2026", "09:31")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 5, 9, 31, 0, 0, etZone)))

	_, err = parseFeedTime("", "09:31:00")
	assert.Error(t, err)
	_, err = parseFeedTime("01/05/2026", "")
	assert.Error(t, err)
	_, err = parseFeedTime("2026-01-05", "09:31:00")
	assert.Error(t, err)
}

func TestSourcePriorities(t *testing.T) {
	log := feedLogger(t)
	rss := NewRSSSource("", log)
	table := NewTableSource("", log)
	assert.Less(t, rss.Priority(), table.Priority(), "table overrides rss on conflict")
}
