package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countyPage = `
<html><body>
<table id="ctl00_MainContent_gdvschools">
  <tr><th>Select</th><th>District Code</th><th>District Name</th></tr>
  <tr>
    <td><a href="ProjectList.aspx?ClientId=1234&Other=1">Select</a></td>
    <td>67439</td>
    <td>Sacramento City Unified</td>
  </tr>
  <tr>
    <td><a href="ProjectList.aspx?ClientId=5678">Select</a></td>
    <td>67447</td>
    <td>San Juan Unified</td>
  </tr>
  <tr>
    <td>no link here</td>
    <td>00000</td>
    <td>Broken Row</td>
  </tr>
</table>
</body></html>`

const districtPage = `
<html><body>
<table id="ctl00_MainContent_gdvschprojects">
  <tr><th>Select</th><th>DSA AppId</th><th>PTN</th><th>Project Name</th></tr>
  <tr>
    <td><a href="ApplicationSummary.aspx?OriginId=02&AppId=118765">Select</a></td>
    <td>02-118765</td>
    <td>69942-107</td>
    <td>New Gymnasium</td>
  </tr>
  <tr>
    <td><a href="ApplicationSummary.aspx?OriginId=02">Select</a></td>
    <td>02-999999</td>
    <td>69942-108</td>
    <td>Missing AppId Row</td>
  </tr>
</table>
</body></html>`

const detailPage = `
<html><body>
<span id="ctl00_MainContent_label1">Estimated Amt:</span>
<span id="ctl00_MainContent_lblEstAmt">$2,500,000.00</span>
<span id="ctl00_MainContent_label2">Received Date:</span>
<span id="ctl00_MainContent_lblRecvDate">03/15/2023</span>
<span id="ctl00_MainContent_label3">Project Name:</span>
<span id="ctl00_MainContent_lblPName">New Gymnasium</span>
<span id="ctl00_OtherContent_lblIgnored">not project data</span>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()

	srv := httptest.NewServer(handler)

	c := NewClient(srv.URL+"/", zerolog.Nop(),
		WithHTTPClient(srv.Client()),
		WithDelay(0))

	return c, srv.Close
}

func TestDistricts(t *testing.T) {
	c, closeFn := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "34", r.URL.Query().Get("County"))
		_, _ = w.Write([]byte(countyPage))
	}))
	defer closeFn()

	districts, err := c.Districts(context.Background(), "34")
	require.NoError(t, err)
	require.Len(t, districts, 2)

	assert.Equal(t, "1234", districts[0].ClientID)
	assert.Equal(t, "67439", districts[0].Code)
	assert.Equal(t, "Sacramento City Unified", districts[0].Name)
	assert.Equal(t, "34", districts[0].County)

	assert.Equal(t, "5678", districts[1].ClientID)
}

func TestProjects(t *testing.T) {
	c, closeFn := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234", r.URL.Query().Get("ClientId"))
		_, _ = w.Write([]byte(districtPage))
	}))
	defer closeFn()

	projects, err := c.Projects(context.Background(), "1234")
	require.NoError(t, err)

	// The row without an AppId is dropped.
	require.Len(t, projects, 1)
	assert.Equal(t, "02", projects[0].OriginID)
	assert.Equal(t, "118765", projects[0].AppID)
	assert.Equal(t, "02-118765", projects[0].DSAAppID)
	assert.Equal(t, "69942-107", projects[0].PTN)
	assert.Equal(t, "New Gymnasium", projects[0].Name)
	assert.Equal(t, "1234", projects[0].ClientID)
}

func TestDetails(t *testing.T) {
	c, closeFn := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "02", r.URL.Query().Get("OriginId"))
		assert.Equal(t, "118765", r.URL.Query().Get("AppId"))
		_, _ = w.Write([]byte(detailPage))
	}))
	defer closeFn()

	details, err := c.Details(context.Background(), "02", "118765")
	require.NoError(t, err)

	assert.Equal(t, "$2,500,000.00", details["Estimated Amt"])
	assert.Equal(t, "03/15/2023", details["Received Date"])
	assert.Equal(t, "New Gymnasium", details["Project Name"])
	assert.Equal(t, "02", details["origin_id"])
	assert.Equal(t, "118765", details["app_id"])

	// Spans outside MainContent never leak into the data.
	for _, v := range details {
		assert.NotEqual(t, "not project data", v)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	c, closeFn := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer closeFn()

	_, err := c.Districts(context.Background(), "34")
	assert.Error(t, err)
}
