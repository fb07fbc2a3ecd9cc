// Package scraper implements the client for the California DGS school
// project tracker. Counties list districts, districts list projects,
// and each project has an application summary page with the details.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public tracker root.
const DefaultBaseURL = "https://www.apps2.dgs.ca.gov/dsa/tracker/"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// District is one school district row on a county page
type District struct {
	ClientID string
	Code     string
	Name     string
	County   string
}

// ProjectRef is one project row on a district page, enough to fetch
// the detail page
type ProjectRef struct {
	OriginID string
	AppID    string
	DSAAppID string
	PTN      string
	Name     string
	ClientID string
}

// Client fetches and parses tracker pages. Safe for use from a single
// worker goroutine.
type Client struct {
	baseURL string
	http    *http.Client
	delay   time.Duration
	logger  zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithDelay sets the politeness delay between detail fetches
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// NewClient creates a tracker client. An empty baseURL selects the
// public tracker.
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		delay:   500 * time.Millisecond,
		logger:  logger.With().Str("component", "scraper").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Delay returns the configured politeness delay.
func (c *Client) Delay() time.Duration {
	return c.delay
}

// Districts returns all districts listed on a county page.
func (c *Client) Districts(ctx context.Context, countyCode string) ([]District, error) {
	doc, err := c.fetch(ctx, "CountySchoolProjects.aspx?County="+url.QueryEscape(countyCode))
	if err != nil {
		return nil, err
	}

	var districts []District

	eachGridRow(doc, func(cells *goquery.Selection) {
		if cells.Length() < 3 {
			return
		}

		href, ok := cells.Eq(0).Find("a").Attr("href")
		if !ok {
			return
		}

		clientID := queryParam(href, "ClientId")
		if clientID == "" {
			return
		}

		districts = append(districts, District{
			ClientID: clientID,
			Code:     cellText(cells, 1),
			Name:     cellText(cells, 2),
			County:   countyCode,
		})
	})

	c.logger.Debug().Str("county", countyCode).Int("districts", len(districts)).Msg("county page parsed")

	return districts, nil
}

// Projects returns all project rows listed on a district page.
func (c *Client) Projects(ctx context.Context, clientID string) ([]ProjectRef, error) {
	doc, err := c.fetch(ctx, "ProjectList.aspx?ClientId="+url.QueryEscape(clientID))
	if err != nil {
		return nil, err
	}

	var projects []ProjectRef

	eachGridRow(doc, func(cells *goquery.Selection) {
		if cells.Length() < 4 {
			return
		}

		href, ok := cells.Eq(0).Find("a").Attr("href")
		if !ok {
			return
		}

		originID := queryParam(href, "OriginId")
		appID := queryParam(href, "AppId")
		if originID == "" || appID == "" {
			return
		}

		projects = append(projects, ProjectRef{
			OriginID: originID,
			AppID:    appID,
			DSAAppID: cellText(cells, 1),
			PTN:      cellText(cells, 2),
			Name:     cellText(cells, 3),
			ClientID: clientID,
		})
	})

	c.logger.Debug().Str("client_id", clientID).Int("projects", len(projects)).Msg("district page parsed")

	return projects, nil
}

// Details fetches a project's application summary page and returns the
// cleaned label/value map.
func (c *Client) Details(ctx context.Context, originID, appID string) (map[string]string, error) {
	path := fmt.Sprintf("ApplicationSummary.aspx?OriginId=%s&AppId=%s",
		url.QueryEscape(originID), url.QueryEscape(appID))

	doc, err := c.fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	raw := map[string]string{
		"origin_id": originID,
		"app_id":    appID,
		"url":       c.baseURL + path,
	}

	// Labelled spans inside the main content area carry the project
	// fields, named like ctl00_MainContent_lblEstAmt.
	doc.Find("span[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		text := strings.TrimSpace(s.Text())
		if text == "" || !strings.Contains(id, "MainContent") {
			return
		}

		field := strings.ToLower(strings.ReplaceAll(
			strings.TrimPrefix(id, "ctl00_MainContent_"), "lbl", ""))
		if field != "" {
			raw[field] = text
		}
	})

	// Two-cell table rows are secondary key/value data.
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() != 2 {
				return
			}

			key := strings.ReplaceAll(strings.ReplaceAll(
				strings.ToLower(strings.TrimSpace(cells.Eq(0).Text())), " ", "_"), ":", "")
			value := strings.TrimSpace(cells.Eq(1).Text())
			if key != "" && value != "" {
				raw[fmt.Sprintf("table_%d_%s", i, key)] = value
			}
		})
	})

	return CleanDetails(raw), nil
}

func (c *Client) fetch(ctx context.Context, path string) (*goquery.Document, error) {
	u := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, u)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", u, err)
	}

	return doc, nil
}

// eachGridRow walks the data rows of the tracker's grid table, whose
// element id always contains "gdvsch". The header row is skipped.
func eachGridRow(doc *goquery.Document, fn func(cells *goquery.Selection)) {
	doc.Find("table[id*='gdvsch'] tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}

		fn(row.Find("td"))
	})
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

func queryParam(href, name string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return u.Query().Get(name)
}
