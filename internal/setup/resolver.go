package setup

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/osrm-kit/pkg/httpclient"
)

const extractSuffix = "-latest.osm.pbf"

// Region is a resolved Geofabrik extract.
type Region struct {
	// Name is the bare region name, e.g. "germany".
	Name string
	// Path is the extract path relative to the mirror root, e.g. "europe/germany-latest.osm.pbf".
	Path string
	URL  string
}

// FileName returns the local name of the extract.
func (r Region) FileName() string { return r.Name + extractSuffix }

// OSRMName returns the name of the processed graph file.
func (r Region) OSRMName() string { return r.Name + "-latest.osrm" }

// Resolver maps user supplied region names to downloadable extracts.
type Resolver interface {
	Resolve(ctx context.Context, region string) (Region, error)
}

// GeofabrikResolver looks regions up on a Geofabrik mirror. A "continent/name"
// value is used as-is; a bare name is searched on the index and continent pages.
type GeofabrikResolver struct {
	baseURL string
	client  httpclient.Client
}

// NewGeofabrikResolver builds a resolver for the mirror at baseURL.
func NewGeofabrikResolver(baseURL string, client httpclient.Client) *GeofabrikResolver {
	if client == nil {
		client = httpclient.NewRestyClient(0)
	}
	return &GeofabrikResolver{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

// Resolve returns the extract for region.
func (g *GeofabrikResolver) Resolve(ctx context.Context, region string) (Region, error) {
	name := normalizeRegion(region)
	if name == "" {
		return Region{}, fmt.Errorf("region name is empty")
	}

	if strings.Contains(name, "/") {
		return g.region(name + extractSuffix), nil
	}

	index, err := g.links(ctx, "")
	if err != nil {
		return Region{}, err
	}
	target := name + extractSuffix
	if p, ok := findExtract(index, target); ok {
		return g.region(p), nil
	}

	for _, page := range continentPages(index) {
		links, err := g.links(ctx, page)
		if err != nil {
			return Region{}, err
		}
		if p, ok := findExtract(links, target); ok {
			return g.region(p), nil
		}
	}
	return Region{}, fmt.Errorf("region %q not found on %s", region, g.baseURL)
}

func (g *GeofabrikResolver) region(p string) Region {
	p = strings.TrimPrefix(p, "/")
	return Region{
		Name: strings.TrimSuffix(path.Base(p), extractSuffix),
		Path: p,
		URL:  g.baseURL + "/" + p,
	}
}

// links fetches page (relative to the mirror root) and returns every anchor href.
func (g *GeofabrikResolver) links(ctx context.Context, page string) ([]string, error) {
	pageURL := g.baseURL + "/" + page
	resp, err := g.client.Get(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if href = strings.TrimSpace(href); href != "" {
				hrefs = append(hrefs, href)
			}
		}
	})
	return hrefs, nil
}

func findExtract(hrefs []string, target string) (string, bool) {
	for _, h := range hrefs {
		if isAbsolute(h) {
			continue
		}
		if path.Base(h) == target {
			return h, true
		}
	}
	return "", false
}

// continentPages returns the top level sub pages linked from the index.
func continentPages(hrefs []string) []string {
	seen := make(map[string]struct{})
	var pages []string
	for _, h := range hrefs {
		if isAbsolute(h) || strings.Contains(h, "/") || !strings.HasSuffix(h, ".html") || h == "index.html" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		pages = append(pages, h)
	}
	return pages
}

func isAbsolute(href string) bool {
	return strings.Contains(href, "://") || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:")
}

// normalizeRegion lowercases the name and joins words with dashes, so
// "North America/US" becomes "north-america/us".
func normalizeRegion(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	region = strings.Trim(region, "/")
	region = strings.TrimSuffix(region, extractSuffix)
	return strings.Join(strings.Fields(region), "-")
}
