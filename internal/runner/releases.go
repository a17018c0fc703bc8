package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// VendorLatestTag is the singleton tag the vendor runtime reports:
// there is no upstream feed, the runtime is whatever Steam shipped.
const VendorLatestTag = "vendor-latest"

// Release is one upstream release with a usable archive asset.
type Release struct {
	Tag      string
	AssetURL string
	Format   ArchiveFormat
}

// DownloadPlan says how to obtain a runtime: either an HTTPS archive
// URL, or a delegated plan for the vendor runtime located on disk.
type DownloadPlan struct {
	Kind      domain.RuntimeKind
	Tag       string
	URL       string
	Format    ArchiveFormat
	Delegated bool
}

// Client queries the upstream release feeds.
type Client struct {
	httpClient *http.Client
	// feedBase, when set, replaces the scheme+host of feed URLs (tests).
	feedBase string
}

// NewClient creates a feed client. A nil httpClient means
// http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// WithFeedBase rewrites the feed host to base, keeping the /repos/...
// path. Lets tests point the client at an httptest server.
func (c *Client) WithFeedBase(base string) *Client {
	c.feedBase = base
	return c
}

// feedEntry is the slice of the GitHub releases JSON we consume.
type feedEntry struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// ListRemoteReleases returns up to limit recent releases for a kind.
// The vendor kind has no feed and reports the singleton VendorLatestTag.
func (c *Client) ListRemoteReleases(ctx context.Context, kind domain.RuntimeKind, limit int) ([]Release, error) {
	desc, err := DescriptorFor(kind)
	if err != nil {
		return nil, err
	}
	if kind == domain.KindVendorExperimental {
		return []Release{{Tag: VendorLatestTag}}, nil
	}

	entries, err := c.fetchFeed(ctx, desc)
	if err != nil {
		return nil, err
	}

	var out []Release
	for _, e := range entries {
		if desc.TagPrefix != "" && !strings.HasPrefix(e.TagName, desc.TagPrefix) {
			continue
		}
		rel := Release{Tag: e.TagName, Format: desc.Format}
		for _, a := range e.Assets {
			if strings.HasSuffix(a.Name, desc.Format.suffix()) {
				rel.AssetURL = a.BrowserDownloadURL
				break
			}
		}
		if rel.AssetURL == "" {
			// A release without a matching archive cannot be installed.
			continue
		}
		out = append(out, rel)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ResolveDownload turns a kind and tag into a concrete plan. The vendor
// kind resolves to a delegated plan regardless of tag.
func (c *Client) ResolveDownload(ctx context.Context, kind domain.RuntimeKind, tag string) (DownloadPlan, error) {
	if kind == domain.KindVendorExperimental {
		return DownloadPlan{Kind: kind, Tag: VendorLatestTag, Delegated: true}, nil
	}

	releases, err := c.ListRemoteReleases(ctx, kind, 0)
	if err != nil {
		return DownloadPlan{}, err
	}
	for _, rel := range releases {
		if rel.Tag == tag {
			return DownloadPlan{Kind: kind, Tag: tag, URL: rel.AssetURL, Format: rel.Format}, nil
		}
	}
	return DownloadPlan{}, fmt.Errorf("release %q not found in %s feed", tag, kind)
}

func (c *Client) fetchFeed(ctx context.Context, desc KindDescriptor) ([]feedEntry, error) {
	url := desc.FeedURL
	if c.feedBase != "" {
		if i := strings.Index(url, "/repos/"); i >= 0 {
			url = c.feedBase + url[i:]
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s releases: %v", domain.ErrNetwork, desc.Kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s feed returned %s", domain.ErrNetwork, desc.Kind, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s feed: %v", domain.ErrNetwork, desc.Kind, err)
	}

	var entries []feedEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s feed: %w", desc.Kind, err)
	}
	return entries, nil
}
