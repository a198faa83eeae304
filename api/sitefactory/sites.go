package sitefactory

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/internal/response"
	"github.com/lexfrei/go-acsf/observability"
)

// MaxPageSize is the largest page the sites endpoint serves.
const MaxPageSize = 100

// ListSites retrieves one page of sites.
func (c *Client) ListSites(ctx context.Context, params *ListParams) (*SitesResponse, error) {
	if params == nil {
		params = &ListParams{}
	}

	query, err := newQuery().
		add("limit", params.Limit, params.Limit > 0).
		add("page", params.Page, params.Page > 0).
		build()
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{method: http.MethodGet, path: pathSites, query: query})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sites")
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[SitesResponse](body, "failed to decode site list")
}

// ListAllSites pages through ListSites until a short page is returned.
// A page that starts with the same site as the previous one ends the listing,
// so a server that ignores the page parameter cannot loop it forever.
func (c *Client) ListAllSites(ctx context.Context) ([]Site, error) {
	var (
		all       []Site
		prevFirst int64
	)

	for page := 1; ; page++ {
		resp, err := c.ListSites(ctx, &ListParams{Limit: MaxPageSize, Page: page})
		if err != nil {
			return nil, err
		}

		if len(resp.Sites) > 0 {
			if page > 1 && resp.Sites[0].ID == prevFirst {
				c.logger.Warn("site listing repeated a page, stopping",
					observability.Field{Key: "page", Value: page},
				)
				return all, nil
			}
			prevFirst = resp.Sites[0].ID
		}

		all = append(all, resp.Sites...)

		if len(resp.Sites) < MaxPageSize || (resp.Count > 0 && len(all) >= resp.Count) {
			return all, nil
		}
	}
}

// GetSite retrieves the details of a site.
func (c *Client) GetSite(ctx context.Context, siteID int64) (*SiteDetails, error) {
	if err := checkID("site", siteID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathSite,
		params: []pathParam{{name: "site_id", value: siteID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get site %d", siteID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[SiteDetails](body, "failed to decode site")
}

// BackupSite starts a backup of a site and returns the task tracking it.
func (c *Client) BackupSite(ctx context.Context, siteID int64, opts *BackupOptions) (*TaskStarted, error) {
	if err := checkID("site", siteID); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &BackupOptions{}
	}

	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathSiteBackup,
		params: []pathParam{{name: "site_id", value: siteID}},
		body:   opts,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to back up site %d", siteID)
	}

	started, err := response.Unmarshal[TaskStarted](body, "failed to decode backup response")
	if err != nil {
		//nolint:wrapcheck // response.Unmarshal wraps errors internally
		return nil, err
	}
	if started.TaskID <= 0 {
		return nil, errors.Newf("backup of site %d returned no task ID", siteID)
	}
	return started, nil
}

// ListSiteBackups lists the stored backups of a site.
func (c *Client) ListSiteBackups(ctx context.Context, siteID int64, params *ListParams) (*BackupsResponse, error) {
	if err := checkID("site", siteID); err != nil {
		return nil, err
	}
	if params == nil {
		params = &ListParams{}
	}

	query, err := newQuery().
		add("limit", params.Limit, params.Limit > 0).
		add("page", params.Page, params.Page > 0).
		build()
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathSiteBackups,
		params: []pathParam{{name: "site_id", value: siteID}},
		query:  query,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list backups of site %d", siteID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[BackupsResponse](body, "failed to decode backup list")
}
