package sitefactory

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/internal/response"
)

// ListVCSRefs lists the refs that can be deployed and the one currently deployed.
func (c *Client) ListVCSRefs(ctx context.Context, params *VCSParams) (*VCSRefs, error) {
	if params == nil {
		params = &VCSParams{}
	}

	query, err := newQuery().
		add("type", params.Type, params.Type != "").
		add("stack_id", params.StackID, params.StackID > 0).
		build()
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{method: http.MethodGet, path: pathVCS, query: query})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list VCS refs")
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[VCSRefs](body, "failed to decode VCS refs")
}

// UpdateCode starts deploying ref to the factory's sites and returns the task tracking it.
func (c *Client) UpdateCode(ctx context.Context, ref string, opts *UpdateOptions) (*TaskStarted, error) {
	if ref == "" {
		return nil, errors.New("failed to update code: ref is required")
	}
	if opts == nil {
		opts = &UpdateOptions{}
	}

	payload := struct {
		SitesRef string `json:"sites_ref"`
		*UpdateOptions
	}{
		SitesRef:      ref,
		UpdateOptions: opts,
	}

	body, err := c.do(ctx, request{method: http.MethodPost, path: pathUpdate, body: payload})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update code to %s", ref)
	}

	started, err := response.Unmarshal[TaskStarted](body, "failed to decode update response")
	if err != nil {
		//nolint:wrapcheck // response.Unmarshal wraps errors internally
		return nil, err
	}
	if started.TaskID <= 0 {
		return nil, errors.Newf("update to %s returned no task ID", ref)
	}
	return started, nil
}
