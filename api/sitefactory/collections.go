package sitefactory

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/internal/response"
)

// GetCollection retrieves a site collection.
func (c *Client) GetCollection(ctx context.Context, collectionID int64) (*Collection, error) {
	if err := checkID("collection", collectionID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathCollection,
		params: []pathParam{{name: "collection_id", value: collectionID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get collection %d", collectionID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[Collection](body, "failed to decode collection")
}

// DeleteCollection deletes a site collection. Its sites are kept.
func (c *Client) DeleteCollection(ctx context.Context, collectionID int64) (*CollectionDeleted, error) {
	if err := checkID("collection", collectionID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   pathCollection,
		params: []pathParam{{name: "collection_id", value: collectionID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete collection %d", collectionID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[CollectionDeleted](body, "failed to decode collection deletion")
}

// AddSitesToCollection adds sites to a collection.
func (c *Client) AddSitesToCollection(ctx context.Context, collectionID int64, siteIDs []int64) (*CollectionChange, error) {
	return c.changeCollection(ctx, pathCollectionAdd, collectionID, map[string]any{"site_ids": siteIDs}, "add sites to")
}

// RemoveSitesFromCollection removes sites from a collection.
func (c *Client) RemoveSitesFromCollection(ctx context.Context, collectionID int64, siteIDs []int64) (*CollectionChange, error) {
	return c.changeCollection(ctx, pathCollectionDel, collectionID, map[string]any{"site_ids": siteIDs}, "remove sites from")
}

// SetCollectionPrimarySite makes siteID the primary site of a collection.
func (c *Client) SetCollectionPrimarySite(ctx context.Context, collectionID, siteID int64) (*CollectionChange, error) {
	if err := checkID("site", siteID); err != nil {
		return nil, err
	}
	return c.changeCollection(ctx, pathCollectionPrime, collectionID, map[string]any{"site_id": siteID}, "set primary site of")
}

func (c *Client) changeCollection(ctx context.Context, path string, collectionID int64, payload map[string]any, action string) (*CollectionChange, error) {
	if err := checkID("collection", collectionID); err != nil {
		return nil, err
	}
	if ids, ok := payload["site_ids"].([]int64); ok {
		if len(ids) == 0 {
			return nil, errors.Newf("failed to %s collection %d: no site IDs given", action, collectionID)
		}
		for _, id := range ids {
			if err := checkID("site", id); err != nil {
				return nil, err
			}
		}
	}

	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   path,
		params: []pathParam{{name: "collection_id", value: collectionID}},
		body:   payload,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to %s collection %d", action, collectionID)
	}

	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[CollectionChange](body, "failed to decode collection change")
}
