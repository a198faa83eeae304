package sitefactory

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// FlexInt is an integer that Site Factory sometimes encodes as a JSON string.
// null and "" decode to 0.
type FlexInt int64

// UnmarshalJSON accepts 123, "123", null and "".
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "invalid integer string")
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid integer %q", s)
		}
		*f = FlexInt(n)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "invalid integer")
	}
	i, err := n.Int64()
	if err != nil {
		// Some fields arrive as 1.0
		fl, ferr := n.Float64()
		if ferr != nil {
			return errors.Wrapf(err, "invalid integer %s", n)
		}
		i = int64(fl)
	}
	*f = FlexInt(i)
	return nil
}

// PingResponse is returned by Ping.
type PingResponse struct {
	Message    string `json:"message"`
	ServerTime string `json:"server_time"`
}

// MessageResponse is the generic acknowledgement returned by mutating endpoints.
type MessageResponse struct {
	Message string `json:"message"`
	Time    string `json:"time"`
}

// TaskStarted is returned by endpoints that start a long-running task.
type TaskStarted struct {
	TaskID  FlexInt `json:"task_id"`
	Message string  `json:"message,omitempty"`
}

// Site is one entry of the site list.
type Site struct {
	ID        int64   `json:"id"`
	Site      string  `json:"site"`
	DBName    string  `json:"db_name"`
	Groups    []int64 `json:"groups"`
	IsPrimary bool    `json:"is_primary"`
	StackID   FlexInt `json:"stack_id"`
}

// SitesResponse is one page of sites.
type SitesResponse struct {
	Count int    `json:"count"`
	Sites []Site `json:"sites"`
	Time  string `json:"time"`
}

// SiteDetails is the full record of a single site.
type SiteDetails struct {
	ID                int64    `json:"id"`
	Created           FlexInt  `json:"created"`
	Owner             string   `json:"owner"`
	Site              string   `json:"site"`
	Stack             FlexInt  `json:"stack"`
	Domains           []string `json:"domains"`
	Groups            []int64  `json:"groups"`
	PartOfCollection  bool     `json:"part_of_collection"`
	IsPrimary         bool     `json:"is_primary"`
	CollectionID      FlexInt  `json:"collection_id"`
	CollectionDomains []string `json:"collection_domains"`
	Time              string   `json:"time"`
}

// ListParams are the paging parameters shared by list endpoints.
// Zero values are omitted from the request.
type ListParams struct {
	Limit int
	Page  int
}

// BackupOptions configures a site backup.
type BackupOptions struct {
	Label          string   `json:"label,omitempty"`
	CallbackURL    string   `json:"callback_url,omitempty"`
	CallbackMethod string   `json:"callback_method,omitempty"`
	CallerData     string   `json:"caller_data,omitempty"`
	Components     []string `json:"components,omitempty"`
}

// Backup components accepted in BackupOptions.Components.
const (
	ComponentCodebase = "codebase"
	ComponentDatabase = "database"
	ComponentPublic   = "public files"
	ComponentPrivate  = "private files"
	ComponentThemes   = "themes"
)

// Backup is a stored site backup.
type Backup struct {
	ID            int64    `json:"id"`
	NID           FlexInt  `json:"nid"`
	Status        FlexInt  `json:"status"`
	Site          string   `json:"site"`
	Timestamp     FlexInt  `json:"timestamp"`
	Bucket        string   `json:"bucket"`
	Directory     string   `json:"directory"`
	File          string   `json:"file"`
	Label         string   `json:"label"`
	ComponentList []string `json:"componentList"`
	CompleteTime  FlexInt  `json:"complete_time"`
}

// BackupsResponse lists the backups of a site.
type BackupsResponse struct {
	Backups []Backup `json:"backups"`
	Time    string   `json:"time"`
}

// Collection is a site collection.
type Collection struct {
	ID              int64    `json:"id"`
	Time            string   `json:"time"`
	Created         FlexInt  `json:"created"`
	Owner           string   `json:"owner"`
	Name            string   `json:"name"`
	InternalDomain  string   `json:"internal_domain"`
	ExternalDomains []string `json:"external_domains"`
	Groups          []int64  `json:"groups"`
	Sites           []int64  `json:"sites"`
	PrimarySite     FlexInt  `json:"primary_site"`
}

// CollectionDeleted is returned by DeleteCollection.
type CollectionDeleted struct {
	ID      int64  `json:"id"`
	Time    string `json:"time"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// CollectionChange is returned by the collection membership endpoints.
type CollectionChange struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Time           string  `json:"time"`
	Message        string  `json:"message"`
	Added          bool    `json:"added,omitempty"`
	Removed        bool    `json:"removed,omitempty"`
	Switched       bool    `json:"switched,omitempty"`
	SiteIDsAdded   []int64 `json:"site_ids_added,omitempty"`
	SiteIDsRemoved []int64 `json:"site_ids_removed,omitempty"`
	SiteIDsFailed  []int64 `json:"site_ids_failed,omitempty"`
	PrimarySiteID  FlexInt `json:"primary_site_id,omitempty"`
}

// VCSParams selects which repository refs to list.
type VCSParams struct {
	// Type is "sites" (default on the server) or "factory".
	Type    string
	StackID int
}

// VCSRefs lists deployable refs and the one currently deployed.
type VCSRefs struct {
	Available []string `json:"available"`
	Current   string   `json:"current"`
}

// UpdateOptions configures a code update.
type UpdateOptions struct {
	// SitesType is "code", "code, db" or "code, db, registry". Defaults to "code" on the server.
	SitesType string `json:"sites_type,omitempty"`
	StackID   int    `json:"stack_id,omitempty"`
	// ScopeSiteIDs limits the update to specific sites.
	ScopeSiteIDs []int64 `json:"scope_site_ids,omitempty"`
}
