package sitefactory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-acsf/api/sitefactory/testdata"
	"github.com/lexfrei/go-acsf/internal/testutil"
)

func TestListSites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		params         *ListParams
		wantQuery      string
		mockResponse   string
		mockStatusCode int
		wantErr        bool
	}{
		{
			name:           "defaults",
			params:         nil,
			wantQuery:      "",
			mockResponse:   testdata.LoadFixture(t, "sites/list.json"),
			mockStatusCode: http.StatusOK,
		},
		{
			name:           "paged",
			params:         &ListParams{Limit: 10, Page: 2},
			wantQuery:      "limit=10&page=2",
			mockResponse:   testdata.LoadFixture(t, "sites/list.json"),
			mockStatusCode: http.StatusOK,
		},
		{
			name:           "unauthorized",
			mockResponse:   testdata.LoadFixture(t, "errors/unauthorized.json"),
			mockStatusCode: http.StatusUnauthorized,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
				"GET /api/v1/sites": func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
					testutil.JSON(t, w, tt.mockStatusCode, tt.mockResponse)
				},
			})
			client := newTestClient(t, server)

			resp, err := client.ListSites(context.Background(), tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 3, resp.Count)
			require.Len(t, resp.Sites, 3)
			assert.Equal(t, int64(1021), resp.Sites[0].ID)
			assert.Equal(t, FlexInt(1), resp.Sites[1].StackID)
			assert.Equal(t, []int64{91, 92}, resp.Sites[2].Groups)
		})
	}
}

func TestListAllSites(t *testing.T) {
	t.Parallel()

	const total = MaxPageSize + 5

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"GET /api/v1/sites": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, strconv.Itoa(MaxPageSize), r.URL.Query().Get("limit"))

			page, err := strconv.Atoi(r.URL.Query().Get("page"))
			assert.NoError(t, err)

			first := (page-1)*MaxPageSize + 1
			last := min(page*MaxPageSize, total)

			var sites []string
			for id := first; id <= last; id++ {
				sites = append(sites, fmt.Sprintf(`{"id":%d,"site":"site%d"}`, id, id))
			}

			testutil.JSON(t, w, http.StatusOK,
				fmt.Sprintf(`{"count":%d,"sites":[%s]}`, total, strings.Join(sites, ",")))
		},
	})
	client := newTestClient(t, server)

	sites, err := client.ListAllSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, total)
	assert.Equal(t, int64(1), sites[0].ID)
	assert.Equal(t, int64(total), sites[total-1].ID)
}

func TestListAllSitesIgnoredPage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"GET /api/v1/sites": func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)

			sites := make([]string, 0, MaxPageSize)
			for id := 1; id <= MaxPageSize; id++ {
				sites = append(sites, fmt.Sprintf(`{"id":%d,"site":"site%d"}`, id, id))
			}

			testutil.JSON(t, w, http.StatusOK, `{"sites":[`+strings.Join(sites, ",")+`]}`)
		},
	})
	client := newTestClient(t, server)

	sites, err := client.ListAllSites(context.Background())
	require.NoError(t, err)
	assert.Len(t, sites, MaxPageSize)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetSite(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServer(t, "/api/v1/sites/1021", true,
		`{"id":1021,"created":"1699000000","site":"alpha","stack":1,"domains":["alpha.example.com"],"collection_id":null}`,
		http.StatusOK)
	client := newTestClient(t, server)

	site, err := client.GetSite(context.Background(), testSiteID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", site.Site)
	assert.Equal(t, FlexInt(1699000000), site.Created)
	assert.Equal(t, FlexInt(0), site.CollectionID)
	assert.Equal(t, []string{"alpha.example.com"}, site.Domains)
}

func TestBackupSite(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"POST /api/v1/sites/1021/backup": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			raw, err := io.ReadAll(r.Body)
			assert.NoError(t, err)

			var payload map[string]any
			assert.NoError(t, json.Unmarshal(raw, &payload))
			assert.Equal(t, "pre-deploy", payload["label"])
			assert.Equal(t, []any{ComponentDatabase, ComponentPublic}, payload["components"])
			assert.NotContains(t, payload, "callback_url")

			testutil.JSON(t, w, http.StatusOK, testdata.LoadFixture(t, "sites/backup_started.json"))
		},
	})
	client := newTestClient(t, server)

	started, err := client.BackupSite(context.Background(), testSiteID, &BackupOptions{
		Label:      "pre-deploy",
		Components: []string{ComponentDatabase, ComponentPublic},
	})
	require.NoError(t, err)
	assert.Equal(t, FlexInt(testTaskID), started.TaskID)
}

func TestBackupSiteWithoutTaskID(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServer(t, "/api/v1/sites/1021/backup", true, `{"message":"queued"}`, http.StatusOK)
	client := newTestClient(t, server)

	started, err := client.BackupSite(context.Background(), testSiteID, nil)
	require.Error(t, err)
	assert.Nil(t, started)
	assert.Contains(t, err.Error(), "no task ID")
}

func TestListSiteBackups(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"GET /api/v1/sites/1021/backups": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			testutil.JSON(t, w, http.StatusOK,
				`{"backups":[{"id":77,"nid":"1021","status":"1","label":"pre-deploy","componentList":["database"],"timestamp":1700000000}]}`)
		},
	})
	client := newTestClient(t, server)

	resp, err := client.ListSiteBackups(context.Background(), testSiteID, &ListParams{Limit: 5})
	require.NoError(t, err)
	require.Len(t, resp.Backups, 1)
	assert.Equal(t, int64(77), resp.Backups[0].ID)
	assert.Equal(t, FlexInt(1021), resp.Backups[0].NID)
	assert.Equal(t, []string{"database"}, resp.Backups[0].ComponentList)
}
