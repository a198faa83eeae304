package sitefactory

import (
	"context"
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-acsf/api/sitefactory/testdata"
	"github.com/lexfrei/go-acsf/internal/testutil"
)

func TestOpenAPIDocumentLoads(t *testing.T) {
	t.Parallel()

	validator, err := loadSchemaValidator()
	require.NoError(t, err)
	require.NotNil(t, validator)

	for _, path := range []string{pathPing, pathTaskStatus, pathSites, pathSiteBackup, pathVCS, pathUpdate, pathCollectionPrime} {
		assert.NotNil(t, validator.doc.Paths.Find(path), path)
	}

	doc := OpenAPIDocument()
	doc[0] = 'x'
	assert.NotEqual(t, doc[0], OpenAPIDocument()[0], "OpenAPIDocument must return a copy")
}

func TestSchemaValidate(t *testing.T) {
	t.Parallel()

	validator, err := loadSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		body    string
		wantErr bool
	}{
		{
			name:   "task status with string numbers",
			method: http.MethodGet,
			path:   pathTaskStatus,
			status: http.StatusOK,
			body:   testdata.LoadFixture(t, "tasks/status_processing.json"),
		},
		{
			name:   "task status without any known field",
			method: http.MethodGet,
			path:   pathTaskStatus,
			status: http.StatusOK,
			body:   `{"wip_task":{}}`,
		},
		{
			name:    "task status with wrong type",
			method:  http.MethodGet,
			path:    pathTaskStatus,
			status:  http.StatusOK,
			body:    `{"wip_task":{"status_string":42}}`,
			wantErr: true,
		},
		{
			name:    "site list with string id",
			method:  http.MethodGet,
			path:    pathSites,
			status:  http.StatusOK,
			body:    `{"count":1,"sites":[{"id":"abc"}]}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			method:  http.MethodGet,
			path:    pathVCS,
			status:  http.StatusOK,
			body:    `<html></html>`,
			wantErr: true,
		},
		{
			name:   "undocumented status",
			method: http.MethodGet,
			path:   pathVCS,
			status: http.StatusAccepted,
			body:   `not checked`,
		},
		{
			name:   "undocumented path",
			method: http.MethodGet,
			path:   "/api/v1/groups",
			status: http.StatusOK,
			body:   `not checked`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validator.validate(tt.method, tt.path, tt.status, []byte(tt.body))

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaViolation))
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestValidateResponsesRejectsBadBody(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServer(t, "/api/v1/vcs", false, `{"available":"master"}`, http.StatusOK)

	client, err := NewWithConfig(&ClientConfig{
		BaseURL:           server.URL,
		Username:          testutil.Username,
		APIKey:            testutil.APIKey,
		MaxRetries:        -1,
		ValidateResponses: true,
	})
	require.NoError(t, err)

	_, err = client.ListVCSRefs(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaViolation))
}
