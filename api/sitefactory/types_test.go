package sitefactory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIntUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{in: `123`, want: 123},
		{in: `"123"`, want: 123},
		{in: `null`, want: 0},
		{in: `""`, want: 0},
		{in: `16.0`, want: 16},
		{in: `"-4"`, want: -4},
		{in: `"abc"`, wantErr: true},
		{in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			var got FlexInt
			err := json.Unmarshal([]byte(tt.in), &got)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
