package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Payload
		wantErr error
	}{
		{
			name: "bare id",
			raw:  "abc123",
			want: Payload{ID: "abc123", Name: "Student abc123", Kind: Bare},
		},
		{
			name: "bare id with scanner newline",
			raw:  "  abc123\r\n",
			want: Payload{ID: "abc123", Name: "Student abc123", Kind: Bare},
		},
		{
			name: "numeric text stays bare",
			raw:  "1024",
			want: Payload{ID: "1024", Name: "Student 1024", Kind: Bare},
		},
		{
			name: "structured",
			raw:  `{"id":"S1","name":"Ada Lovelace"}`,
			want: Payload{ID: "S1", Name: "Ada Lovelace", Kind: Structured},
		},
		{
			name: "structured numeric id",
			raw:  `{"id": 42, "name": "Alan"}`,
			want: Payload{ID: "42", Name: "Alan", Kind: Structured},
		},
		{
			name: "structured without name",
			raw:  `{"id":"S2"}`,
			want: Payload{ID: "S2", Kind: Structured},
		},
		{
			name: "brace text that is not JSON is bare",
			raw:  "{oops",
			want: Payload{ID: "{oops", Name: "Student {oops", Kind: Bare},
		},
		{
			name: "JSON without id falls back to bare",
			raw:  `{"name":"Nobody"}`,
			want: Payload{ID: `{"name":"Nobody"}`, Name: `Student {"name":"Nobody"}`, Kind: Bare},
		},
		{
			name: "JSON with blank id falls back to bare",
			raw:  `{"id":"  "}`,
			want: Payload{ID: `{"id":"  "}`, Name: `Student {"id":"  "}`, Kind: Bare},
		},
		{
			name: "JSON with null id falls back to bare",
			raw:  `{"id":null}`,
			want: Payload{ID: `{"id":null}`, Name: `Student {"id":null}`, Kind: Bare},
		},
		{
			name: "JSON with bool id falls back to bare",
			raw:  `{"id":true}`,
			want: Payload{ID: `{"id":true}`, Name: `Student {"id":true}`, Kind: Bare},
		},
		{name: "empty", raw: "   ", wantErr: ErrInvalidPayload},
		{name: "nothing", raw: "", wantErr: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayload_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada", Payload{ID: "S1", Name: "Ada"}.DisplayName())
	assert.Equal(t, "Student S2", Payload{ID: "S2"}.DisplayName())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "structured", Structured.String())
	assert.Equal(t, "bare", Bare.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
