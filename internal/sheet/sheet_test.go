package sheet_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/sheet"
)

const wrappedSheet = `{
  "success": true,
  "data": {
    "characterId": "abc",
    "characterData": {
      "name": "Kestrel",
      "skills": [{"name": "Evade", "value": 55}, {"name": "Blasters", "value": "62%"}, {"name": "", "value": 3}],
      "characteristics": {"int": 14, "str": "12", "notes": {"x": 1}}
    }
  }
}`

func TestDecode_Wrapped(t *testing.T) {
	d, err := sheet.Decode([]byte(wrappedSheet))
	require.NoError(t, err)
	assert.Equal(t, "Kestrel", d.Name)
	require.Len(t, d.Skills, 2)
	v, ok := d.SkillValue("blasters")
	assert.True(t, ok)
	assert.Equal(t, 62, v)
	assert.Equal(t, 14, d.Intelligence())
	assert.Equal(t, map[string]int{"int": 14, "str": 12}, d.Characteristics)
}

func TestDecode_Raw(t *testing.T) {
	d, err := sheet.Decode([]byte(`{"name": "Vex", "skills": [{"name": "Athletics", "value": 0.4}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Vex", d.Name)
	v, _ := d.SkillValue("Athletics")
	assert.Equal(t, 40, v)
	assert.Equal(t, 10, d.Intelligence())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := sheet.Decode([]byte(`[1,2`))
	assert.Error(t, err)
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sheet/abc/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, wrappedSheet)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := sheet.NewClient(time.Second, zap.NewNop())
	d := c.Fetch(context.Background(), srv.URL+"/sheet/abc/")
	require.NotNil(t, d)
	assert.Equal(t, "Kestrel", d.Name)

	assert.Nil(t, c.Fetch(context.Background(), srv.URL+"/missing"))
	assert.Nil(t, c.Fetch(context.Background(), ""))
	assert.Nil(t, c.Fetch(context.Background(), "http://127.0.0.1:0"))
}
