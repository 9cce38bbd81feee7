package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cat := Default()
	require.NoError(t, Validate(cat))
	assert.Len(t, cat, 5)
	assert.Equal(t, "Total Asbestos Exclusion Clause", cat[0].CanonicalName)

	def, ok := cat.Lookup("NMA 2738 Claims Control Clause")
	require.True(t, ok)
	assert.Equal(t, "NMA 2738 Hasar Kontrol Klozu", def.LocalizedName)
	assert.Contains(t, def.Keywords, "claims")
}

func TestParse_PreservesOrder(t *testing.T) {
	data := []byte(`
clauses:
  - name: Second Clause
    keywords: [beta]
  - name: First Clause
    localized: Birinci Kloz
    keywords: [alpha, ""]
`)
	cat, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, []string{"Second Clause", "First Clause"}, cat.Names())
	assert.Equal(t, "Birinci Kloz", cat[1].LocalizedName)
	assert.Equal(t, []string{"alpha", ""}, cat[1].Keywords)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "clauses: []"},
		{"missing name", "clauses:\n  - keywords: [x]"},
		{"duplicate", "clauses:\n  - name: A\n  - name: A"},
		{"bad yaml", "clauses: [::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RoundTripsMarshal(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cat)
}

func TestResolve(t *testing.T) {
	cat, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cat)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
