// Package catalog provides the clause registry the matcher scans for.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/clausescan/internal/model"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in catalog of insurance policy clauses with
// their Turkish names and bilingual keywords
func Default() model.Catalog {
	return model.Catalog{
		{
			CanonicalName: "Total Asbestos Exclusion Clause",
			LocalizedName: "Total Asbest İstisnası Klozu",
			Keywords:      []string{"asbestos", "asbest", "asbesto"},
		},
		{
			CanonicalName: "CL380 Institute Cyber Attack Exclusion",
			LocalizedName: "CL380 Siber Saldırı İstisnası Enstitü Klozu",
			Keywords: []string{
				"cyber", "siber", "CL380", "hacker", "bilgisayar virüsü",
				"computer virus", "cyber attack", "siber saldırı",
			},
		},
		{
			CanonicalName: "LMA5394 Communicable Disease Exclusion",
			LocalizedName: "LMA5394 Bulaşıcı Hastalık İstisnası Klozu",
			Keywords: []string{
				"communicable disease", "bulaşıcı hastalık", "LMA5394",
				"salgın", "epidemic", "pandemic", "pandemi",
			},
		},
		{
			CanonicalName: "NMA 2738 Claims Control Clause",
			LocalizedName: "NMA 2738 Hasar Kontrol Klozu",
			Keywords:      []string{"claims control", "hasar kontrol", "NMA 2738", "claims"},
		},
		{
			CanonicalName: "LMA3100 Sanction Limitation and Exclusion Clause",
			LocalizedName: "LMA3100 Yaptırım Sınırlama ve İstisna Klozu",
			Keywords: []string{
				"sanction", "yaptırım", "LMA3100", "ambargo", "embargo",
				"limitation", "sınırlama",
			},
		},
	}
}

// file is the on-disk catalog layout
type file struct {
	Clauses []model.ClauseDefinition `yaml:"clauses"`
}

// Load reads a YAML catalog from path
func Load(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (model.Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := model.Catalog(f.Clauses)
	if err := Validate(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// Marshal encodes a catalog in the format Parse accepts
func Marshal(cat model.Catalog) ([]byte, error) {
	return yaml.Marshal(file{Clauses: cat})
}

// Validate checks that canonical names are present and unique.
// Empty keywords and localized names are allowed; the matcher skips them.
func Validate(cat model.Catalog) error {
	if len(cat) == 0 {
		return fmt.Errorf("catalog has no clauses")
	}

	seen := make(map[string]bool, len(cat))
	for i, def := range cat {
		name := strings.TrimSpace(def.CanonicalName)
		if name == "" {
			return fmt.Errorf("clause %d: canonical name is empty", i+1)
		}
		if seen[name] {
			return fmt.Errorf("clause %d: duplicate canonical name %q", i+1, name)
		}
		seen[name] = true
	}
	return nil
}

// Resolve returns the catalog at path, or the built-in one when path is empty
func Resolve(path string) (model.Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
