package model

// ClauseDefinition describes one clause the scanner looks for
type ClauseDefinition struct {
	CanonicalName string   `json:"name" yaml:"name"`                               // Unique key (e.g., "NMA 2738 Claims Control Clause")
	LocalizedName string   `json:"localized,omitempty" yaml:"localized,omitempty"` // Localized-language name, may be empty
	Keywords      []string `json:"keywords" yaml:"keywords"`                       // Related terms, matched as whole words
}

// NameVariants returns the non-empty names to search for, canonical first
func (c ClauseDefinition) NameVariants() []string {
	variants := make([]string, 0, 2)
	if c.CanonicalName != "" {
		variants = append(variants, c.CanonicalName)
	}
	if c.LocalizedName != "" {
		variants = append(variants, c.LocalizedName)
	}
	return variants
}

// Catalog is the ordered, read-only set of clauses for a run.
// Iteration order drives finding order and report grouping.
type Catalog []ClauseDefinition

// Lookup returns the clause with the given canonical name
func (c Catalog) Lookup(name string) (ClauseDefinition, bool) {
	for _, def := range c {
		if def.CanonicalName == name {
			return def, true
		}
	}
	return ClauseDefinition{}, false
}

// Names returns canonical names in catalog order
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, def := range c {
		names[i] = def.CanonicalName
	}
	return names
}
