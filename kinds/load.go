package kinds

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed kinds.yaml
var tableData []byte

type tableEntry struct {
	Value    int    `yaml:"value"`
	Name     string `yaml:"name"`
	Spelling string `yaml:"spelling"`
}

type table struct {
	Ranges    map[string][][2]int `yaml:"ranges"`
	Unexposed []string            `yaml:"unexposed"`
	Values    []tableEntry        `yaml:"values"`
}

type tableFile struct {
	CursorKinds          table `yaml:"cursor_kinds"`
	TypeKinds            table `yaml:"type_kinds"`
	TokenKinds           table `yaml:"token_kinds"`
	ResourceUsageKinds   table `yaml:"resource_usage_kinds"`
	AccessSpecifiers     table `yaml:"access_specifiers"`
	CompletionChunkKinds table `yaml:"completion_chunk_kinds"`
	AvailabilityKinds    table `yaml:"availability_kinds"`
}

// Tables are the sealed process-wide registries.
type Tables struct {
	CursorKinds          *Registry
	TypeKinds            *Registry
	TokenKinds           *Registry
	ResourceUsageKinds   *Registry
	AccessSpecifiers     *Registry
	CompletionChunkKinds *Registry
	AvailabilityKinds    *Registry
}

var (
	tables     *Tables
	tablesOnce sync.Once
)

// Load returns the process-wide tables, building them on first call.
// A malformed embedded table is a build defect and panics.
func Load() *Tables {
	tablesOnce.Do(func() {
		t, err := Parse(tableData)
		if err != nil {
			panic(fmt.Sprintf("kinds: embedded table: %v", err))
		}
		tables = t
	})
	return tables
}

// Parse builds and seals a fresh set of registries from YAML table data.
func Parse(data []byte) (*Tables, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("kinds: decode: %w", err)
	}

	t := &Tables{}
	var err error
	if t.CursorKinds, err = build("CursorKind", f.CursorKinds); err != nil {
		return nil, err
	}
	if t.TypeKinds, err = build("TypeKind", f.TypeKinds); err != nil {
		return nil, err
	}
	if t.TokenKinds, err = build("TokenKind", f.TokenKinds); err != nil {
		return nil, err
	}
	if t.ResourceUsageKinds, err = build("ResourceUsageKind", f.ResourceUsageKinds); err != nil {
		return nil, err
	}
	if t.AccessSpecifiers, err = build("CXXAccessSpecifier", f.AccessSpecifiers); err != nil {
		return nil, err
	}
	if t.CompletionChunkKinds, err = build("CompletionChunkKind", f.CompletionChunkKinds); err != nil {
		return nil, err
	}
	if t.AvailabilityKinds, err = build("AvailabilityKind", f.AvailabilityKinds); err != nil {
		return nil, err
	}
	return t, nil
}

func build(name string, tbl table) (*Registry, error) {
	if len(tbl.Values) == 0 {
		return nil, fmt.Errorf("kinds: %s: empty table", name)
	}
	unexposed := make(map[string]bool, len(tbl.Unexposed))
	for _, n := range tbl.Unexposed {
		unexposed[n] = true
	}

	r := NewRegistry(name)
	for _, e := range tbl.Values {
		cls, err := classify(tbl.Ranges, e.Value)
		if err != nil {
			return nil, fmt.Errorf("kinds: %s %s: %w", name, e.Name, err)
		}
		d := &Descriptor{
			Value:     e.Value,
			Name:      e.Name,
			Spelling:  e.Spelling,
			Class:     cls,
			Unexposed: unexposed[e.Name],
		}
		if _, err := r.register(d); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}

func classify(ranges map[string][][2]int, value int) (Class, error) {
	for label, spans := range ranges {
		cls, ok := classNames[label]
		if !ok {
			return ClassNone, fmt.Errorf("unknown class %q", label)
		}
		for _, s := range spans {
			if value >= s[0] && value <= s[1] {
				return cls, nil
			}
		}
	}
	return ClassNone, nil
}
