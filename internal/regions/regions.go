// Package regions holds the static region lookup table.
package regions

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orunio/climate/backend/internal/contracts"
)

//go:embed regions.yaml
var defaultTable []byte

// ErrUnknownRegion is returned by Lookup for names not in the table
var ErrUnknownRegion = errors.New("unknown region")

type file struct {
	Regions []contracts.RegionProfile `yaml:"regions"`
}

// Table is an immutable region lookup keyed by lowercase name
// ⭐ SSOT: 지역 좌표/국가코드는 이 테이블에서만 조회
type Table struct {
	byKey map[string]contracts.RegionProfile
	order []string
}

// Default returns the embedded table
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded regions table: %v", err))
	}
	return t
}

// Load returns the table from path, or the embedded one when path is empty
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("regions file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML table. Unknown fields fail.
func Parse(data []byte) (*Table, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 오타 필드 즉시 실패
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}

	if len(f.Regions) == 0 {
		return nil, errors.New("no regions defined")
	}

	t := &Table{byKey: make(map[string]contracts.RegionProfile, len(f.Regions))}
	for _, r := range f.Regions {
		r.Key = strings.ToLower(strings.TrimSpace(r.Key))
		if r.Kind == "" {
			r.Kind = contracts.RegionCountry
		}
		if r.Kind != contracts.RegionCountry && r.Kind != contracts.RegionPilot {
			return nil, fmt.Errorf("region %s: unknown kind %q", r.Key, r.Kind)
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byKey[r.Key]; dup {
			return nil, fmt.Errorf("duplicate region %s", r.Key)
		}
		t.byKey[r.Key] = r
		t.order = append(t.order, r.Key)
	}
	return t, nil
}

// Lookup finds a region by case-insensitive name
func (t *Table) Lookup(name string) (contracts.RegionProfile, error) {
	r, ok := t.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return contracts.RegionProfile{}, fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
	return r, nil
}

// List returns every region in table order
func (t *Table) List() []contracts.RegionProfile {
	out := make([]contracts.RegionProfile, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.byKey[k])
	}
	return out
}

// Pilots returns the pilot sites in table order
func (t *Table) Pilots() []contracts.RegionProfile {
	return t.filter(contracts.RegionPilot)
}

// Countries returns the country entries in table order
func (t *Table) Countries() []contracts.RegionProfile {
	return t.filter(contracts.RegionCountry)
}

// Keys returns the sorted lookup keys
func (t *Table) Keys() []string {
	keys := make([]string, len(t.order))
	copy(keys, t.order)
	sort.Strings(keys)
	return keys
}

func (t *Table) filter(kind contracts.RegionKind) []contracts.RegionProfile {
	var out []contracts.RegionProfile
	for _, k := range t.order {
		if r := t.byKey[k]; r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
