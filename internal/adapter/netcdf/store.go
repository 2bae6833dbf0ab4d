// Package netcdf adapts NetCDF (CDF and HDF5) containers to the decoder's
// VariableStore interface.
package netcdf

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
)

// Store is an opened NetCDF file.
type Store struct {
	path     string
	group    api.Group
	names    []string
	declared map[string]bool
}

// Open opens the file at path. Any failure is reported as a container open
// error.
func Open(path string) (domain.VariableStore, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, domain.ContainerOpenError(path, err)
	}
	names := g.ListVariables()
	declared := make(map[string]bool, len(names))
	for _, n := range names {
		declared[n] = true
	}
	return &Store{path: path, group: g, names: names, declared: declared}, nil
}

// Lookup reads the named variable and flattens it to row-major order.
func (s *Store) Lookup(name string) (domain.Variable, bool, error) {
	if !s.declared[name] {
		return domain.Variable{}, false, nil
	}
	getter, err := s.group.GetVarGetter(name)
	if err != nil {
		return domain.Variable{}, true, fmt.Errorf("netcdf %s: variable %q: %w", s.path, name, err)
	}
	raw, err := getter.Values()
	if err != nil {
		return domain.Variable{}, true, fmt.Errorf("netcdf %s: read %q: %w", s.path, name, err)
	}
	values, shape, err := flatten(raw)
	if err != nil {
		return domain.Variable{}, true, fmt.Errorf("netcdf %s: %q: %w", s.path, name, err)
	}
	return domain.Variable{
		Name:       name,
		DType:      getter.Type(),
		Shape:      shape,
		Values:     values,
		Attributes: convertAttributes(getter.Attributes()),
	}, true, nil
}

// VariableAttributes returns a variable's attributes from the header.
func (s *Store) VariableAttributes(name string) (domain.Attributes, bool) {
	if !s.declared[name] {
		return domain.Attributes{}, false
	}
	getter, err := s.group.GetVarGetter(name)
	if err != nil {
		return domain.Attributes{}, false
	}
	return convertAttributes(getter.Attributes()), true
}

// Variables lists variable names in file order.
func (s *Store) Variables() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// GlobalAttributes returns the file-level attributes.
func (s *Store) GlobalAttributes() domain.Attributes {
	return convertAttributes(s.group.Attributes())
}

// Close releases the file. Calling it more than once is a no-op.
func (s *Store) Close() error {
	if s.group == nil {
		return nil
	}
	s.group.Close()
	s.group = nil
	return nil
}

func convertAttributes(m api.AttributeMap) domain.Attributes {
	var attrs domain.Attributes
	if m == nil {
		return attrs
	}
	for _, key := range m.Keys() {
		if v, ok := m.Get(key); ok {
			attrs.Set(key, v)
		}
	}
	return attrs
}
