package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	mu      sync.RWMutex
	tables  = map[string]*TableMeta{}
	version string
)

// Install registers meta under meta.Name, replacing any previous
// registration for the same name wholesale (§4.1: each Install call is a
// full replacement, not a merge — there is no partial-update form).
func Install(meta *TableMeta) error {
	if meta == nil {
		return fmt.Errorf("schema: cannot install nil table meta")
	}
	if meta.Name == "" {
		return fmt.Errorf("schema: table meta has empty name")
	}
	mu.Lock()
	defer mu.Unlock()
	tables[meta.Name] = meta
	return nil
}

// Find looks up the installed TableMeta for name.
func Find(name string) (*TableMeta, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := tables[name]
	return m, ok
}

// Names returns the sorted names of every currently-installed table.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Reset clears the registry. Intended for test isolation between
// independently-schema'd test cases; production code never calls it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	tables = map[string]*TableMeta{}
	version = ""
}

// InstallVersion records the schema version string a codegen artifact
// stamps its output with (§6 schema-version negotiation). Like Install,
// later calls replace the prior value wholesale.
func InstallVersion(v string) {
	mu.Lock()
	defer mu.Unlock()
	version = v
}

// Version returns the currently-installed schema version string, or ""
// if none has been installed.
func Version() string {
	mu.RLock()
	defer mu.RUnlock()
	return version
}
