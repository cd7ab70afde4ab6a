package logging

import "strings"

// Category is one of the verbose debug-log categories a caller can enable
// at runtime via the `debug-log` IPC command (§6.2, §9).
type Category uint8

const (
	CategoryVT Category = 1 << iota
	CategoryPTY
	CategoryIPC
	CategoryWire
)

var categoryNames = map[string]Category{
	"vt":    CategoryVT,
	"pty":   CategoryPTY,
	"ipc":   CategoryIPC,
	"wire":  CategoryWire,
	"none":  0,
	"all":   CategoryVT | CategoryPTY | CategoryIPC | CategoryWire,
}

// DebugSpec is the process-wide verbose-logging bitmask (§9's "debug
// -category bitmask"). The zero value enables nothing.
type DebugSpec struct {
	mask Category
}

// ParseDebugSpec parses a comma-separated category list (e.g.
// "vt,pty") into a DebugSpec. Unknown category names are ignored so a
// typo in a `debug-log` command degrades to "no change" rather than an
// error.
func ParseDebugSpec(spec string) DebugSpec {
	var mask Category
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if c, ok := categoryNames[name]; ok {
			mask |= c
		}
	}
	return DebugSpec{mask: mask}
}

// Enabled reports whether the given category is set.
func (d DebugSpec) Enabled(c Category) bool {
	return d.mask&c != 0
}

// String renders the spec back as a comma-separated category list, in a
// fixed category order, for the `debug-log` status response.
func (d DebugSpec) String() string {
	if d.mask == 0 {
		return "none"
	}
	var parts []string
	for _, pair := range []struct {
		name string
		cat  Category
	}{
		{"vt", CategoryVT},
		{"pty", CategoryPTY},
		{"ipc", CategoryIPC},
		{"wire", CategoryWire},
	} {
		if d.Enabled(pair.cat) {
			parts = append(parts, pair.name)
		}
	}
	return strings.Join(parts, ",")
}
