package member

import (
	"fmt"
	"os"
	"sort"

	"github.com/titanous/json5"
)

// Entry is the configured identity data for one handle.
type Entry struct {
	SecondaryHandle string
	Aliases         []string
}

// Mapping associates handles with their secondary handle and aliases.
type Mapping map[string]Entry

// LoadMapping reads a JSON5 mapping file. Two value shapes are accepted per
// handle: a plain string, taken as the secondary handle, or an object with
// optional "discordId" and "aliases" keys.
//
//	{
//	  "jsmith99": "Jo#0420",
//	  "old_timer": { discordId: "1234", aliases: ["Timer", "O.T."] },
//	}
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias mapping: %w", err)
	}
	return parseMapping(data)
}

func parseMapping(data []byte) (Mapping, error) {
	var raw map[string]any
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing alias mapping: %w", err)
	}

	m := make(Mapping, len(raw))
	for handle, v := range raw {
		switch val := v.(type) {
		case string:
			m[handle] = Entry{SecondaryHandle: val}
		case map[string]any:
			var e Entry
			if id, ok := val["discordId"].(string); ok {
				e.SecondaryHandle = id
			}
			if aliases, ok := val["aliases"].([]any); ok {
				for _, a := range aliases {
					s, ok := a.(string)
					if !ok {
						return nil, fmt.Errorf("alias mapping %q: aliases must be strings", handle)
					}
					e.Aliases = append(e.Aliases, s)
				}
			}
			m[handle] = e
		default:
			return nil, fmt.Errorf("alias mapping %q: unsupported value %T", handle, v)
		}
	}
	return m, nil
}

// handles returns the mapping's handles in a stable order.
func (m Mapping) handles() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
