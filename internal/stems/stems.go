package stems

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Name identifies one separated audio channel.
type Name string

const (
	Vocals   Name = "vocals"
	NoVocals Name = "no_vocals"
	Drums    Name = "drums"
	Bass     Name = "bass"
	Other    Name = "other"
)

// Info carries presentation metadata for a stem.
type Info struct {
	Name  Name
	Label string
	Color string
}

// Set is the stem configuration table active for a deployment.
type Set string

const (
	SetTwo  Set = "two"
	SetFour Set = "four"
)

var catalog = map[Name]Info{
	Vocals:   {Name: Vocals, Label: "Vocals", Color: "#B48EAD"},
	NoVocals: {Name: NoVocals, Label: "Instrumental", Color: "#88C0D0"},
	Drums:    {Name: Drums, Label: "Drums", Color: "#D08770"},
	Bass:     {Name: Bass, Label: "Bass", Color: "#A3BE8C"},
	Other:    {Name: Other, Label: "Other", Color: "#EBCB8B"},
}

var setMembers = map[Set][]Name{
	SetTwo:  {Vocals, NoVocals},
	SetFour: {Vocals, Drums, Bass, Other},
}

// ParseSet validates a configured stem set name.
func ParseSet(value string) (Set, error) {
	switch Set(strings.ToLower(strings.TrimSpace(value))) {
	case SetTwo, "":
		return SetTwo, nil
	case SetFour:
		return SetFour, nil
	default:
		return "", fmt.Errorf("unknown stem set %q (want %q or %q)", value, SetTwo, SetFour)
	}
}

// Names returns the ordered members of the set.
func (s Set) Names() []Name {
	members := setMembers[s]
	out := make([]Name, len(members))
	copy(out, members)
	return out
}

// Contains reports whether name belongs to the set.
func (s Set) Contains(name Name) bool {
	for _, member := range setMembers[s] {
		if member == name {
			return true
		}
	}
	return false
}

// Parse resolves a raw stem key from the backend against the set. Unknown keys
// return false so callers can drop them at the ingestion boundary.
func (s Set) Parse(raw string) (Name, bool) {
	name := Name(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Contains(name) {
		return "", false
	}
	return name, true
}

// Lookup returns presentation metadata for a stem.
func Lookup(name Name) Info {
	if info, ok := catalog[name]; ok {
		return info
	}
	label := strings.ReplaceAll(string(name), "_", " ")
	return Info{Name: name, Label: cases.Title(language.Und).String(label), Color: "#D8DEE9"}
}

// Entry is one accepted stem path from a completed job.
type Entry struct {
	Name Name
	Path string
}

// Filter validates a backend stem mapping. Accepted entries come back in set
// order; rejected keys are returned sorted for logging.
func (s Set) Filter(raw map[string]string) ([]Entry, []string) {
	accepted := make(map[Name]string, len(raw))
	var rejected []string
	for key, path := range raw {
		name, ok := s.Parse(key)
		if !ok || strings.TrimSpace(path) == "" {
			rejected = append(rejected, key)
			continue
		}
		accepted[name] = strings.TrimSpace(path)
	}
	sort.Strings(rejected)

	entries := make([]Entry, 0, len(accepted))
	for _, name := range setMembers[s] {
		if path, ok := accepted[name]; ok {
			entries = append(entries, Entry{Name: name, Path: path})
		}
	}
	return entries, rejected
}
