// Package schema normalizes the backend's schema and object listings into
// a gap-free tree plus a flat autocomplete index.
package schema

import (
	"sort"

	"github.com/willibrandon/pgnav/internal/models"
)

// DefaultSchema is expanded by default when present.
const DefaultSchema = "public"

// Object is a display-ready tree leaf.
type Object struct {
	Name string            `json:"name"`
	ID   string            `json:"id"`
	Kind models.ObjectKind `json:"kind"`
}

// Ref converts the object into a selection reference within schema.
func (o Object) Ref(schema string) models.ObjectRef {
	return models.ObjectRef{Schema: schema, Name: o.Name, Kind: o.Kind, ID: o.ID}
}

// Groups holds a schema's objects per kind. All five kinds are always
// present, possibly empty.
type Groups map[models.ObjectKind][]Object

// Node is a schema in the tree together with its expansion flags.
type Node struct {
	Name     string                     `json:"name"`
	Groups   Groups                     `json:"groups"`
	Expanded bool                       `json:"expanded"`
	Open     map[models.ObjectKind]bool `json:"open"`
}

// CompletionItem is an autocomplete suggestion.
type CompletionItem struct {
	Label  string            `json:"label"`
	Kind   models.ObjectKind `json:"kind"`
	Schema string            `json:"schema"`
}

// Tree is the normalized schema tree.
type Tree struct {
	Nodes        map[string]*Node `json:"nodes"`
	Autocomplete []CompletionItem `json:"autocomplete"`
	order        []string
}

// Build creates the tree. Every name in schemaNames gets a node even when
// raw has no entry for it.
func Build(schemaNames []string, raw RawObjects) *Tree {
	t := &Tree{Nodes: make(map[string]*Node)}

	for _, name := range schemaNames {
		t.addNode(name, raw[name])
	}
	// Keep schemas that only the objects listing knows about.
	extra := make([]string, 0)
	for name := range raw {
		if _, ok := t.Nodes[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		t.addNode(name, raw[name])
	}

	t.sortOrder()
	t.applyExpansion()
	t.buildAutocomplete()
	return t
}

func (t *Tree) addNode(name string, raw RawGroups) {
	if _, exists := t.Nodes[name]; exists {
		return
	}
	node := &Node{
		Name:   name,
		Groups: emptyGroups(),
		Open:   make(map[models.ObjectKind]bool),
	}
	for _, kind := range models.ObjectKinds {
		for _, r := range raw[kind] {
			node.Groups[kind] = append(node.Groups[kind], Object{
				Name: r.Name,
				ID:   objectID(name, kind, r),
				Kind: kind,
			})
		}
	}
	t.Nodes[name] = node
	t.order = append(t.order, name)
}

func emptyGroups() Groups {
	g := make(Groups, len(models.ObjectKinds))
	for _, kind := range models.ObjectKinds {
		g[kind] = []Object{}
	}
	return g
}

// objectID is schema.name for relations. Functions use the backend id since
// overloads share a name; without one the name is suffixed with "()".
func objectID(schema string, kind models.ObjectKind, r RawObject) string {
	if kind == models.KindFunction {
		if r.ID != "" {
			return r.ID
		}
		return schema + "." + r.Name + "()"
	}
	return schema + "." + r.Name
}

// sortOrder puts public first and the rest alphabetically.
func (t *Tree) sortOrder() {
	sort.SliceStable(t.order, func(i, j int) bool {
		a, b := t.order[i], t.order[j]
		if a == DefaultSchema || b == DefaultSchema {
			return a == DefaultSchema && b != DefaultSchema
		}
		return a < b
	})
}

func (t *Tree) applyExpansion() {
	if node, ok := t.Nodes[DefaultSchema]; ok {
		node.Expanded = true
		node.Open[models.KindTable] = true
	}
	if len(t.Nodes) == 1 {
		for _, node := range t.Nodes {
			node.Expanded = true
		}
	}
}

func (t *Tree) buildAutocomplete() {
	t.Autocomplete = make([]CompletionItem, 0)
	for _, name := range t.order {
		node := t.Nodes[name]
		for _, kind := range models.ObjectKinds {
			if kind == models.KindSequence {
				continue
			}
			for _, obj := range node.Groups[kind] {
				t.Autocomplete = append(t.Autocomplete, CompletionItem{
					Label:  obj.Name,
					Kind:   kind,
					Schema: name,
				})
			}
		}
	}
	sort.SliceStable(t.Autocomplete, func(i, j int) bool {
		return t.Autocomplete[i].Label < t.Autocomplete[j].Label
	})
}

// Schemas returns schema names with public first.
func (t *Tree) Schemas() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of schemas.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Find looks an object up by its id.
func (t *Tree) Find(id string) (models.ObjectRef, bool) {
	for _, name := range t.order {
		for _, kind := range models.ObjectKinds {
			for _, obj := range t.Nodes[name].Groups[kind] {
				if obj.ID == id {
					return obj.Ref(name), true
				}
			}
		}
	}
	return models.ObjectRef{}, false
}

// FindByName looks a relation up by schema and name. A bare name is looked
// up in public first, then in every schema in order.
func (t *Tree) FindByName(schema, name string) (models.ObjectRef, bool) {
	names := t.order
	if schema != "" {
		names = []string{schema}
	}
	for _, s := range names {
		node, ok := t.Nodes[s]
		if !ok {
			continue
		}
		for _, kind := range models.ObjectKinds {
			for _, obj := range node.Groups[kind] {
				if obj.Name == name {
					return obj.Ref(s), true
				}
			}
		}
	}
	return models.ObjectRef{}, false
}
