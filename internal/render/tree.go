package render

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"

	"github.com/willibrandon/pgnav/internal/models"
	"github.com/willibrandon/pgnav/internal/schema"
)

// TreeOptions controls Tree output.
type TreeOptions struct {
	// ExpandAll lists every group's objects instead of honouring the
	// tree's expansion flags.
	ExpandAll bool
}

// Tree writes the schema tree. Collapsed schemas and groups show counts only.
func Tree(w io.Writer, t *schema.Tree, opts TreeOptions) error {
	root := treeprint.New()
	root.SetValue("schemas")

	for _, name := range t.Schemas() {
		node := t.Nodes[name]
		total := 0
		for _, kind := range models.ObjectKinds {
			total += len(node.Groups[kind])
		}
		label := fmt.Sprintf("%s (%d)", node.Name, total)
		if !node.Expanded && !opts.ExpandAll {
			root.AddNode(label)
			continue
		}

		branch := root.AddBranch(label)
		for _, kind := range models.ObjectKinds {
			objects := node.Groups[kind]
			if len(objects) == 0 {
				continue
			}
			groupLabel := fmt.Sprintf("%s (%d)", kind, len(objects))
			if !node.Open[kind] && !opts.ExpandAll {
				branch.AddNode(mutedFormat(groupLabel))
				continue
			}
			group := branch.AddBranch(groupLabel)
			for _, obj := range objects {
				if kind == models.KindFunction && obj.ID != "" && obj.ID != obj.Name {
					group.AddMetaNode(obj.ID, obj.Name)
					continue
				}
				group.AddNode(obj.Name)
			}
		}
	}

	_, err := io.WriteString(w, root.String())
	return err
}
