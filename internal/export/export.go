package export

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

// Node is one task in the exported forest tree
type Node struct {
	TaskID        string    `json:"task_id" yaml:"task_id"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	Workspace     string    `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Instruction   string    `json:"instruction,omitempty" yaml:"instruction,omitempty"`
	Reconstructed bool      `json:"reconstructed,omitempty" yaml:"reconstructed,omitempty"`
	Depth         int       `json:"depth" yaml:"depth"`
	Children      []*Node   `json:"children,omitempty" yaml:"children,omitempty"`
}

// BuildTree converts a flat skeleton list into nested root nodes,
// ordered by creation time.
func BuildTree(skeletons []*domain.Skeleton) []*Node {
	nodes := make(map[string]*Node, len(skeletons))
	for _, sk := range skeletons {
		nodes[sk.TaskID] = &Node{
			TaskID:        sk.TaskID,
			CreatedAt:     sk.CreatedAt,
			Workspace:     sk.Workspace,
			Instruction:   sk.TruncatedInstruction,
			Reconstructed: sk.IsReconstructed(),
			Depth:         sk.Depth,
		}
	}

	var roots []*Node
	for _, sk := range skeletons {
		node := nodes[sk.TaskID]
		if sk.HasParent() {
			if parent, ok := nodes[sk.ParentTaskID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	byCreation := func(list []*Node) {
		sort.Slice(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return list[i].TaskID < list[j].TaskID
		})
	}
	byCreation(roots)
	for _, node := range nodes {
		byCreation(node.Children)
	}

	return roots
}

// WriteJSON writes the forest tree as indented JSON
func WriteJSON(w io.Writer, roots []*Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(roots)
}

// WriteYAML writes the forest tree as YAML
func WriteYAML(w io.Writer, roots []*Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(roots)
}
