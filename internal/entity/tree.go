package entity

import (
	"fmt"
	"io"
	"strings"
)

// Node is a task with its subtasks.
type Node struct {
	Task     Task
	Children []*Node
}

// BuildTree arranges tasks into a forest by their Parent field. Input order
// is kept among siblings. Tasks whose parent is unknown become roots, and a
// parent link that would close a cycle is dropped.
func BuildTree(tasks []Task) []*Node {
	nodes := make([]*Node, len(tasks))
	byID := make(map[string]*Node, len(tasks))

	for i, t := range tasks {
		nodes[i] = &Node{Task: t}
		if _, dup := byID[t.ID]; !dup && t.ID != "" {
			byID[t.ID] = nodes[i]
		}
	}

	attached := make(map[*Node]*Node, len(tasks))

	var roots []*Node

	for _, n := range nodes {
		parent, ok := byID[n.Task.Parent]
		if !ok || n.Task.Parent == "" || closesCycle(attached, n, parent) {
			roots = append(roots, n)

			continue
		}

		attached[n] = parent
	}

	// Second pass so children keep input order regardless of where their
	// parent sits.
	for _, n := range nodes {
		if parent, ok := attached[n]; ok {
			parent.Children = append(parent.Children, n)
		}
	}

	return roots
}

func closesCycle(attached map[*Node]*Node, child, parent *Node) bool {
	for p := parent; p != nil; p = attached[p] {
		if p == child {
			return true
		}
	}

	return false
}

// RenderTree writes one line per task, indented two spaces per level.
func RenderTree(w io.Writer, roots []*Node) error {
	var b strings.Builder

	var walk func(nodes []*Node, depth int)

	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(taskLine(n.Task))
			b.WriteByte('\n')
			walk(n.Children, depth+1)
		}
	}

	walk(roots, 0)

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("render tree: %w", err)
	}

	return nil
}

func taskLine(t Task) string {
	status := t.Status
	if status == "" {
		status = "-"
	}

	line := fmt.Sprintf("%s [%s] %s", t.ID, status, t.Title)
	if t.Deadline != nil {
		line += " (due " + t.Deadline.Format("2006-01-02") + ")"
	}

	return line
}
