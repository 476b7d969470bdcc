package output

import (
	"fmt"
	"io"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	directorySuffix = "/"
)

// WriteList prints every path below the root, directories with a trailing
// slash, then the summary line.
func WriteList(writer io.Writer, root *Node) error {
	if root == nil {
		return nil
	}
	if err := writeListNode(writer, root, true); err != nil {
		return err
	}
	_, err := fmt.Fprintln(writer, FormatSummaryLine(Summarize(root)))
	return err
}

func writeListNode(writer io.Writer, node *Node, isRoot bool) error {
	if !isRoot {
		line := node.Path
		if node.Type == NodeTypeDirectory {
			line += directorySuffix
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := writeListNode(writer, child, false); err != nil {
			return err
		}
	}
	return nil
}

// WriteTree draws root and its descendants with box-drawing connectors, then the summary line.
func WriteTree(writer io.Writer, root *Node) error {
	if root == nil {
		return nil
	}
	if err := renderTreeNode(writer, root, "", true, true); err != nil {
		return err
	}
	_, err := fmt.Fprintln(writer, FormatSummaryLine(Summarize(root)))
	return err
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func renderTreeNode(writer io.Writer, node *Node, prefix string, isRoot bool, isLast bool) error {
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	label := node.Name
	if node.Type == NodeTypeDirectory {
		label += directorySuffix
	}
	if _, err := fmt.Fprintf(writer, "%s%s\n", linePrefix, label); err != nil {
		return err
	}
	for index, child := range node.Children {
		if err := renderTreeNode(writer, child, childPrefix, false, index == len(node.Children)-1); err != nil {
			return err
		}
	}
	return nil
}
