package combine

import (
	"path"
	"sort"
	"strings"
)

// DirectoryTree groups the retained files of a source root by parent
// directory. Directories and the files within each are ordered by byte-wise
// comparison of their slash-separated relative paths; the root is "".
// A DirectoryTree is read-only once collected.
type DirectoryTree struct {
	dirs  []string
	files map[string][]string
}

func newDirectoryTree() *DirectoryTree {
	return &DirectoryTree{files: make(map[string][]string)}
}

func (t *DirectoryTree) add(rel string) {
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	if _, ok := t.files[dir]; !ok {
		t.dirs = append(t.dirs, dir)
	}
	t.files[dir] = append(t.files[dir], rel)
}

func (t *DirectoryTree) sort() {
	sort.Strings(t.dirs)
	for _, files := range t.files {
		sort.Strings(files)
	}
}

// Dirs returns the parent directories holding at least one retained file.
func (t *DirectoryTree) Dirs() []string {
	return append([]string(nil), t.dirs...)
}

// FilesIn returns the retained files directly inside dir.
func (t *DirectoryTree) FilesIn(dir string) []string {
	return append([]string(nil), t.files[dir]...)
}

// Files returns every retained file in merge order.
func (t *DirectoryTree) Files() []string {
	out := make([]string, 0, t.Len())
	for _, dir := range t.dirs {
		out = append(out, t.files[dir]...)
	}
	return out
}

// Len returns the number of retained files.
func (t *DirectoryTree) Len() int {
	n := 0
	for _, files := range t.files {
		n += len(files)
	}
	return n
}

type treeNode struct {
	name     string
	isDir    bool
	children map[string]*treeNode
}

// Render draws the retained files as an indented tree below rootName.
// Directories are listed before files, each group alphabetically.
func (t *DirectoryTree) Render(rootName string) string {
	root := &treeNode{isDir: true, children: map[string]*treeNode{}}
	for _, rel := range t.Files() {
		node := root
		parts := strings.Split(rel, "/")
		for i, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = &treeNode{name: part, isDir: i < len(parts)-1, children: map[string]*treeNode{}}
				node.children[part] = child
			}
			node = child
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimSuffix(rootName, "/") + "/\n")
	renderTree(&b, root, "")
	return b.String()
}

func renderTree(b *strings.Builder, node *treeNode, prefix string) {
	entries := make([]*treeNode, 0, len(node.children))
	for _, child := range node.children {
		entries = append(entries, child)
	}

	// Sort entries: directories first, then files, alphabetically
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})

	for i, entry := range entries {
		connector := "├── "
		extension := "│   "
		if i == len(entries)-1 {
			connector = "└── "
			extension = "    "
		}

		if entry.isDir {
			b.WriteString(prefix + connector + entry.name + "/\n")
			renderTree(b, entry, prefix+extension)
			continue
		}
		b.WriteString(prefix + connector + entry.name + "\n")
	}
}
