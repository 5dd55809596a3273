package splitter

// Parent is a large transcript window used to derive a chapter-level
// synthesis. Its children are the small windows that actually get embedded.
type Parent struct {
	Index    int
	Text     string
	Children []Child
}

type Child struct {
	Index int
	Text  string
}

// Hierarchical applies a two-level split: the transcript into parent
// windows, then each parent independently into child windows.
type Hierarchical struct {
	parent *Splitter
	child  *Splitter
}

func NewHierarchical(parentSize, parentOverlap, childSize, childOverlap int) *Hierarchical {
	return &Hierarchical{
		parent: New(parentSize, parentOverlap),
		child:  New(childSize, childOverlap),
	}
}

func (h *Hierarchical) Split(text string) []Parent {
	parentTexts := h.parent.Split(text)
	parents := make([]Parent, 0, len(parentTexts))
	for pIndex, parentText := range parentTexts {
		childTexts := h.child.Split(parentText)
		children := make([]Child, 0, len(childTexts))
		for cIndex, childText := range childTexts {
			children = append(children, Child{Index: cIndex, Text: childText})
		}
		parents = append(parents, Parent{Index: pIndex, Text: parentText, Children: children})
	}
	return parents
}
