package splitter

import (
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
)

func buildTranscript(sentences int) string {
	var sb strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&sb, "%d:%02d - sentence number %d about the topic. ", i/2, (i*30)%60, i)
		if i > 0 && i%25 == 0 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// Every chunk must be a substring of the source, chunks must appear in
// order, and no non-whitespace range of the source may be skipped.
func assertCoverage(t *testing.T, text string, chunks []string) {
	t.Helper()
	searchFrom := 0
	maxEnd := 0
	for _, chunk := range chunks {
		require.NotEmpty(t, strings.TrimSpace(chunk))
		idx := strings.Index(text[searchFrom:], chunk)
		require.GreaterOrEqual(t, idx, 0, "chunk %q not found in order", chunk)
		start := searchFrom + idx
		if start > maxEnd {
			for _, r := range text[maxEnd:start] {
				require.True(t, unicode.IsSpace(r), "skipped non-whitespace range %q", text[maxEnd:start])
			}
		}
		if end := start + len(chunk); end > maxEnd {
			maxEnd = end
		}
		searchFrom = start + 1
	}
	for _, r := range text[maxEnd:] {
		require.True(t, unicode.IsSpace(r))
	}
}

func TestSplitCoversSource(t *testing.T) {
	text := buildTranscript(120)
	chunks := New(500, 50).Split(text)
	require.NotEmpty(t, chunks)
	assertCoverage(t, text, chunks)
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	text := "  just one short line  "
	chunks := New(500, 50).Split(text)
	require.Len(t, chunks, 1)
	require.Equal(t, "just one short line", chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	require.Nil(t, New(500, 50).Split(""))
	require.Nil(t, New(500, 50).Split("   \n\n  "))
}

func TestSplitRespectsChunkSizeAtBoundaries(t *testing.T) {
	text := buildTranscript(200)
	size := 400
	chunks := New(size, 40).Split(text)
	for _, chunk := range chunks {
		// Boundary-preferring splits keep chunks at or under the window
		// size whenever a sentence boundary exists inside the window.
		require.LessOrEqual(t, len(chunk), size)
	}
}

func TestSplitOverlapSharesContent(t *testing.T) {
	text := buildTranscript(150)
	chunks := New(400, 80).Split(text)
	require.Greater(t, len(chunks), 1)
	shared := 0
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1]
		if len(tail) > 120 {
			tail = tail[len(tail)-120:]
		}
		// At least one sentence fragment from the previous window should
		// reappear at the head of the next one.
		if start := strings.Index(tail, "."); start >= 0 && start+1 < len(tail) {
			fragment := strings.TrimSpace(tail[start+1:])
			if fragment != "" && strings.Contains(chunks[i], fragment) {
				shared++
			}
		}
	}
	require.Greater(t, shared, 0)
}

func TestSplitHardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 1200)
	chunks := New(500, 50).Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 500)
		require.NotEmpty(t, chunk)
	}
}

func TestHierarchicalSplit(t *testing.T) {
	text := buildTranscript(200)
	parents := NewHierarchical(2000, 200, 500, 50).Split(text)
	require.NotEmpty(t, parents)
	for i, parent := range parents {
		require.Equal(t, i, parent.Index)
		require.NotEmpty(t, parent.Children)
		childSpan := 500 - 50
		maxChildren := len(parent.Text)/childSpan + 2
		require.LessOrEqual(t, len(parent.Children), maxChildren)
		for j, child := range parent.Children {
			require.Equal(t, j, child.Index)
			require.NotEmpty(t, strings.TrimSpace(child.Text))
			require.LessOrEqual(t, len(child.Text), 500)
		}
		assertCoverage(t, parent.Text, childTexts(parent.Children))
	}
}

func TestHierarchicalTwoParents(t *testing.T) {
	// Three paragraph breaks at sizes that force exactly two parent windows.
	para := strings.Repeat("alpha beta gamma delta. ", 40) // ~960 chars
	text := para + "\n\n" + para + "\n\n" + para + "\n\n" + para[:200]
	parents := NewHierarchical(2000, 200, 500, 50).Split(text)
	require.Equal(t, 2, len(parents))
}

func childTexts(children []Child) []string {
	out := make([]string, 0, len(children))
	for _, c := range children {
		out = append(out, c.Text)
	}
	return out
}
