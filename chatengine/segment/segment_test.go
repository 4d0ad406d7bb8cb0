package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSingleLine(t *testing.T) {
	segs := Split("hello there")
	require.Len(t, segs, 1)
	assert.Equal(t, Text("hello there"), segs[0])
}

func TestSplitPartBreaks(t *testing.T) {
	segs := Split("first||PART_BREAK||second||PART_BREAK||third")
	require.Len(t, segs, 3)
	assert.Equal(t, "first", segs[0].Content)
	assert.Equal(t, "second", segs[1].Content)
	assert.Equal(t, "third", segs[2].Content)
}

func TestSplitDropsBlankParts(t *testing.T) {
	segs := Split("first||PART_BREAK||   ||PART_BREAK||second")
	require.Len(t, segs, 2)
	assert.Equal(t, "first", segs[0].Content)
	assert.Equal(t, "second", segs[1].Content)
}

func TestSplitMultilinePartBecomesLineSegments(t *testing.T) {
	segs := Split("line one\nline two\n\nline three")
	require.Len(t, segs, 3)
	for _, s := range segs {
		assert.Equal(t, KindText, s.Kind)
	}
	assert.Equal(t, "line two", segs[1].Content)
}

func TestSplitImageDirective(t *testing.T) {
	segs := Split("look at this [IMAGE_PROMPT: a dark hallway] scary right?")
	require.Len(t, segs, 3)
	assert.Equal(t, Text("look at this"), segs[0])
	assert.Equal(t, ImageDirective("a dark hallway"), segs[1])
	assert.Equal(t, Text("scary right?"), segs[2])
}

func TestSplitOnlyFirstDirectivePerPart(t *testing.T) {
	segs := Split("[IMAGE_PROMPT: one][IMAGE_PROMPT: two]")
	require.Len(t, segs, 2)
	assert.Equal(t, KindImageDirective, segs[0].Kind)
	assert.Equal(t, "one", segs[0].Content)
	// The second directive survives as literal text.
	assert.Equal(t, KindText, segs[1].Kind)
	assert.Equal(t, "[IMAGE_PROMPT: two]", segs[1].Content)
}

func TestSplitDirectivePerPart(t *testing.T) {
	segs := Split("[IMAGE_PROMPT: one]||PART_BREAK||[IMAGE_PROMPT: two]")
	require.Len(t, segs, 2)
	assert.Equal(t, ImageDirective("one"), segs[0])
	assert.Equal(t, ImageDirective("two"), segs[1])
}

func TestSplitDirectiveSpansNewlines(t *testing.T) {
	segs := Split("[IMAGE_PROMPT: a room\nwith no windows]")
	require.Len(t, segs, 1)
	assert.Equal(t, KindImageDirective, segs[0].Kind)
	assert.Equal(t, "a room\nwith no windows", segs[0].Content)
}

func TestSplitUnterminatedDirectiveIsText(t *testing.T) {
	segs := Split("[IMAGE_PROMPT: never closed")
	require.Len(t, segs, 1)
	assert.Equal(t, KindText, segs[0].Kind)
}

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("   \n  "))
	assert.Empty(t, Split("||PART_BREAK||"))
}
