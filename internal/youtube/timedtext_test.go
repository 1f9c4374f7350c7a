package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimedText_Classic(t *testing.T) {
	segs, err := ParseTimedText([]byte(classicXML))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.InDelta(t, 0.5, segs[0].Start, 1e-9)
	assert.InDelta(t, 1.75, segs[0].End, 1e-9)
	assert.InDelta(t, 3.75, segs[1].End, 1e-9)
}

func TestParseTimedText_Srv3(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8" ?><timedtext format="3"><body>
<p t="1000" d="2500">so, the <s>first</s><s t="300"> line</s></p>
<p t="3500" d="1000">Tom &amp; Jerry</p>
<p t="4500" d="10"></p>
</body></timedtext>`
	segs, err := ParseTimedText([]byte(doc))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "so, the first line", segs[0].Text)
	assert.InDelta(t, 1.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 3.5, segs[0].End, 1e-9)
	assert.Equal(t, "Tom & Jerry", segs[1].Text)
}

func TestParseTimedText_Malformed(t *testing.T) {
	_, err := ParseTimedText([]byte("<transcript><text>"))
	assert.Error(t, err)
}
