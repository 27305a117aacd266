package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"only delimiters", "。！？\n\n", nil},
		{"basic", "甲來了。乙去了！丙呢？", []string{"甲來了", "乙去了", "丙呢"}},
		{"drops empty fragments", "甲。。乙\n\n丙", []string{"甲", "乙", "丙"}},
		{"trims", "  甲  。\t乙 ", []string{"甲", "乙"}},
		{"no terminator", "甲乙丙", []string{"甲乙丙"}},
		{
			"quote keeps utterance",
			"薛寶釵笑道：「你來做什麼？」寶玉答道。",
			[]string{"薛寶釵笑道：「你來做什麼？」寶玉答道"},
		},
		{
			"nested quote",
			"他道：「她說『好！』。」完了。下句",
			[]string{"他道：「她說『好！』。」完了", "下句"},
		},
		{"newline resets unbalanced quote", "「未完？\n下一行。", []string{"「未完？", "下一行"}},
		{"stray close quote", "」甲。乙", []string{"」甲", "乙"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Split(tc.in))
		})
	}
}

func TestWindow(t *testing.T) {
	s := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b", "c"}, Window(s, 0, 1, 2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, Window(s, 1, 1, 2))
	assert.Equal(t, []string{"c", "d"}, Window(s, 3, 1, 2))
	assert.Nil(t, Window(nil, 0, 1, 2))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a。b", Join([]string{"a", "b"}))
	assert.Equal(t, "", Join(nil))
}
