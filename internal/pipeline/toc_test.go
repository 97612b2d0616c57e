package pipeline

import (
	"testing"

	"github.com/nerdneilsfield/epub-translator/internal/formats/epub"
	"github.com/stretchr/testify/assert"
)

func link(id string) *epub.NavNode {
	return &epub.NavNode{Kind: epub.NavLink, ID: id}
}

func ids(nodes []*epub.NavNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.ID)
		out = append(out, ids(n.Children)...)
	}
	return out
}

func TestRepairTOC(t *testing.T) {
	t.Run("shared counter in pre-order", func(t *testing.T) {
		toc := []*epub.NavNode{
			link(""),
			{Kind: epub.NavSection, Children: []*epub.NavNode{
				link(""),
				link("kept"),
				link(""),
			}},
			link(""),
		}

		assert.Equal(t, 4, RepairTOC(toc))
		assert.Equal(t, []string{"toc_link_0", "", "toc_link_1", "kept", "toc_link_3", "toc_link_4"}, ids(toc))
	})

	t.Run("part references do not consume the counter", func(t *testing.T) {
		toc := []*epub.NavNode{
			{Kind: epub.NavPart, ID: "chapter1"},
			link(""),
			{Kind: epub.NavPart, ID: "chapter2"},
			link(""),
		}

		assert.Equal(t, 2, RepairTOC(toc))
		assert.Equal(t, []string{"chapter1", "toc_link_0", "chapter2", "toc_link_1"}, ids(toc))
	})

	t.Run("existing ids are never reused", func(t *testing.T) {
		toc := []*epub.NavNode{
			link(""),
			link(""),
			link("toc_link_1"),
		}

		assert.Equal(t, 2, RepairTOC(toc))
		assert.Equal(t, []string{"toc_link_0", "toc_link_2", "toc_link_1"}, ids(toc))
	})

	t.Run("idempotent", func(t *testing.T) {
		toc := []*epub.NavNode{
			link(""),
			{Kind: epub.NavSection, Children: []*epub.NavNode{link(""), link("")}},
		}

		assert.Equal(t, 3, RepairTOC(toc))
		first := ids(toc)
		assert.Equal(t, 0, RepairTOC(toc))
		assert.Equal(t, first, ids(toc))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0, RepairTOC(nil))
	})
}
