package pipeline

import (
	"strconv"

	"github.com/nerdneilsfield/epub-translator/internal/formats/epub"
)

// LinkIDPrefix 自动生成的目录链接 id 前缀
const LinkIDPrefix = "toc_link_"

// RepairTOC 为缺少 id 的目录链接分配 id，返回新分配的数量
//
// 先序遍历，所有链接共用一个计数器，已有 id 的链接同样占用一个计数值；
// 分组和直接引用文档的节点不占用计数，也不会被分配 id。
// 已有的 id 从不覆盖，生成的 id 与已有 id 冲突时向后顺延。
// 重复调用不会再分配新的 id。
func RepairTOC(toc []*epub.NavNode) int {
	used := make(map[string]bool)
	collectIDs(toc, used)

	index, assigned := 0, 0
	var walk func(nodes []*epub.NavNode)
	walk = func(nodes []*epub.NavNode) {
		for _, n := range nodes {
			switch n.Kind {
			case epub.NavLink:
				if n.ID == "" {
					id := LinkIDPrefix + strconv.Itoa(index)
					for used[id] {
						index++
						id = LinkIDPrefix + strconv.Itoa(index)
					}
					n.ID = id
					used[id] = true
					assigned++
				}
				index++
			case epub.NavSection:
				walk(n.Children)
			}
		}
	}
	walk(toc)

	return assigned
}

func collectIDs(nodes []*epub.NavNode, used map[string]bool) {
	for _, n := range nodes {
		if n.ID != "" {
			used[n.ID] = true
		}
		collectIDs(n.Children, used)
	}
}
