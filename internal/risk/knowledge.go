package risk

import (
	"sort"
	"strings"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// KnowledgeBase — встроенная выжимка из《盾构施工安全规范》и истории
// инцидентов. Поиск примитивный, по совпадению ключевых слов:
// полноценного векторного индекса на edge-стенде нет.
type KnowledgeBase struct {
	docs []kbDoc
}

type kbDoc struct {
	content  string
	source   string
	keywords []string
}

func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{docs: []kbDoc{
		{
			content:  "瓦斯浓度超过0.5%时，应立即停止掘进作业，加强通风并撤离非必要人员。",
			source:   "盾构施工安全规范 7.2.1",
			keywords: []string{"gas", "瓦斯", "通风"},
		},
		{
			content:  "瓦斯报警后恢复作业前，须连续30分钟监测浓度低于阈值并经安全员确认。",
			source:   "盾构施工安全规范 7.2.4",
			keywords: []string{"gas", "瓦斯", "报警"},
		},
		{
			content:  "管片拼装区作业人员与拼装机间距不得小于1.5米，违规进入须立即警告并上报。",
			source:   "盾构施工安全规范 5.4.2",
			keywords: []string{"personnel", "人员", "拼装"},
		},
		{
			content:  "人员违规行为累计两次以上，应暂停其当班作业资格并组织再培训。",
			source:   "项目安全管理细则 3.1",
			keywords: []string{"personnel", "人员", "违规"},
		},
		{
			content:  "后配套运输车辆在物流通道限速15km/h，接近作业面5米内应有人工引导。",
			source:   "盾构施工安全规范 6.3.1",
			keywords: []string{"vehicle", "车辆", "运输"},
		},
		{
			content:  "泥水压力超出设定上限10%时，应降低掘进速度并检查泥浆环流系统。",
			source:   "盾构施工安全规范 4.5.3",
			keywords: []string{"vehicle", "压力", "泥浆"},
		},
	}}
}

// Search возвращает не более k документов, отсортированных по числу
// совпавших ключевых слов. Ничего не совпало — пустой результат,
// воркфлоу работает без регламентной подложки.
func (kb *KnowledgeBase) Search(query string, k int) []domain.RetrievedDoc {
	q := strings.ToLower(query)

	type scored struct {
		doc   kbDoc
		score int
	}
	var hits []scored
	for _, d := range kb.docs {
		score := 0
		for _, kw := range d.keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{doc: d, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.RetrievedDoc, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.RetrievedDoc{
			Content:   h.doc.content,
			Source:    h.doc.source,
			Relevance: float64(h.score),
		})
	}
	return out
}
