package reading

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/bazi/pkg/bazi"
)

// InitialQuestion is recorded as the user turn of the first analysis when a
// conversation history is built.
const InitialQuestion = "请分析我的八字"

// AnalysisSystemPrompt instructs the model to reason inside think tags before
// answering.
const AnalysisSystemPrompt = `你是一个熟读穷通宝典、三命通会、滴天髓、渊海子平、千里命稿、协纪辨方书、果老星宗、子平真栓、神峰通考等一系列书籍。专业的中国传统八字命理研究人员。在回答任何问题之前，你必须先用<think>标签详细说明你的分析思路和推理过程。然后再给出最终的分析结果。

示例格式：
<think>
1. 分析思路...
2. 推理过程...
3. 结论推导...
</think>

最终分析结果和建议...`

// MindmapSystemPrompt restricts the model to heading and list markdown.
const MindmapSystemPrompt = `你是一个专业的八字命理分析专家。请使用Markdown格式生成一个清晰的思维导图。

要求：
1. 使用Markdown标准语法
2. 只使用#、##、###等标题和-列表符号
3. 确保每个节点简洁明了
4. 不要使用其他格式化语法
5. 不要添加任何额外的说明文字
6. 严格按照思维导图的层级结构组织内容

示例格式：
# 主题
## 一级节点1
- 内容1
- 内容2
## 一级节点2
- 内容1
  - 子内容1
  - 子内容2
- 内容2`

const initialInstructions = `请先用<think>标签详细说明你的分析思路和推理过程，包括：
1. 日元分析
2. 五行生克关系
3. 格局判断
4. 用神喜忌分析

然后再给出完整的八字分析，包括：
1. 性格特征
2. 家庭关系
3. 学业发展
4. 事业方向
5. 婚姻状况
6. 财运分析
7. 健康提醒
8. 大运流年分析`

const mindmapInstructions = `请生成一个详细的思维导图，包括以下方面：

1. 基础信息（生辰八字、性别、命局特点）
2. 五行分析（日主特征、五行生克、喜用神、忌神）
3. 性格特征（性格优点、性格缺点、行为模式）
4. 事业发展（适合行业、发展方向、机遇时机）
5. 财运分析（财运特点、理财建议、破财因素）
6. 健康提示（易患疾病、养生建议、注意事项）
7. 人际关系（家庭关系、婚姻状况、社交特点）
8. 大运流年（近期运势、重要时期、发展建议）

注意：
1. 使用简洁的语言
2. 每个要点不超过20字
3. 保持层级结构清晰
4. 使用标准的Markdown语法`

// InitialPrompt asks for a full reading of chart. The life decades are
// listed as starting in startYear.
func InitialPrompt(chart bazi.Chart, gender bazi.Gender, startYear int) string {
	decades := bazi.LifeDecades(chart, gender)
	names := make([]string, len(decades))
	for i, d := range decades {
		names[i] = d.String()
	}

	var b strings.Builder
	b.WriteString("请分析以下八字：\n\n生辰八字：\n")
	writePillars(&b, chart)
	fmt.Fprintf(&b, "\n性别：%s性\n\n", gender.Label())
	fmt.Fprintf(&b, "大运从%d年开始起运。\n", startYear)
	fmt.Fprintf(&b, "大运为：%s\n\n", strings.Join(names, "、"))
	b.WriteString(initialInstructions)

	return b.String()
}

// FollowUpPrompt asks the model to answer question about chart.
func FollowUpPrompt(chart bazi.Chart, gender bazi.Gender, question string) string {
	var b strings.Builder
	b.WriteString("基于以下八字：\n")
	writePillars(&b, chart)
	fmt.Fprintf(&b, "\n性别：%s性\n\n", gender.Label())
	b.WriteString("请先用<think>标签详细说明你的分析思路和推理过程，然后再回答用户的问题：")
	b.WriteString(question)

	return b.String()
}

// MindmapPrompt asks for a markdown outline of chart.
func MindmapPrompt(chart bazi.Chart, gender bazi.Gender) string {
	var b strings.Builder
	b.WriteString("请分析以下八字并生成思维导图：\n\n生辰八字：\n")
	writePillars(&b, chart)
	fmt.Fprintf(&b, "\n性别：%s性\n\n", gender.Label())
	b.WriteString(mindmapInstructions)

	return b.String()
}

func writePillars(b *strings.Builder, chart bazi.Chart) {
	fmt.Fprintf(b, "年柱：%s\n", chart.Year)
	fmt.Fprintf(b, "月柱：%s\n", chart.Month)
	fmt.Fprintf(b, "日柱：%s\n", chart.Day)
	fmt.Fprintf(b, "时柱：%s\n", chart.Hour)
}
