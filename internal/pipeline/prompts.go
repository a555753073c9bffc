package pipeline

// Prompts carries the system/user prompt pair for one summarization stage.
type Prompts struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

func (p Prompts) orDefault(def Prompts) Prompts {
	if p.System == "" {
		p.System = def.System
	}
	if p.User == "" {
		p.User = def.User
	}
	return p
}

// Default prompts per stage. Platform digests get their own register; the
// per-item prompt is shared.
var (
	defaultItemPrompts = Prompts{
		System: "你是一名专业的财经内容分析师，擅长从嘈杂的自媒体内容中提炼投资观点。",
		User:   "请总结以下内容的核心观点，包括：提到的板块和个股、多空倾向、关键论据。忽略广告和闲聊。",
	}

	defaultDigestPrompts = map[string]Prompts{
		"video": {
			System: "你是一名财经视频内容分析师。",
			User:   "以下是多位UP主今日视频的摘要。请汇总成一份当日视频观点日报：按主题归类，标注观点分歧，列出被多人提及的板块。",
		},
		"microblog": {
			System: "你是一名财经微博内容分析师。",
			User:   "以下是多位博主今日微博的摘要。请汇总成一份当日微博情绪日报：整体情绪、热门话题、值得关注的个股提醒。",
		},
		"newsletter": {
			System: "你是一名财经公众号内容分析师。",
			User:   "以下是多个公众号今日文章的摘要。请汇总成一份当日深度观点日报：核心逻辑、与短线情绪的印证或背离。",
		},
	}

	defaultMergePrompts = Prompts{
		System: "你是一名资深投资顾问，负责汇总多渠道的KOL观点。",
		User: "以下是今日各平台的观点日报。请合并成一份最终分析报告，包含：\n" +
			"1. 今日市场共识与分歧\n2. 被多平台共同提及的板块与个股\n3. 情绪温度判断\n4. 风险提示",
	}
)

// DigestPrompts returns the digest prompt pair for a platform, falling back
// to the per-item defaults for platforms without a dedicated register.
func DigestPrompts(platform string) Prompts {
	if p, ok := defaultDigestPrompts[platform]; ok {
		return p
	}
	return defaultItemPrompts
}
