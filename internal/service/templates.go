package service

// 模板种类。重定向与降级话术一律走模板，绝不复述被拦截的原始内容。
const (
	TemplateWelcome      = "welcome"
	TemplateGuardrail    = "guardrail"
	TemplateSearchFailed = "search_failed"
	TemplateError        = "error"
	TemplateThrottled    = "throttled"
)

// responseTemplates 按模板种类和语言组织的固定话术，缺失语言回退英语。
var responseTemplates = map[string]map[string]string{
	TemplateWelcome: {
		"en": "Hi! I'm your smart resume assistant. I can help you improve your resume, search for current industry information, and answer career questions. How can I help you today?",
		"ur": "سلام! میں آپ کا ذہین ریزیومے اسسٹنٹ ہوں۔ میں آپ کے ریزیومے کو بہتر بنانے، موجودہ انڈسٹری کی معلومات تلاش کرنے، اور کیریئر کے سوالات کا جواب دینے میں مدد کر سکتا ہوں۔ آج میں آپ کی کیسے مدد کر سکتا ہوں؟",
	},
	TemplateGuardrail: {
		"en": "I'm designed to help with resume and career-related questions. Let's keep our conversation focused on helping you build a better professional profile!",
		"ur": "میں ریزیومے اور کیریئر سے متعلق سوالات میں مدد کے لیے بنایا گیا ہوں۔ آئیے اپنی گفتگو کو آپ کے بہتر پیشہ ورانہ پروفائل بنانے پر مرکوز رکھتے ہیں!",
	},
	TemplateSearchFailed: {
		"en": "I couldn't find current information on that topic. Let me help you with resume-related questions instead!",
		"ur": "میں اس موضوع پر موجودہ معلومات نہیں مل سکیں۔ اس کے بجائے میں آپ کو ریزیومے سے متعلق سوالات میں مدد کرتا ہوں!",
	},
	TemplateError: {
		"en": "I encountered an error processing your request. Please try rephrasing your question.",
		"ur": "آپ کی درخواست پر عمل کرتے وقت مجھے خرابی کا سامنا ہوا۔ براہ کرم اپنا سوال دوبارہ لکھیں۔",
	},
	TemplateThrottled: {
		"en": "You're sending messages a little too quickly. Please wait a moment and try again.",
		"ur": "آپ بہت تیزی سے پیغامات بھیج رہے ہیں۔ براہ کرم ایک لمحہ انتظار کریں اور دوبارہ کوشش کریں۔",
	},
}

// Template 返回指定种类与语言的话术，语言缺失时回退英语。
func Template(kind, lang string) string {
	byLang, ok := responseTemplates[kind]
	if !ok {
		return ""
	}
	if text, ok := byLang[lang]; ok {
		return text
	}
	return byLang["en"]
}

// QuickActions 是前端可直接展示的预置提问分组。
var QuickActions = map[string][]string{
	"resume_improvement": {
		"Help me improve my resume summary",
		"What skills should I add to my resume?",
		"How can I make my experience section better?",
		"Review my education section",
		"Suggest improvements for my resume format",
	},
	"job_search": {
		"Search for current salary trends in my field",
		"Find information about company culture",
		"What are the latest hiring trends?",
		"Help me prepare for interviews",
		"Find job requirements for my target role",
	},
	"career_advice": {
		"How to write better job descriptions?",
		"Career transition advice",
		"Professional networking tips",
		"How to negotiate salary?",
		"Building a personal brand",
	},
	"industry_research": {
		"Find information about my industry",
		"Latest technology trends",
		"Skills in demand for my field",
		"Professional development opportunities",
		"Industry certifications worth pursuing",
	},
}
