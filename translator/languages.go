package translator

import "strings"

// Language 支持的语言
type Language struct {
	Name        string `json:"name"`        // 英文名，作为提示词中的语言名
	DisplayName string `json:"displayName"` // 韩文显示名
	Code        string `json:"code"`        // ISO 639-1 代码
}

// Languages 界面可选语言，顺序即展示顺序
var Languages = []Language{
	{Name: "Korean", DisplayName: "한국어", Code: "ko"},
	{Name: "English", DisplayName: "영어", Code: "en"},
	{Name: "Japanese", DisplayName: "일본어", Code: "ja"},
	{Name: "Chinese (Simplified)", DisplayName: "중국어 (간체)", Code: "zh"},
	{Name: "Chinese (Traditional)", DisplayName: "중국어 (번체)", Code: "zt"},
	{Name: "French", DisplayName: "프랑스어", Code: "fr"},
	{Name: "German", DisplayName: "독일어", Code: "de"},
	{Name: "Spanish", DisplayName: "스페인어", Code: "es"},
	{Name: "Italian", DisplayName: "이탈리아어", Code: "it"},
	{Name: "Portuguese", DisplayName: "포르투갈어", Code: "pt"},
	{Name: "Russian", DisplayName: "러시아어", Code: "ru"},
	{Name: "Arabic", DisplayName: "아랍어", Code: "ar"},
	{Name: "Thai", DisplayName: "태국어", Code: "th"},
	{Name: "Vietnamese", DisplayName: "베트남어", Code: "vi"},
}

// Model 可选的 OpenAI 模型
type Model struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// Models 界面可选模型
var Models = []Model{
	{Label: "GPT-4o Mini (빠르고 저렴)", ID: "gpt-4o-mini"},
	{Label: "GPT-4o (고품질)", ID: "gpt-4o"},
	{Label: "GPT-4 Turbo", ID: "gpt-4-turbo-preview"},
}

// 常见别名，包括中文写法
var languageAliases = map[string]string{
	"chinese":             "zh",
	"simplified chinese":  "zh",
	"简体中文":                "zh",
	"中文":                  "zh",
	"traditional chinese": "zt",
	"繁体中文":                "zt",
	"繁體中文":                "zt",
	"英语":                  "en",
	"英文":                  "en",
	"日语":                  "ja",
	"日文":                  "ja",
	"韩语":                  "ko",
	"韓語":                  "ko",
	"西班牙语":                "es",
	"法语":                  "fr",
	"德语":                  "de",
	"意大利语":                "it",
	"葡萄牙语":                "pt",
	"俄语":                  "ru",
	"阿拉伯语":                "ar",
	"hindi":               "hi",
	"印地语":                 "hi",
}

// LookupLanguage 按名称、显示名或代码查找语言
func LookupLanguage(name string) (Language, bool) {
	key := strings.TrimSpace(name)
	for _, l := range Languages {
		if strings.EqualFold(l.Name, key) || l.DisplayName == key || strings.EqualFold(l.Code, key) {
			return l, true
		}
	}
	if code, ok := languageAliases[strings.ToLower(key)]; ok {
		for _, l := range Languages {
			if l.Code == code {
				return l, true
			}
		}
	}
	return Language{}, false
}

// LanguageCode 语言名称转换为 LibreTranslate 使用的代码，未知名称原样返回
func LanguageCode(language string) string {
	key := strings.TrimSpace(language)
	if key == "" || strings.EqualFold(key, "auto") {
		return "auto"
	}
	if l, ok := LookupLanguage(key); ok {
		return l.Code
	}
	if code, ok := languageAliases[strings.ToLower(key)]; ok {
		return code
	}
	return key
}
