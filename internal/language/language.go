package language

import (
	"sort"
)

// Language names a source or target language. Name is the English name
// used in translation prompts.
type Language struct {
	Code string
	Name string
}

// Default pair for blog entries.
const (
	DefaultSource = "ja"
	DefaultTarget = "en"
)

// Languages maps the CLI code to a Language.
var Languages = map[string]Language{
	"af":       {Code: "af", Name: "Afrikaans"},
	"sq":       {Code: "sq", Name: "Albanian"},
	"am":       {Code: "am", Name: "Amharic"},
	"ar":       {Code: "ar", Name: "Arabic"},
	"hy":       {Code: "hy", Name: "Armenian"},
	"as":       {Code: "as", Name: "Assamese"},
	"az":       {Code: "az", Name: "Azerbaijani"},
	"eu":       {Code: "eu", Name: "Basque"},
	"be":       {Code: "be", Name: "Belarusian"},
	"bn":       {Code: "bn", Name: "Bengali"},
	"bs":       {Code: "bs", Name: "Bosnian"},
	"bg":       {Code: "bg", Name: "Bulgarian"},
	"ca":       {Code: "ca", Name: "Catalan"},
	"ceb":      {Code: "ceb", Name: "Cebuano"},
	"zh":       {Code: "zh-Hans", Name: "Chinese (Simplified)"},
	"zh-Hans":  {Code: "zh-Hans", Name: "Chinese (Simplified)"},
	"zh-Hant":  {Code: "zh-Hant", Name: "Chinese (Traditional)"},
	"co":       {Code: "co", Name: "Corsican"},
	"hr":       {Code: "hr", Name: "Croatian"},
	"cs":       {Code: "cs", Name: "Czech"},
	"da":       {Code: "da", Name: "Danish"},
	"dv":       {Code: "dv", Name: "Dhivehi"},
	"nl":       {Code: "nl", Name: "Dutch"},
	"en":       {Code: "en", Name: "English"},
	"eo":       {Code: "eo", Name: "Esperanto"},
	"et":       {Code: "et", Name: "Estonian"},
	"fil":      {Code: "fil", Name: "Filipino"},
	"fi":       {Code: "fi", Name: "Finnish"},
	"fr":       {Code: "fr", Name: "French"},
	"fy":       {Code: "fy", Name: "Frisian"},
	"gl":       {Code: "gl", Name: "Galician"},
	"ka":       {Code: "ka", Name: "Georgian"},
	"de":       {Code: "de", Name: "German"},
	"el":       {Code: "el", Name: "Greek"},
	"gu":       {Code: "gu", Name: "Gujarati"},
	"ht":       {Code: "ht", Name: "Haitian Creole"},
	"ha":       {Code: "ha", Name: "Hausa"},
	"haw":      {Code: "haw", Name: "Hawaiian"},
	"iw":       {Code: "iw", Name: "Hebrew"},
	"hi":       {Code: "hi", Name: "Hindi"},
	"hmn":      {Code: "hmn", Name: "Hmong"},
	"hu":       {Code: "hu", Name: "Hungarian"},
	"is":       {Code: "is", Name: "Icelandic"},
	"ig":       {Code: "ig", Name: "Igbo"},
	"id":       {Code: "id", Name: "Indonesian"},
	"ga":       {Code: "ga", Name: "Irish"},
	"it":       {Code: "it", Name: "Italian"},
	"ja":       {Code: "ja", Name: "Japanese"},
	"jv":       {Code: "jv", Name: "Javanese"},
	"kn":       {Code: "kn", Name: "Kannada"},
	"kk":       {Code: "kk", Name: "Kazakh"},
	"km":       {Code: "km", Name: "Khmer"},
	"ko":       {Code: "ko", Name: "Korean"},
	"kri":      {Code: "kri", Name: "Krio"},
	"ku":       {Code: "ku", Name: "Kurdish"},
	"ky":       {Code: "ky", Name: "Kyrgyz"},
	"lo":       {Code: "lo", Name: "Lao"},
	"la":       {Code: "la", Name: "Latin"},
	"lv":       {Code: "lv", Name: "Latvian"},
	"lt":       {Code: "lt", Name: "Lithuanian"},
	"lb":       {Code: "lb", Name: "Luxembourgish"},
	"mk":       {Code: "mk", Name: "Macedonian"},
	"mg":       {Code: "mg", Name: "Malagasy"},
	"ms":       {Code: "ms", Name: "Malay"},
	"ml":       {Code: "ml", Name: "Malayalam"},
	"mt":       {Code: "mt", Name: "Maltese"},
	"mi":       {Code: "mi", Name: "Maori"},
	"mr":       {Code: "mr", Name: "Marathi"},
	"mni-Mtei": {Code: "mni-Mtei", Name: "Meiteilon (Manipuri)"},
	"mn":       {Code: "mn", Name: "Mongolian"},
	"my":       {Code: "my", Name: "Myanmar (Burmese)"},
	"ne":       {Code: "ne", Name: "Nepali"},
	"no":       {Code: "no", Name: "Norwegian"},
	"ny":       {Code: "ny", Name: "Nyanja (Chichewa)"},
	"or":       {Code: "or", Name: "Odia (Oriya)"},
	"ps":       {Code: "ps", Name: "Pashto"},
	"fa":       {Code: "fa", Name: "Persian"},
	"pl":       {Code: "pl", Name: "Polish"},
	"pt":       {Code: "pt", Name: "Portuguese"},
	"pa":       {Code: "pa", Name: "Punjabi"},
	"ro":       {Code: "ro", Name: "Romanian"},
	"ru":       {Code: "ru", Name: "Russian"},
	"sm":       {Code: "sm", Name: "Samoan"},
	"gd":       {Code: "gd", Name: "Scots Gaelic"},
	"sr":       {Code: "sr", Name: "Serbian"},
	"st":       {Code: "st", Name: "Sesotho"},
	"sn":       {Code: "sn", Name: "Shona"},
	"sd":       {Code: "sd", Name: "Sindhi"},
	"si":       {Code: "si", Name: "Sinhala (Sinhalese)"},
	"sk":       {Code: "sk", Name: "Slovak"},
	"sl":       {Code: "sl", Name: "Slovenian"},
	"so":       {Code: "so", Name: "Somali"},
	"es":       {Code: "es", Name: "Spanish"},
	"su":       {Code: "su", Name: "Sundanese"},
	"sw":       {Code: "sw", Name: "Swahili"},
	"sv":       {Code: "sv", Name: "Swedish"},
	"tg":       {Code: "tg", Name: "Tajik"},
	"ta":       {Code: "ta", Name: "Tamil"},
	"te":       {Code: "te", Name: "Telugu"},
	"th":       {Code: "th", Name: "Thai"},
	"tr":       {Code: "tr", Name: "Turkish"},
	"uk":       {Code: "uk", Name: "Ukrainian"},
	"ur":       {Code: "ur", Name: "Urdu"},
	"ug":       {Code: "ug", Name: "Uyghur"},
	"uz":       {Code: "uz", Name: "Uzbek"},
	"vi":       {Code: "vi", Name: "Vietnamese"},
	"cy":       {Code: "cy", Name: "Welsh"},
	"xh":       {Code: "xh", Name: "Xhosa"},
	"yi":       {Code: "yi", Name: "Yiddish"},
	"yo":       {Code: "yo", Name: "Yoruba"},
	"zu":       {Code: "zu", Name: "Zulu"},
}

// GetLanguage returns the language registered under code.
func GetLanguage(code string) (Language, bool) {
	lang, ok := Languages[code]
	return lang, ok
}

// LanguageEntry represents a map entry for listing.
type LanguageEntry struct {
	ID string // The map key (CLI flag)
	Language
}

// GetSupportedLanguages returns a list of supported languages sorted by Name and then ID.
func GetSupportedLanguages() []LanguageEntry {
	entries := make([]LanguageEntry, 0, len(Languages))
	for k, v := range Languages {
		entries = append(entries, LanguageEntry{ID: k, Language: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
