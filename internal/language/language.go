package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
	native  []string // Names of the language written in the language itself
	voice   string   // Default edge-tts voice
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}, nil, "en-US-MichelleNeural"},
	{"es", "spa", "", "Spanish", []string{"spanish"}, []string{"español"}, "es-ES-ElviraNeural"},
	{"fr", "fra", "fre", "French", []string{"french"}, []string{"français"}, "fr-FR-DeniseNeural"},
	{"de", "deu", "ger", "German", []string{"german"}, []string{"Deutsch"}, "de-DE-KatjaNeural"},
	{"it", "ita", "", "Italian", []string{"italian"}, []string{"italiano"}, "it-IT-ElsaNeural"},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}, []string{"português"}, "pt-BR-FranciscaNeural"},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}, []string{"日本語"}, "ja-JP-NanamiNeural"},
	{"ko", "kor", "", "Korean", []string{"korean"}, []string{"한국어"}, "ko-KR-SunHiNeural"},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "simplified chinese", "mandarin"}, []string{"简体中文", "中文"}, "zh-CN-XiaoxiaoNeural"},
	{"yue", "yue", "", "Cantonese", []string{"cantonese"}, []string{"粤语"}, "zh-HK-HiuMaanNeural"},
	{"ru", "rus", "", "Russian", []string{"russian"}, []string{"русский"}, "ru-RU-SvetlanaNeural"},
	{"ar", "ara", "", "Arabic", []string{"arabic"}, []string{"العربية"}, "ar-SA-ZariyahNeural"},
	{"hi", "hin", "", "Hindi", []string{"hindi"}, []string{"हिन्दी"}, "hi-IN-SwaraNeural"},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}, []string{"Nederlands"}, "nl-NL-ColetteNeural"},
	{"pl", "pol", "", "Polish", []string{"polish"}, []string{"polski"}, "pl-PL-ZofiaNeural"},
	{"sv", "swe", "", "Swedish", []string{"swedish"}, []string{"svenska"}, "sv-SE-SofieNeural"},
	{"da", "dan", "", "Danish", []string{"danish"}, []string{"dansk"}, "da-DK-ChristelNeural"},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}, []string{"norsk"}, "nb-NO-PernilleNeural"},
	{"fi", "fin", "", "Finnish", []string{"finnish"}, []string{"suomi"}, "fi-FI-NooraNeural"},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	if strings.ContainsAny(code, "-_") {
		// BCP 47 tags such as zh-CN or pt_BR resolve through their base language.
		if tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-")); err == nil {
			base, _ := tag.Base()
			if e, ok := byCode2[base.String()]; ok {
				return e
			}
		}
	}
	return nil
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized 2-letter codes, passes through 3-letter codes.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NativeNames returns the names a model might use when it mentions the
// language in its own script (e.g. 中文 for Chinese).
func NativeNames(code string) []string {
	e := lookup(code)
	if e == nil || len(e.native) == 0 {
		return nil
	}
	out := make([]string, len(e.native))
	copy(out, e.native)
	return out
}

// DefaultVoice returns the edge-tts voice used when none is configured.
func DefaultVoice(code string) string {
	if e := lookup(code); e != nil {
		return e.voice
	}
	return ""
}
