package language

import (
	"sort"
	"strings"
)

// names maps the ISO 639-1 codes Whisper understands to English names.
var names = map[string]string{
	"af": "Afrikaans", "ar": "Arabic", "hy": "Armenian", "az": "Azerbaijani",
	"be": "Belarusian", "bs": "Bosnian", "bg": "Bulgarian", "ca": "Catalan",
	"zh": "Chinese", "hr": "Croatian", "cs": "Czech", "da": "Danish",
	"nl": "Dutch", "en": "English", "et": "Estonian", "fi": "Finnish",
	"fr": "French", "gl": "Galician", "de": "German", "el": "Greek",
	"he": "Hebrew", "hi": "Hindi", "hu": "Hungarian", "is": "Icelandic",
	"id": "Indonesian", "it": "Italian", "ja": "Japanese", "kn": "Kannada",
	"kk": "Kazakh", "ko": "Korean", "lv": "Latvian", "lt": "Lithuanian",
	"mk": "Macedonian", "ms": "Malay", "mr": "Marathi", "mi": "Maori",
	"ne": "Nepali", "no": "Norwegian", "fa": "Persian", "pl": "Polish",
	"pt": "Portuguese", "ro": "Romanian", "ru": "Russian", "sr": "Serbian",
	"sk": "Slovak", "sl": "Slovenian", "es": "Spanish", "sw": "Swahili",
	"sv": "Swedish", "tl": "Tagalog", "ta": "Tamil", "th": "Thai",
	"tr": "Turkish", "uk": "Ukrainian", "ur": "Urdu", "vi": "Vietnamese",
	"cy": "Welsh",
}

// Name returns the English name for code, "Auto-detect" for the empty code and
// the code itself when unknown.
func Name(code string) string {
	code = normalize(code)
	if code == "" {
		return "Auto-detect"
	}
	if n, ok := names[code]; ok {
		return n
	}
	return code
}

// IsValidCode reports whether code is known. Empty means auto-detect and is valid.
func IsValidCode(code string) bool {
	code = normalize(code)
	if code == "" {
		return true
	}
	_, ok := names[code]
	return ok
}

// Codes returns all codes sorted by language name.
func Codes() []string {
	codes := make([]string, 0, len(names))
	for c := range names {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return names[codes[i]] < names[codes[j]] })
	return codes
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
