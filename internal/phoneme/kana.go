package phoneme

import (
	"regexp"
	"strings"
)

// kanaRomaji maps hiragana to romanized phoneme labels. Two-rune entries
// (yoon) must come before single runes so the longest form wins.
var kanaRomaji = []struct {
	kana  string
	label string
}{
	{"きゃ", "kya"}, {"きゅ", "kyu"}, {"きょ", "kyo"},
	{"ぎゃ", "gya"}, {"ぎゅ", "gyu"}, {"ぎょ", "gyo"},
	{"しゃ", "sha"}, {"しゅ", "shu"}, {"しょ", "sho"},
	{"じゃ", "ja"}, {"じゅ", "ju"}, {"じょ", "jo"},
	{"ちゃ", "cha"}, {"ちゅ", "chu"}, {"ちょ", "cho"},
	{"にゃ", "nya"}, {"にゅ", "nyu"}, {"にょ", "nyo"},
	{"ひゃ", "hya"}, {"ひゅ", "hyu"}, {"ひょ", "hyo"},
	{"びゃ", "bya"}, {"びゅ", "byu"}, {"びょ", "byo"},
	{"ぴゃ", "pya"}, {"ぴゅ", "pyu"}, {"ぴょ", "pyo"},
	{"みゃ", "mya"}, {"みゅ", "myu"}, {"みょ", "myo"},
	{"りゃ", "rya"}, {"りゅ", "ryu"}, {"りょ", "ryo"},

	{"あ", "a"}, {"い", "i"}, {"う", "u"}, {"え", "e"}, {"お", "o"},
	{"か", "ka"}, {"き", "ki"}, {"く", "ku"}, {"け", "ke"}, {"こ", "ko"},
	{"が", "ga"}, {"ぎ", "gi"}, {"ぐ", "gu"}, {"げ", "ge"}, {"ご", "go"},
	{"さ", "sa"}, {"し", "shi"}, {"す", "su"}, {"せ", "se"}, {"そ", "so"},
	{"ざ", "za"}, {"じ", "ji"}, {"ず", "zu"}, {"ぜ", "ze"}, {"ぞ", "zo"},
	{"た", "ta"}, {"ち", "chi"}, {"つ", "tsu"}, {"て", "te"}, {"と", "to"},
	{"だ", "da"}, {"ぢ", "ji"}, {"づ", "zu"}, {"で", "de"}, {"ど", "do"},
	{"な", "na"}, {"に", "ni"}, {"ぬ", "nu"}, {"ね", "ne"}, {"の", "no"},
	{"は", "ha"}, {"ひ", "hi"}, {"ふ", "fu"}, {"へ", "he"}, {"ほ", "ho"},
	{"ば", "ba"}, {"び", "bi"}, {"ぶ", "bu"}, {"べ", "be"}, {"ぼ", "bo"},
	{"ぱ", "pa"}, {"ぴ", "pi"}, {"ぷ", "pu"}, {"ぺ", "pe"}, {"ぽ", "po"},
	{"ま", "ma"}, {"み", "mi"}, {"む", "mu"}, {"め", "me"}, {"も", "mo"},
	{"や", "ya"}, {"ゆ", "yu"}, {"よ", "yo"},
	{"ら", "ra"}, {"り", "ri"}, {"る", "ru"}, {"れ", "re"}, {"ろ", "ro"},
	{"わ", "wa"}, {"を", "wo"}, {"ん", "n"},

	{"ぁ", "a"}, {"ぃ", "i"}, {"ぅ", "u"}, {"ぇ", "e"}, {"ぉ", "o"},
	{"ゃ", "ya"}, {"ゅ", "yu"}, {"ょ", "yo"},
	{"っ", "xtsu"},
	{"ー", ""}, // long-vowel mark extends the previous mora
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeText collapses fullwidth spaces, newlines and tabs into single
// spaces and trims the result.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "　", " ")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// skipRunes are punctuation with no phonetic content.
var skipRunes = map[rune]bool{
	' ': true, ',': true, '.': true,
	'。': true, '、': true, '！': true, '？': true, '!': true, '?': true,
}

// katakanaToHiragana shifts a katakana rune into the hiragana block.
// Runes outside the katakana range pass through unchanged.
func katakanaToHiragana(r rune) rune {
	if r >= 'ァ' && r <= 'ヶ' {
		return r - 'ァ' + 'ぁ'
	}
	return r
}

// Romanize converts Japanese transcript text into an ordered sequence of
// phoneme units using longest-match kana lookup. Katakana is folded to
// hiragana first; punctuation is dropped; runes the table does not cover
// (kanji without a supplied reading) keep their surface with an empty
// label, which downstream lookup renders as a closed mouth.
func Romanize(text string) []Unit {
	runes := []rune(NormalizeText(text))
	for i, r := range runes {
		runes[i] = katakanaToHiragana(r)
	}

	var units []Unit
	for i := 0; i < len(runes); {
		if skipRunes[runes[i]] {
			i++
			continue
		}
		matched := false
		for _, entry := range kanaRomaji {
			ek := []rune(entry.kana)
			if i+len(ek) > len(runes) {
				continue
			}
			if string(runes[i:i+len(ek)]) == entry.kana {
				if entry.label == "" {
					// Long-vowel mark: stretch the previous unit's surface.
					if n := len(units); n > 0 {
						units[n-1].Surface += entry.kana
					}
				} else {
					units = append(units, Unit{Surface: entry.kana, Label: entry.label})
				}
				i += len(ek)
				matched = true
				break
			}
		}
		if !matched {
			units = append(units, Unit{Surface: string(runes[i])})
			i++
		}
	}
	return units
}

// romajiPatterns is the longest-match-first split order for romanized text.
var romajiPatterns = buildRomajiPatterns()

func buildRomajiPatterns() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range kanaRomaji {
		if e.label != "" && !seen[e.label] {
			seen[e.label] = true
			out = append(out, e.label)
		}
	}
	// Longest first so "shi" wins over "s"+"hi" style misreads.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if len(out[j]) > len(out[i]) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Units converts transcript text of either writing system into phoneme
// units: kana (and mixed) text goes through Romanize, while pure-ASCII text
// is treated as already romanized and split with SplitRomaji.
func Units(text string) []Unit {
	normalized := NormalizeText(text)
	for _, r := range normalized {
		if r > 127 {
			return Romanize(text)
		}
	}
	var units []Unit
	for _, field := range strings.Fields(normalized) {
		for _, label := range SplitRomaji(field) {
			units = append(units, Unit{Surface: label, Label: label})
		}
	}
	return units
}

// SplitRomaji splits an already-romanized string into phoneme labels using
// longest-match lookup, e.g. "konnichiwa" -> ko, n, ni, chi, wa.
// Characters that match nothing become single-character labels.
func SplitRomaji(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	var out []string
	for i := 0; i < len(text); {
		matched := false
		for _, p := range romajiPatterns {
			if strings.HasPrefix(text[i:], p) {
				out = append(out, p)
				i += len(p)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, text[i:i+1])
			i++
		}
	}
	return out
}
