package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

var digitRun = regexp.MustCompile(`\p{Nd}+`)

// NormalizeNumerals заменяет каждую последовательность цифр русскими словами:
// 1 -> один, 23 -> двадцать три. Цифры любой письменности (２０２３, ٣) читаются так же.
// Остальной текст не трогает.
func NormalizeNumerals(text string) string {
	return digitRun.ReplaceAllStringFunc(text, func(run string) string {
		return SpellNumber(asciiDigits(run))
	})
}

// asciiDigits переводит десятичные цифры Unicode в 0-9. Цифры Nd идут блоками
// по десять подряд, значение цифры равно её смещению от начала блока.
func asciiDigits(run string) string {
	var b strings.Builder
	b.Grow(len(run))
	for _, r := range run {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		zero := r
		for unicode.IsDigit(zero - 1) {
			zero--
		}
		b.WriteByte(byte('0' + (r-zero)%10))
	}
	return b.String()
}

var (
	units      = [...]string{"", "один", "два", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	unitsFem   = [...]string{"", "одна", "две"}
	teens      = [...]string{"десять", "одиннадцать", "двенадцать", "тринадцать", "четырнадцать", "пятнадцать", "шестнадцать", "семнадцать", "восемнадцать", "девятнадцать"}
	tens       = [...]string{"", "", "двадцать", "тридцать", "сорок", "пятьдесят", "шестьдесят", "семьдесят", "восемьдесят", "девяносто"}
	hundreds   = [...]string{"", "сто", "двести", "триста", "четыреста", "пятьсот", "шестьсот", "семьсот", "восемьсот", "девятьсот"}
	digitNames = [...]string{"ноль", "один", "два", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	scaleForms = [...][3]string{
		{},
		{"тысяча", "тысячи", "тысяч"},
		{"миллион", "миллиона", "миллионов"},
		{"миллиард", "миллиарда", "миллиардов"},
		{"триллион", "триллиона", "триллионов"},
		{"квадриллион", "квадриллиона", "квадриллионов"},
		{"квинтиллион", "квинтиллиона", "квинтиллионов"},
		{"секстиллион", "секстиллиона", "секстиллионов"},
		{"септиллион", "септиллиона", "септиллионов"},
		{"октиллион", "октиллиона", "октиллионов"},
		{"нониллион", "нониллиона", "нониллионов"},
		{"дециллион", "дециллиона", "дециллионов"},
	}
)

// SpellNumber читает строку ASCII-цифр как число. Ведущие нули отбрасываются;
// числа длиннее дециллионов читаются по цифрам.
func SpellNumber(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		if digits == "" {
			return ""
		}
		return digitNames[0]
	}
	if len(trimmed) > 3*len(scaleForms) {
		words := make([]string, 0, len(trimmed))
		for _, d := range trimmed {
			words = append(words, digitNames[d-'0'])
		}
		return strings.Join(words, " ")
	}

	groups := triads(trimmed)
	var words []string
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			continue
		}
		words = append(words, spellTriad(g, i == 1)...)
		if i > 0 {
			words = append(words, scaleForms[i][pluralForm(g)])
		}
	}
	return strings.Join(words, " ")
}

// triads режет число на тройки справа налево: groups[0] единицы, groups[1] тысячи и т.д.
func triads(digits string) []int {
	var groups []int
	for end := len(digits); end > 0; end -= 3 {
		start := max(end-3, 0)
		n := 0
		for _, d := range digits[start:end] {
			n = n*10 + int(d-'0')
		}
		groups = append(groups, n)
	}
	return groups
}

func spellTriad(n int, feminine bool) []string {
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, hundreds[h])
	}
	rest := n % 100
	if rest >= 10 && rest < 20 {
		return append(words, teens[rest-10])
	}
	if t := rest / 10; t >= 2 {
		words = append(words, tens[t])
	}
	if u := rest % 10; u > 0 {
		if feminine && u <= 2 {
			words = append(words, unitsFem[u])
		} else {
			words = append(words, units[u])
		}
	}
	return words
}

// pluralForm: 0 это "тысяча", 1 это "тысячи", 2 это "тысяч".
func pluralForm(n int) int {
	if n%100 >= 11 && n%100 <= 19 {
		return 2
	}
	switch n % 10 {
	case 1:
		return 0
	case 2, 3, 4:
		return 1
	}
	return 2
}
