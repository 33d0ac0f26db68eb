package textproc

import (
	"iter"
	"unicode/utf8"
)

// Segment: кусок нормализованного текста для одного вызова синтеза.
type Segment struct {
	Index int
	Text  string
}

// Segments: ленивое разбиение текста. All можно обходить сколько угодно раз.
type Segments struct {
	text   string
	maxLen int
	runes  int
}

// Split режет текст на куски ровно по maxLen символов (последний получает остаток).
// Границы слов не учитываются, многобайтовые символы не разрываются.
// maxLen <= 0 означает «без ограничения».
func Split(text string, maxLen int) Segments {
	return Segments{text: text, maxLen: maxLen, runes: utf8.RuneCountInString(text)}
}

func (s Segments) Len() int {
	if s.single() {
		return 1
	}
	return (s.runes + s.maxLen - 1) / s.maxLen
}

func (s Segments) All() iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		if s.single() {
			yield(Segment{Index: 0, Text: s.text})
			return
		}

		start, count, idx := 0, 0, 0
		for i := range s.text {
			if count == s.maxLen {
				if !yield(Segment{Index: idx, Text: s.text[start:i]}) {
					return
				}
				idx++
				start, count = i, 0
			}
			count++
		}
		yield(Segment{Index: idx, Text: s.text[start:]})
	}
}

func (s Segments) Collect() []Segment {
	out := make([]Segment, 0, s.Len())
	for seg := range s.All() {
		out = append(out, seg)
	}
	return out
}

func (s Segments) single() bool {
	return s.maxLen <= 0 || s.runes <= s.maxLen
}
