package services

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AmountSpeller renders a monetary amount as words.
type AmountSpeller interface {
	Spell(amount float64) string
}

// RubleSpeller spells amounts in Russian rubles and kopeks, e.g.
// 1500 → "Одна тысяча пятьсот рублей ноль копеек".
type RubleSpeller struct {
	upper cases.Caser
}

// NewRubleSpeller creates a RubleSpeller.
func NewRubleSpeller() *RubleSpeller {
	return &RubleSpeller{upper: cases.Upper(language.Russian)}
}

var _ AmountSpeller = (*RubleSpeller)(nil)

type gender int

const (
	masculine gender = iota
	feminine
)

// noun holds the three Russian plural forms: 1, 2–4 and 5+.
type noun struct {
	one, few, many string
	gender         gender
}

var (
	rubleNoun    = noun{"рубль", "рубля", "рублей", masculine}
	kopekNoun    = noun{"копейка", "копейки", "копеек", feminine}
	thousandNoun = noun{"тысяча", "тысячи", "тысяч", feminine}
	millionNoun  = noun{"миллион", "миллиона", "миллионов", masculine}
	billionNoun  = noun{"миллиард", "миллиарда", "миллиардов", masculine}
)

var (
	unitsMasculine = [...]string{"", "один", "два", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	unitsFeminine  = [...]string{"", "одна", "две", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	teens          = [...]string{"десять", "одиннадцать", "двенадцать", "тринадцать", "четырнадцать",
		"пятнадцать", "шестнадцать", "семнадцать", "восемнадцать", "девятнадцать"}
	tens = [...]string{"", "", "двадцать", "тридцать", "сорок", "пятьдесят",
		"шестьдесят", "семьдесят", "восемьдесят", "девяносто"}
	hundreds = [...]string{"", "сто", "двести", "триста", "четыреста", "пятьсот",
		"шестьсот", "семьсот", "восемьсот", "девятьсот"}
)

// Spell returns the amount in words with the first letter capitalized.
func (s *RubleSpeller) Spell(amount float64) string {
	total := int64(math.Round(math.Abs(amount) * 100))
	rubles, kopeks := total/100, total%100

	var words []string
	if amount < 0 && total > 0 {
		words = append(words, "минус")
	}
	words = append(words, spellInt(rubles, rubleNoun)...)
	words = append(words, spellInt(kopeks, kopekNoun)...)

	return s.capitalize(strings.Join(words, " "))
}

func (s *RubleSpeller) capitalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return s.upper.String(string(r)) + text[size:]
}

// spellInt spells n followed by the correctly declined unit noun.
func spellInt(n int64, unit noun) []string {
	if n == 0 {
		return []string{"ноль", unit.many}
	}
	return append(spellNumber(n, unit.gender), morph(n, unit))
}

var scales = []struct {
	size int64
	noun noun
}{
	{1_000_000_000, billionNoun},
	{1_000_000, millionNoun},
	{1_000, thousandNoun},
}

// spellNumber spells a positive n without a unit noun.
func spellNumber(n int64, g gender) []string {
	var words []string
	for _, sc := range scales {
		group := n / sc.size
		if group == 0 {
			continue
		}
		n %= sc.size
		if group >= 1000 {
			words = append(words, spellNumber(group, sc.noun.gender)...)
		} else {
			words = append(words, spellBelowThousand(group, sc.noun.gender)...)
		}
		words = append(words, morph(group, sc.noun))
	}
	if n > 0 {
		words = append(words, spellBelowThousand(n, g)...)
	}
	return words
}

func spellBelowThousand(n int64, g gender) []string {
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, hundreds[h])
	}
	rest := n % 100
	switch {
	case rest >= 10 && rest < 20:
		words = append(words, teens[rest-10])
		return words
	case rest >= 20:
		words = append(words, tens[rest/10])
	}
	if u := rest % 10; u > 0 {
		if g == feminine {
			words = append(words, unitsFeminine[u])
		} else {
			words = append(words, unitsMasculine[u])
		}
	}
	return words
}

// morph picks the plural form of nn for n.
func morph(n int64, nn noun) string {
	n %= 100
	if n > 10 && n < 20 {
		return nn.many
	}
	switch n % 10 {
	case 1:
		return nn.one
	case 2, 3, 4:
		return nn.few
	default:
		return nn.many
	}
}
