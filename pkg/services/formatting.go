package services

import (
	"strconv"
	"strings"
	"time"
)

// Formatter renders report values for display. Arithmetic stays in float64;
// rounding happens only here.
type Formatter struct {
	Currency  string
	HoursUnit string
}

// Money renders v with two decimals, a comma separator and the currency sign,
// e.g. "1500,00 ₽".
func (f Formatter) Money(v float64) string {
	s := strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
	if f.Currency == "" {
		return s
	}
	return s + " " + f.Currency
}

// Hours renders a row's hours with two decimals, e.g. "2.00".
func (f Formatter) Hours(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// TotalHours renders the total with its unit, e.g. "2.50 ч".
func (f Formatter) TotalHours(v float64) string {
	s := f.Hours(v)
	if f.HoursUnit == "" {
		return s
	}
	return s + " " + f.HoursUnit
}

// Rate renders an hourly rate as money, e.g. "500,00 ₽".
func (f Formatter) Rate(rate int) string {
	return f.Money(float64(rate))
}

// Date converts the ISO prefix of a timestamp to DD.MM.YYYY. Unparseable
// input is returned unchanged.
func (f Formatter) Date(created string) string {
	iso := isoDate(created)
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return created
	}
	return t.Format("02.01.2006")
}

// isoDate returns the 10-character calendar date prefix of a timestamp.
func isoDate(created string) string {
	if len(created) < 10 {
		return created
	}
	return created[:10]
}
