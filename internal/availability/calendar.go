// Package availability computes offerable appointment slots from business
// hours, blocked dates, service durations, and the existing appointment
// ledger. All calendar math here is pure integer arithmetic on
// (year, month, day) triples so the host timezone can never influence a
// result.
package availability

import (
	"fmt"
	"regexp"
	"strconv"
)

// Weekday names indexed Sunday..Saturday, matching the business_hours table.
var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// Date is a plain calendar date with no timezone attached.
type Date struct {
	Year  int
	Month int
	Day   int
}

var dateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseDate parses a strict YYYY-MM-DD string into a Date, rejecting
// impossible calendar dates such as 2026-02-30.
func ParseDate(s string) (Date, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("availability: malformed date %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if year < 1 || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("availability: date %q out of range", s)
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}, fmt.Errorf("availability: date %q is not a real calendar date", s)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Weekday returns the weekday name for the date using Sakamoto's method.
// Pure (year, month, day) arithmetic; constructing a timestamp here would
// silently shift the weekday with the process timezone.
func (d Date) Weekday() string {
	t := [12]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}
	y := d.Year
	if d.Month < 3 {
		y--
	}
	w := (y + y/4 - y/100 + y/400 + t[d.Month-1] + d.Day) % 7
	return weekdayNames[w]
}

// Ordinal returns the number of days since 1970-01-01, negative for earlier
// dates. Used for booking-window arithmetic and "before today" comparisons.
func (d Date) Ordinal() int {
	y := d.Year
	if d.Month <= 2 {
		y--
	}
	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400
	m := d.Month
	var adj int
	if m > 2 {
		adj = m - 3
	} else {
		adj = m + 9
	}
	doy := (153*adj+2)/5 + d.Day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Ordinal() < other.Ordinal()
}

// IsLeapYear reports whether the year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}
