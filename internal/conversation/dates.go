package conversation

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// DateLayout はユーザー向けの日付表示形式（dd/mm/yyyy）。
const DateLayout = "02/01/2006"

var (
	errDateFormat  = errors.New("date does not match dd/mm/yyyy")
	errDateInvalid = errors.New("date is not a valid calendar date")
)

var datePattern = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)

// ParseDate は入力中の最初の日/月/年を解釈する。
// 形式に一致しない場合はerrDateFormat、暦上存在しない日付の場合はerrDateInvalidを返す。
// 2桁の年は20yyとして扱い、3桁の年は無効とする。
func ParseDate(raw string) (time.Time, error) {
	m := datePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, errDateFormat
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	switch len(m[3]) {
	case 2:
		year += 2000
	case 3:
		return time.Time{}, errDateInvalid
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, errDateInvalid
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, errDateInvalid
	}
	return t, nil
}

// FormatDate はdd/mm/yyyy形式で日付を表示する。
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
