package timeutil

import "time"

const (
	DateLayout     = "2006-01-02"
	FileDateLayout = "20060102"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Stamp captures one instant in the three formats used across storage,
// reporting and the API.
type Stamp struct {
	Date     string
	FileDate string
	DateTime string
}

func NowStamp() Stamp {
	return StampAt(time.Now())
}

func StampAt(t time.Time) Stamp {
	return Stamp{
		Date:     t.Format(DateLayout),
		FileDate: t.Format(FileDateLayout),
		DateTime: t.Format(DateTimeLayout),
	}
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ParseMonth accepts "2006-01" and returns the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	return time.Parse("2006-01", s)
}
