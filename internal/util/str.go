package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatDelta prints a rating difference with an explicit sign, eg. +12, -3, ±0.
func FormatDelta(d int) string {
	switch {
	case d > 0:
		return fmt.Sprintf("+%d", d)
	case d < 0:
		return fmt.Sprintf("%d", d)
	default:
		return "±0"
	}
}

// SplitList splits a comma separated list, dropping empty items.
// eg. "StDb, 91.," -> ["StDb", "91."]
func SplitList(str string) []string {
	parts := strings.Split(str, ",")
	ret := make([]string, 0, len(parts))
	for _, v := range parts {
		if v = strings.TrimSpace(v); v != "" {
			ret = append(ret, v)
		}
	}

	return ret
}

// Datetime is the format to use anywhere we need to output a date+time to an user.
func Datetime(iface interface{}) string {
	return toTime(iface).Format("2006-01-02 15h04 MST")
}

// Date is the format to use anywhere we need to output a date to an user.
func Date(iface interface{}) string {
	return toTime(iface).Format("2006-01-02")
}

func toTime(iface interface{}) time.Time {
	switch iface := iface.(type) {
	case time.Time:
		return iface
	case TimeAsTimestamp:
		return iface.Time()
	default:
		panic(fmt.Errorf("unexpected type %T", iface))
	}
}
