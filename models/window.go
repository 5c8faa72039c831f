package models

import (
	"fmt"
	"strings"
)

// TimeWindow is a coarse period scoping both price and transaction queries
type TimeWindow string

const (
	WindowOneWeek    TimeWindow = "1w"
	WindowOneMonth   TimeWindow = "1m"
	WindowThreeMonth TimeWindow = "3m"
	WindowSixMonth   TimeWindow = "6m"
	WindowOneYear    TimeWindow = "1y"
)

// TimeWindows lists the accepted windows in display order
var TimeWindows = []TimeWindow{
	WindowOneWeek,
	WindowOneMonth,
	WindowThreeMonth,
	WindowSixMonth,
	WindowOneYear,
}

var windowLabels = map[TimeWindow]string{
	WindowOneWeek:    "1 Week",
	WindowOneMonth:   "1 Month",
	WindowThreeMonth: "3 Months",
	WindowSixMonth:   "6 Months",
	WindowOneYear:    "1 Year",
}

// ParseTimeWindow validates a window string
func ParseTimeWindow(s string) (TimeWindow, error) {
	w := TimeWindow(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := windowLabels[w]; !ok {
		return "", fmt.Errorf("invalid time window %q", s)
	}
	return w, nil
}

// Label returns the human-readable name of the window
func (w TimeWindow) Label() string {
	if label, ok := windowLabels[w]; ok {
		return label
	}
	return string(w)
}

func (w TimeWindow) String() string {
	return string(w)
}
