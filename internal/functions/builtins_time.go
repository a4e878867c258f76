package functions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/funvibe/expreval/internal/values"
)

type timestampAccessor struct {
	name string
	get  func(t time.Time) int64
}

var timestampAccessors = []timestampAccessor{
	{"getFullYear", func(t time.Time) int64 { return int64(t.Year()) }},
	{"getMonth", func(t time.Time) int64 { return int64(t.Month()) - 1 }},
	{"getDayOfYear", func(t time.Time) int64 { return int64(t.YearDay()) - 1 }},
	{"getDayOfMonth", func(t time.Time) int64 { return int64(t.Day()) - 1 }},
	{"getDate", func(t time.Time) int64 { return int64(t.Day()) }},
	{"getDayOfWeek", func(t time.Time) int64 { return int64(t.Weekday()) }},
	{"getHours", func(t time.Time) int64 { return int64(t.Hour()) }},
	{"getMinutes", func(t time.Time) int64 { return int64(t.Minute()) }},
	{"getSeconds", func(t time.Time) int64 { return int64(t.Second()) }},
	{"getMilliseconds", func(t time.Time) int64 { return int64(t.Nanosecond() / int(time.Millisecond)) }},
}

// TimeOverloads returns the timestamp and duration accessors. Timestamp
// accessors take an optional time zone: an IANA name or a "+hh:mm" offset.
func TimeOverloads() []*Overload {
	ts, dur, s := values.TimestampKind, values.DurationKind, values.StringKind
	var overloads []*Overload
	for _, acc := range timestampAccessors {
		get := acc.get
		overloads = append(overloads,
			&Overload{
				ID: "timestamp_" + acc.name, Name: acc.name, ReceiverStyle: true, Args: []values.Kind{ts}, Strict: true,
				Impl: func(args ...values.Value) values.Value {
					return values.Int(get(args[0].(values.Timestamp).Time.UTC()))
				},
			},
			&Overload{
				ID: "timestamp_" + acc.name + "_with_tz", Name: acc.name, ReceiverStyle: true, Args: []values.Kind{ts, s}, Strict: true,
				Impl: func(args ...values.Value) values.Value {
					loc, err := location(string(args[1].(values.String)))
					if err != nil {
						return values.NewError(values.ErrInvalidArgument, "%v", err)
					}
					return values.Int(get(args[0].(values.Timestamp).Time.In(loc)))
				},
			},
		)
	}
	durationAccessors := []struct {
		name string
		unit time.Duration
	}{
		{"getHours", time.Hour},
		{"getMinutes", time.Minute},
		{"getSeconds", time.Second},
		{"getMilliseconds", time.Millisecond},
	}
	for _, acc := range durationAccessors {
		unit := acc.unit
		overloads = append(overloads, &Overload{
			ID: "duration_" + acc.name, Name: acc.name, ReceiverStyle: true, Args: []values.Kind{dur}, Strict: true,
			Impl: func(args ...values.Value) values.Value {
				return values.Int(time.Duration(args[0].(values.Duration)) / unit)
			},
		})
	}
	return overloads
}

func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	if tz[0] == '+' || tz[0] == '-' {
		hh, mm, ok := strings.Cut(tz[1:], ":")
		h, err1 := strconv.Atoi(hh)
		m, err2 := strconv.Atoi(mm)
		if !ok || err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid time zone offset %q", tz)
		}
		offset := h*3600 + m*60
		if tz[0] == '-' {
			offset = -offset
		}
		return time.FixedZone(tz, offset), nil
	}
	return time.LoadLocation(tz)
}
