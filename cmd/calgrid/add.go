package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/recur"
)

var addFlags = []cli.Flag{
	cli.StringFlag{Name: "title, t", Usage: "event title"},
	cli.StringFlag{Name: "desc", Usage: "event description"},
	cli.StringFlag{Name: "tag", Usage: "event tag"},
	cli.StringFlag{Name: "start, s", Usage: `start timestamp ("2024-01-15 10:00:00")`},
	cli.StringFlag{Name: "end, e", Usage: `end timestamp ("2024-01-15 11:00:00")`},
	cli.StringFlag{Name: "rrule", Usage: "raw recurrence rule (overrides the flags below)"},
	cli.StringFlag{Name: "freq", Usage: "recurrence frequency: DAILY, WEEKLY, MONTHLY or YEARLY"},
	cli.IntFlag{Name: "interval", Usage: "recurrence interval", Value: 1},
	cli.IntFlag{Name: "count", Usage: "number of occurrences"},
	cli.StringFlag{Name: "until", Usage: "last occurrence date (YYYYMMDD)"},
	cli.StringFlag{Name: "byday", Usage: "comma-separated weekdays (MO,WE,FR)"},
	cli.StringFlag{Name: "bymonthday", Usage: "comma-separated month days (1,15)"},
}

func addAction(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	startStr := c.String("start")
	endStr := c.String("end")
	if startStr == "" || endStr == "" {
		return fmt.Errorf("both --start and --end are required")
	}
	start, err := model.ParseStamp(startStr)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := model.ParseStamp(endStr)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("--end must be after --start")
	}

	title := c.String("title")
	if title == "" {
		title = "Untitled Event"
	}

	rule := c.String("rrule")
	if rule == "" && c.String("freq") != "" {
		rule = recur.BuildRuleString(
			strings.ToUpper(c.String("freq")),
			c.Int("interval"),
			c.Int("count"),
			c.String("until"),
			splitList(c.String("byday")),
			splitInts(c.String("bymonthday")),
		)
	}

	if rule == "" {
		ev := model.Event{
			Title:       title,
			Description: c.String("desc"),
			Tag:         c.String("tag"),
			Start:       start,
			End:         end,
		}
		if err := st.AddEvent(&ev); err != nil {
			return err
		}
		appLog.Info("event added", "id", ev.ID, "title", ev.Title)
		fmt.Fprintf(c.App.Writer, "added event %d\n", ev.ID)
		return nil
	}

	events, rid, err := recur.NewSeries(startStr, endStr, title,
		c.String("desc"), c.String("tag"), rule, cfg.MaxInstances)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("rule %q produces no occurrences", rule)
	}
	if err := st.InsertSeries(events); err != nil {
		return err
	}
	appLog.Info("series added", "recurrence_id", rid, "rule", rule, "instances", len(events))
	fmt.Fprintf(c.App.Writer, "added series %s with %d instances\n", rid, len(events))
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

func splitInts(s string) []int {
	var out []int
	for _, p := range splitList(s) {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
