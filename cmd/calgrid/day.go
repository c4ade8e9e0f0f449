package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli"

	"calgrid/internal/layout"
)

var dayFlags = []cli.Flag{
	cli.StringFlag{Name: "date, d", Usage: "day to show (YYYY-MM-DD, default today)"},
}

func dayAction(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	day := time.Now().In(cfg.Location())
	if d := c.String("date"); d != "" {
		day, err = time.Parse("2006-01-02", d)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	events, err := st.EventsForDay(day)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintf(c.App.Writer, "no events on %s\n", day.Format("2006-01-02"))
		return nil
	}

	fmt.Fprintf(c.App.Writer, "%s\n", day.Format("Monday, 2006-01-02"))
	for _, p := range layout.Columns(events) {
		marker := ""
		if p.RecurrenceID != "" {
			marker = " ↻"
		}
		fmt.Fprintf(c.App.Writer, "  %s–%s  [%d/%d]  %s%s  (%s %s)\n",
			p.Start.Format("15:04"), p.End.Format("15:04"),
			p.Column+1, p.Total,
			p.Title, marker,
			p.Tag, cfg.TagColor(p.Tag),
		)
	}
	return nil
}
