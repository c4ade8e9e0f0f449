package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli"

	"calgrid/internal/config"
	"calgrid/internal/ics"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/recur"
	"calgrid/internal/store"
)

func importAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("usage: calgrid import <file.ics>")
	}

	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decoded, err := ics.Decode(body, ics.DecodeConfig{
		Location:        cfg.Location(),
		AllDayStartHour: cfg.AllDayStartHour,
		AllDayEndHour:   cfg.AllDayEndHour,
	})
	if err != nil {
		return err
	}

	var batch []model.Event
	for _, ev := range decoded {
		if ev.Role == model.RoleMaster && ev.RRule != "" {
			series, err := expandMaster(ev, cfg.MaxInstances)
			if err != nil {
				appLog.Error("skipping series with bad rule", err, "title", ev.Title, "rrule", ev.RRule)
				continue
			}
			batch = append(batch, series...)
			continue
		}
		batch = append(batch, ev)
	}

	n, err := st.ImportEvents(batch)
	if err != nil {
		return err
	}
	appLog.Info("import finished", "file", path, "vevents", len(decoded), "rows", n)
	fmt.Fprintf(c.App.Writer, "imported %d events from %s\n", n, path)
	return nil
}

// expandMaster turns a decoded series master into the full stored batch,
// keeping the identifiers the decoder assigned.
func expandMaster(master model.Event, maxInstances int) ([]model.Event, error) {
	instances, err := recur.Expand(
		model.FormatStamp(master.Start), model.FormatStamp(master.End),
		master.RRule, maxInstances,
	)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return []model.Event{master}, nil
	}

	events := make([]model.Event, 0, len(instances))
	for i, inst := range instances {
		start, _ := model.ParseStamp(inst.Start)
		end, _ := model.ParseStamp(inst.End)

		ev := model.Event{
			Title:        master.Title,
			Description:  master.Description,
			Tag:          master.Tag,
			Start:        start,
			End:          end,
			RecurrenceID: master.RecurrenceID,
			Role:         model.RoleInstance,
		}
		if i == 0 {
			ev.Role = model.RoleMaster
			ev.RRule = master.RRule
			ev.OriginalStart = master.OriginalStart
		}
		events = append(events, ev)
	}
	return events, nil
}

var exportFlags = []cli.Flag{
	cli.StringFlag{Name: "out, o", Usage: "output file (default stdout)"},
	cli.StringFlag{Name: "from", Usage: "range start (YYYY-MM-DD)"},
	cli.StringFlag{Name: "to", Usage: "range end (YYYY-MM-DD)"},
}

func exportAction(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	from, err := parseDayFlag(c.String("from"))
	if err != nil {
		return fmt.Errorf("parse --from: %w", err)
	}
	to, err := parseDayFlag(c.String("to"))
	if err != nil {
		return fmt.Errorf("parse --to: %w", err)
	}

	body, n, err := exportCalendar(st, cfg, from, to)
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		fmt.Fprint(c.App.Writer, body)
		return nil
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return err
	}
	appLog.Info("export finished", "file", out, "events", n)
	fmt.Fprintf(c.App.Writer, "exported %d events to %s\n", n, out)
	return nil
}

func parseDayFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func exportCalendar(st *store.Store, cfg *config.Config, from, to time.Time) (string, int, error) {
	var (
		events []model.Event
		err    error
	)
	if !from.IsZero() && !to.IsZero() {
		// The query window's end is exclusive, the --to day is inclusive.
		events, err = st.EventsOverlapping(from, to.AddDate(0, 0, 1))
	} else {
		events, err = st.AllEvents()
	}
	if err != nil {
		return "", 0, err
	}

	body := ics.Encode(events, ics.EncodeConfig{
		CalendarName: cfg.CalendarName,
		RangeStart:   from,
		RangeEnd:     to,
	})
	return body, len(events), nil
}

var watchFlags = []cli.Flag{
	cli.StringFlag{Name: "out, o", Usage: "output file", Value: "calendar.ics"},
}

// watchAction re-exports the calendar on the configured cron schedule until
// interrupted. An export also runs immediately on startup so the output
// file exists before the first tick.
func watchAction(c *cli.Context) error {
	cfg, st, err := setup(c)
	if err != nil {
		return err
	}
	defer st.Close()

	out := c.String("out")
	export := func() {
		body, n, err := exportCalendar(st, cfg, time.Time{}, time.Time{})
		if err != nil {
			appLog.Error("scheduled export failed", err, "file", out)
			return
		}
		if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
			appLog.Error("scheduled export write failed", err, "file", out)
			return
		}
		appLog.Info("calendar exported", "file", out, "events", n)
	}

	export()

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.ExportCron, export); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.ExportCron, err)
	}
	sched.Start()
	appLog.Info("watch started", "schedule", cfg.ExportCron, "file", out)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLog.Info("signal received, shutting down", "signal", sig.String())

	<-sched.Stop().Done()
	return nil
}
