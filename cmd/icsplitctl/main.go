package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/urfave/cli"

	"icsplit/src-server/ical"
	"icsplit/src-server/utils"
)

var appVersion = "(devel)"

func main() {
	ctl := cli.App{
		Name:    "icsplitctl",
		Usage:   "Inspect and split iCalendar files without running the server",
		Version: appVersion,
		Commands: []cli.Command{
			statsCmd,
			splitCmd,
		},
	}

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

var statsCmd = cli.Command{
	Name:  "stats",
	Usage: "Print event counts and the date range of one .ics file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "Path to the .ics file",
		},
	},
	Action: calendarStats,
}

func calendarStats(c *cli.Context) error {
	path := c.String("file")
	if path == "" {
		return fmt.Errorf("a --file path is required")
	}
	cal, parseErr := ical.FromIcalFile(path)
	if parseErr != nil {
		return fmt.Errorf("cannot read %s: %s", path, parseErr.Error())
	}

	stats := cal.GetStatistics()
	if name := cal.GetName(); name != "" {
		fmt.Printf("Calendar: %s\n", name)
	}
	fmt.Printf("Events: %d\n", stats.TotalEvents)
	if !stats.EarliestDate.IsZero() {
		fmt.Printf("Earliest: %s\n", stats.EarliestDate.Format("2006-01-02 15:04"))
	}
	if !stats.LatestDate.IsZero() {
		fmt.Printf("Latest: %s\n", stats.LatestDate.Format("2006-01-02 15:04"))
	}
	if len(stats.EventsByYear) > 0 {
		years := make([]int, 0, len(stats.EventsByYear))
		for year := range stats.EventsByYear {
			years = append(years, year)
		}
		sort.Ints(years)
		fmt.Printf("By year:\n")
		for _, year := range years {
			fmt.Printf("  %d: %d\n", year, stats.EventsByYear[year])
		}
	}
	return nil
}

var splitCmd = cli.Command{
	Name:  "split",
	Usage: "Split one .ics file into smaller files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "Path to the .ics file",
		},
		&cli.StringFlag{
			Name:  "by",
			Usage: "How to split, one of: size, year, range",
			Value: "size",
		},
		&cli.Float64Flag{
			Name:  "max-size-mb",
			Usage: "Max size per file in MB, size mode only",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "clean",
			Usage: "Strip noisy properties from events",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "Keep events starting on or after this date, natural language works",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "Keep events starting on or before this date, natural language works",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Directory to write the split files into",
			Value: ".",
		},
		&cli.StringFlag{
			Name:  "zip",
			Usage: "Write everything into one zip archive at this path instead",
		},
	},
	Action: splitCalendar,
}

func splitCalendar(c *cli.Context) error {
	path := c.String("file")
	if path == "" {
		return fmt.Errorf("a --file path is required")
	}
	cal, parseErr := ical.FromIcalFile(path)
	if parseErr != nil {
		return fmt.Errorf("cannot read %s: %s", path, parseErr.Error())
	}

	var mode utils.SplitMode
	switch c.String("by") {
	case "size":
		mode = utils.SplitModeSize
	case "year":
		mode = utils.SplitModeYear
	case "range":
		mode = utils.SplitModeRange
	default:
		return fmt.Errorf("unknown --by value %q, want size, year or range", c.String("by"))
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	startDate, err := utils.ParseDateBound(w, c.String("start"))
	if err != nil {
		return fmt.Errorf("bad --start value: %w", err)
	}
	endDate, err := utils.ParseDateBound(w, c.String("end"))
	if err != nil {
		return fmt.Errorf("bad --end value: %w", err)
	}

	opts := utils.SplitOptions{
		Mode:      mode,
		CleanMode: c.Bool("clean"),
		StartDate: startDate,
		EndDate:   endDate,
		BaseName:  strings.TrimSuffix(filepath.Base(path), ".ics"),
	}
	if mode == utils.SplitModeSize {
		opts.MaxSizeBytes = int(c.Float64("max-size-mb") * 1024 * 1024)
	}

	outputFiles, err := utils.SplitCalendar(cal, opts)
	if err != nil {
		return err
	}
	if len(outputFiles) == 0 {
		fmt.Printf("No events matched, nothing to write\n")
		return nil
	}

	if zipPath := c.String("zip"); zipPath != "" {
		archive, err := utils.BundleZip(outputFiles)
		if err != nil {
			return err
		}
		if err := os.WriteFile(zipPath, archive, 0644); err != nil {
			return fmt.Errorf("cannot write %s: %w", zipPath, err)
		}
		fmt.Printf("%s (%d files)\n", zipPath, len(outputFiles))
		return nil
	}

	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", outDir, err)
	}
	for _, outputFile := range outputFiles {
		target := filepath.Join(outDir, outputFile.Name)
		if err := os.WriteFile(target, []byte(outputFile.Content), 0644); err != nil {
			return fmt.Errorf("cannot write %s: %w", target, err)
		}
		fmt.Printf("%s (%d events, %d bytes)\n", target, outputFile.EventCount, outputFile.Size)
	}
	return nil
}
