package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"icsplit/src-server/ical"
	"icsplit/src-server/metric"
	"icsplit/src-server/model"
	"icsplit/src-server/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

func SplitCalendar(as *utils.AppState) {
	id := "split-calendar"
	as.AddAppCmdHandler(id, splitCalendarHandler(as))
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:        id,
		Description: "Fetch a calendar from a URL and split it into smaller files.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "The URL of the calendar to split",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "by",
				Description: "How to split the calendar, default by size",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "size", Value: "size"},
					{Name: "year", Value: "year"},
					{Name: "date range", Value: "range"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "max-size-mb",
				Description: "Per-file size cap in MB for the size mode",
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "clean",
				Description: "Strip vendor noise (X-APPLE-*, ATTACH, ...) from the output",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "start",
				Description: "Only keep events from this date on, natural language works",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "end",
				Description: "Only keep events up to this date, natural language works",
			},
		},
	})
}

func splitCalendarHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		interaction := i.Interaction

		startTimer := time.Now()
		if err := s.InteractionRespond(interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}); err != nil {
			slog.Warn("splitCalendarHandler: can't send defer message", "error", err)
			return nil
		}
		as.MetricChans.DiscordSendMessage <- float64(time.Since(startTimer).Microseconds())

		// #region - parse & validate options
		calendarURL, opts, err := func() (string, utils.SplitOptions, error) {
			options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, 0)
			for _, opt := range i.ApplicationCommandData().Options {
				options[opt.Name] = opt
			}

			var calendarURL string
			if opt, ok := options["url"]; ok {
				calendarURL = opt.StringValue()
			}
			if _, err := url.ParseRequestURI(calendarURL); err != nil {
				return "", utils.SplitOptions{}, err
			}

			opts := utils.SplitOptions{Mode: utils.SplitModeSize}
			if opt, ok := options["by"]; ok {
				opts.Mode = utils.SplitMode(opt.StringValue())
			}
			if opt, ok := options["clean"]; ok {
				opts.CleanMode = opt.BoolValue()
			}
			if opts.Mode == utils.SplitModeSize {
				maxSizeMB := float64(as.Config.GetDefaultMaxSizeMB())
				if opt, ok := options["max-size-mb"]; ok && opt.FloatValue() > 0 {
					maxSizeMB = opt.FloatValue()
				}
				opts.MaxSizeBytes = int(maxSizeMB * 1024 * 1024)
			}
			if opt, ok := options["start"]; ok {
				startDate, err := utils.ParseDateBound(as.When, opt.StringValue())
				if err != nil {
					return "", utils.SplitOptions{}, err
				}
				opts.StartDate = startDate
			}
			if opt, ok := options["end"]; ok {
				endDate, err := utils.ParseDateBound(as.When, opt.StringValue())
				if err != nil {
					return "", utils.SplitOptions{}, err
				}
				opts.EndDate = endDate
			}
			return calendarURL, opts, nil
		}()
		if err != nil {
			msg := err.Error()
			if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
				Content: &msg,
			}); err != nil {
				slog.Warn("splitCalendarHandler: can't send message about invalid options", "error", err)
			}
			return nil
		}
		// #endregion

		// #region - fetch & parse calendar
		icalCalendar, err := func() (*ical.Calendar, error) {
			calCh := make(chan *ical.Calendar, 1)
			errCh := make(chan error, 1)
			go func() {
				iCalCalendar, customErr := ical.FromIcalUrl(calendarURL)
				if customErr != nil {
					errCh <- customErr
					return
				}
				calCh <- iCalCalendar
			}()
			select {
			case <-time.After(time.Minute * 5):
				return nil, fmt.Errorf("timed out waiting for calendar to be fetched & parsed")
			case err := <-errCh:
				return nil, fmt.Errorf("can't fetch calendar: %w", err)
			case icalCal := <-calCh:
				return icalCal, nil
			}
		}()
		if err != nil {
			msg := fmt.Sprintf("Can't fetch calendar.\n```\n%s\n```", err.Error())
			if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
				Content: &msg,
			}); err != nil {
				slog.Warn("splitCalendarHandler: can't send message about can't fetch calendar", "error", err)
			}
			return nil
		}
		metric.CalendarsParsedTotal.Inc()
		// #endregion

		// #region - split
		startTimer = time.Now()
		outputFiles, err := utils.SplitCalendar(icalCalendar, opts)
		if err != nil {
			msg := fmt.Sprintf("Can't split calendar.\n```\n%s\n```", err.Error())
			if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
				Content: &msg,
			}); err != nil {
				slog.Warn("splitCalendarHandler: can't send message about can't split calendar", "error", err)
			}
			return nil
		}
		as.MetricChans.SplitDuration <- float64(time.Since(startTimer).Microseconds())
		metric.SplitJobsTotal.WithLabelValues(string(opts.Mode), "discord").Inc()
		metric.SplitOutputsTotal.Add(float64(len(outputFiles)))

		if len(outputFiles) == 0 {
			msg := "No events matched, nothing to split."
			if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
				Content: &msg,
			}); err != nil {
				slog.Warn("splitCalendarHandler: can't send message about empty result", "error", err)
			}
			return nil
		}
		// #endregion

		// #region - record history, the reply doesn't depend on it
		jobModel := model.SplitJob{
			ID:           uuid.NewString(),
			FileName:     calendarURL,
			Source:       "discord",
			Mode:         string(opts.Mode),
			CleanMode:    opts.CleanMode,
			MaxSizeBytes: opts.MaxSizeBytes,
			TotalEvents:  icalCalendar.GetEventCount(),
			OutputCount:  len(outputFiles),
			CreatedAt:    time.Now().UTC().Unix(),
		}
		outputModels := make([]*model.SplitOutput, 0, len(outputFiles))
		for _, outputFile := range outputFiles {
			outputModels = append(outputModels, &model.SplitOutput{
				JobID:      jobModel.ID,
				Name:       outputFile.Name,
				Size:       outputFile.Size,
				EventCount: outputFile.EventCount,
				StartDate:  unixOrZero(outputFile.StartDate),
				EndDate:    unixOrZero(outputFile.EndDate),
			})
		}
		startTimer = time.Now()
		if err := model.RecordSplitJob(context.Background(), as.BunDB, &jobModel, outputModels); err != nil {
			slog.Error("splitCalendarHandler: can't record split job", "error", err)
		} else {
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())
		}
		// #endregion

		// #region - reply with the files
		files := make([]*discordgo.File, 0, len(outputFiles))
		if len(outputFiles) > 10 {
			// Discord caps attachments at 10 per message
			zipData, err := utils.BundleZip(outputFiles)
			if err != nil {
				msg := "Can't bundle the zip archive."
				if _, err2 := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
					Content: &msg,
				}); err2 != nil {
					slog.Warn("splitCalendarHandler: can't send message about can't bundle zip", "error", err2)
				}
				return fmt.Errorf("splitCalendarHandler: can't bundle zip: %w", err)
			}
			files = append(files, &discordgo.File{
				Name:        utils.SanitizeFileName(icalCalendar.GetName()) + ".zip",
				ContentType: "application/zip",
				Reader:      bytes.NewReader(zipData),
			})
		} else {
			for _, outputFile := range outputFiles {
				files = append(files, &discordgo.File{
					Name:        outputFile.Name,
					ContentType: "text/calendar",
					Reader:      strings.NewReader(outputFile.Content),
				})
			}
		}

		msg := fmt.Sprintf("Split `%s` into `%d` files.", func() string {
			if name := icalCalendar.GetName(); name != "" {
				return name
			}
			return calendarURL
		}(), len(outputFiles))
		startTimer = time.Now()
		if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
			Content: &msg,
			Files:   files,
		}); err != nil {
			slog.Warn("splitCalendarHandler: can't send the split files", "error", err)
		}
		as.MetricChans.DiscordSendMessage <- float64(time.Since(startTimer).Microseconds())
		// #endregion

		return nil
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}
