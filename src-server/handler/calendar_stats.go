package handler

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"icsplit/src-server/ical"
	"icsplit/src-server/metric"
	"icsplit/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func CalendarStats(as *utils.AppState) {
	id := "calendar-stats"
	as.AddAppCmdHandler(id, calendarStatsHandler(as))
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:        id,
		Description: "Fetch a calendar from a URL and show what's inside.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "The URL of the calendar",
				Required:    true,
			},
		},
	})
}

func calendarStatsHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		interaction := i.Interaction

		startTimer := time.Now()
		if err := s.InteractionRespond(interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}); err != nil {
			slog.Warn("calendarStatsHandler: can't send defer message", "error", err)
			return nil
		}
		as.MetricChans.DiscordSendMessage <- float64(time.Since(startTimer).Microseconds())

		// #region - parse & validate the URL
		calendarURL, err := func() (string, error) {
			options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, 0)
			for _, opt := range i.ApplicationCommandData().Options {
				options[opt.Name] = opt
			}
			var calendarURL string
			if opt, ok := options["url"]; ok {
				calendarURL = opt.StringValue()
			}
			if _, err := url.ParseRequestURI(calendarURL); err != nil {
				return "", err
			}
			return calendarURL, nil
		}()
		if err != nil {
			msg := err.Error()
			if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
				Content: &msg,
			}); err != nil {
				slog.Warn("calendarStatsHandler: can't send message about invalid URL", "error", err)
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
				slog.Warn("calendarStatsHandler: can't send message about can't fetch calendar", "error", err)
			}
			return nil
		}
		metric.CalendarsParsedTotal.Inc()
		// #endregion

		// #region - compose & send the embed
		stats := icalCalendar.GetStatistics()
		title := utils.CleanupString(icalCalendar.GetName())
		if title == "" {
			title = "Calendar Statistics"
		}

		fields := []*discordgo.MessageEmbedField{
			{
				Name:   "Events",
				Value:  fmt.Sprintf("%d", stats.TotalEvents),
				Inline: true,
			},
		}
		if !stats.EarliestDate.IsZero() {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Earliest",
				Value:  stats.EarliestDate.In(as.Config.GetLocation()).Format("Jan 2, 2006"),
				Inline: true,
			})
		}
		if !stats.LatestDate.IsZero() {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "Latest",
				Value:  stats.LatestDate.In(as.Config.GetLocation()).Format("Jan 2, 2006"),
				Inline: true,
			})
		}
		if len(stats.EventsByYear) > 0 {
			years := make([]int, 0, len(stats.EventsByYear))
			for year := range stats.EventsByYear {
				years = append(years, year)
			}
			sort.Ints(years)
			lines := make([]string, 0, len(years))
			for _, year := range years {
				lines = append(lines, fmt.Sprintf("%d: %d", year, stats.EventsByYear[year]))
			}
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:  "By year",
				Value: strings.Join(lines, "\n"),
			})
		}

		embeds := []*discordgo.MessageEmbed{
			{
				Title: title,
				Footer: &discordgo.MessageEmbedFooter{
					Text: calendarURL,
				},
				Fields: fields,
			},
		}
		startTimer = time.Now()
		if _, err := s.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
			Embeds: &embeds,
		}); err != nil {
			slog.Warn("calendarStatsHandler: can't respond", "error", err)
		}
		as.MetricChans.DiscordSendMessage <- float64(time.Since(startTimer).Microseconds())
		// #endregion

		return nil
	}
}
