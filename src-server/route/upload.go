package route

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"icsplit/src-server/ical"
	"icsplit/src-server/metric"
	"icsplit/src-server/utils"
)

func Upload(muxer *http.ServeMux, as *utils.AppState) {
	type UploadRespBody struct {
		ID           string      `json:"id"`
		FileName     string      `json:"fileName"`
		ByteSize     int         `json:"byteSize"`
		Cached       bool        `json:"cached"`
		TotalEvents  int         `json:"totalEvents"`
		EarliestDate string      `json:"earliestDate,omitempty"`
		LatestDate   string      `json:"latestDate,omitempty"`
		EventsByYear map[int]int `json:"eventsByYear"`
	}

	// parse an uploaded .ics file and stash it for later split calls
	muxer.HandleFunc("POST /api/upload", RateLimitMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		// #region | read the uploaded file
		r.Body = http.MaxBytesReader(w, r.Body, as.Config.GetMaxUploadBytes())
		if err := r.ParseMultipartForm(as.Config.GetMaxUploadBytes()); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			w.Write([]byte("File too large or request body malformed"))
			return
		}
		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a file field"))
			return
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't read uploaded file"))
			return
		}
		// #endregion

		// #region | parse, dedupe against the cache
		id := utils.GetFileHash(content)
		uploadedCalendar, cached := as.ParseCache.Get(id)
		if !cached {
			cal := ical.Parse(string(content))
			metric.CalendarsParsedTotal.Inc()
			uploadedCalendar = &utils.UploadedCalendar{
				ID:         id,
				FileName:   fileHeader.Filename,
				ByteSize:   len(content),
				UploadedAt: time.Now(),
				Calendar:   cal,
			}
			as.ParseCache.Add(id, uploadedCalendar)
		}
		// #endregion

		// #region | respond with the stats
		stats := uploadedCalendar.Calendar.GetStatistics()
		respBody := UploadRespBody{
			ID:           uploadedCalendar.ID,
			FileName:     uploadedCalendar.FileName,
			ByteSize:     uploadedCalendar.ByteSize,
			Cached:       cached,
			TotalEvents:  stats.TotalEvents,
			EventsByYear: stats.EventsByYear,
		}
		if !stats.EarliestDate.IsZero() {
			respBody.EarliestDate = stats.EarliestDate.Format(time.RFC3339)
		}
		if !stats.LatestDate.IsZero() {
			respBody.LatestDate = stats.LatestDate.Format(time.RFC3339)
		}
		respBodyJson, err := json.Marshal(respBody)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't marshal response body"))
			return
		}
		// #endregion

		w.WriteHeader(http.StatusOK)
		w.Write(respBodyJson)
	}))
}
