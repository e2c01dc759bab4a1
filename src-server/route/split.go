package route

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"icsplit/src-server/metric"
	"icsplit/src-server/model"
	"icsplit/src-server/utils"

	"github.com/google/uuid"
)

func Split(muxer *http.ServeMux, as *utils.AppState) {
	type SplitReqBody struct {
		ID        string  `json:"id"`
		Mode      string  `json:"mode"`
		CleanMode bool    `json:"cleanMode"`
		MaxSizeMB float64 `json:"maxSizeMB"`
		Start     string  `json:"start"`
		End       string  `json:"end"`
		Archive   bool    `json:"archive"`
	}

	type OneFileRespBody struct {
		Name       string `json:"name"`
		Size       int    `json:"size"`
		EventCount int    `json:"eventCount"`
		StartDate  string `json:"startDate,omitempty"`
		EndDate    string `json:"endDate,omitempty"`
		Content    string `json:"content"`
	}

	type SplitRespBody struct {
		JobID string            `json:"jobId"`
		Files []OneFileRespBody `json:"files"`
	}

	// run one split job against a cached upload
	muxer.HandleFunc("POST /api/split", RateLimitMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		// #region | parse request body
		var reqBody SplitReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		uploadedCalendar, ok := as.ParseCache.Get(reqBody.ID)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Upload not found or expired, upload the file again"))
			return
		}
		startDate, err := utils.ParseDateBound(as.When, reqBody.Start)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Can't make sense of the start date: %s", reqBody.Start)))
			return
		}
		endDate, err := utils.ParseDateBound(as.When, reqBody.End)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Can't make sense of the end date: %s", reqBody.End)))
			return
		}
		// #endregion

		// #region | run the split
		opts := utils.SplitOptions{
			Mode:      utils.SplitMode(reqBody.Mode),
			CleanMode: reqBody.CleanMode,
			StartDate: startDate,
			EndDate:   endDate,
			BaseName:  strings.TrimSuffix(uploadedCalendar.FileName, ".ics"),
		}
		if opts.Mode == utils.SplitModeSize {
			maxSizeMB := reqBody.MaxSizeMB
			if maxSizeMB <= 0 {
				maxSizeMB = float64(as.Config.GetDefaultMaxSizeMB())
			}
			opts.MaxSizeBytes = int(maxSizeMB * 1024 * 1024)
		}
		startTimer := time.Now()
		outputFiles, err := utils.SplitCalendar(uploadedCalendar.Calendar, opts)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(err.Error()))
			return
		}
		as.MetricChans.SplitDuration <- float64(time.Since(startTimer).Microseconds())
		metric.SplitJobsTotal.WithLabelValues(string(opts.Mode), "api").Inc()
		metric.SplitOutputsTotal.Add(float64(len(outputFiles)))
		if opts.Mode == utils.SplitModeSize {
			for _, outputFile := range outputFiles {
				if outputFile.Size > opts.MaxSizeBytes {
					metric.SplitOversizeTotal.Inc()
				}
			}
		}
		// #endregion

		// #region | record history, the response doesn't depend on it
		jobID := uuid.NewString()
		jobModel := model.SplitJob{
			ID:           jobID,
			FileName:     uploadedCalendar.FileName,
			Source:       "api",
			Mode:         string(opts.Mode),
			CleanMode:    opts.CleanMode,
			MaxSizeBytes: opts.MaxSizeBytes,
			TotalEvents:  uploadedCalendar.Calendar.GetEventCount(),
			OutputCount:  len(outputFiles),
			CreatedAt:    time.Now().UTC().Unix(),
		}
		outputModels := make([]*model.SplitOutput, 0, len(outputFiles))
		for _, outputFile := range outputFiles {
			outputModels = append(outputModels, &model.SplitOutput{
				JobID:      jobID,
				Name:       outputFile.Name,
				Size:       outputFile.Size,
				EventCount: outputFile.EventCount,
				StartDate:  unixOrZero(outputFile.StartDate),
				EndDate:    unixOrZero(outputFile.EndDate),
			})
		}
		startTimer = time.Now()
		if err := model.RecordSplitJob(r.Context(), as.BunDB, &jobModel, outputModels); err != nil {
			slog.Error("can't record split job", "error", err)
		} else {
			as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())
		}
		// #endregion

		// #region | respond
		if reqBody.Archive {
			zipData, err := utils.BundleZip(outputFiles)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't bundle the zip archive"))
				slog.Error("can't bundle the zip archive", "error", err)
				return
			}
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", utils.SanitizeFileName(opts.BaseName)+".zip"))
			w.WriteHeader(http.StatusOK)
			w.Write(zipData)
			return
		}

		respBody := SplitRespBody{
			JobID: jobID,
			Files: make([]OneFileRespBody, 0, len(outputFiles)),
		}
		for _, outputFile := range outputFiles {
			oneFile := OneFileRespBody{
				Name:       outputFile.Name,
				Size:       outputFile.Size,
				EventCount: outputFile.EventCount,
				Content:    outputFile.Content,
			}
			if !outputFile.StartDate.IsZero() {
				oneFile.StartDate = outputFile.StartDate.Format(time.RFC3339)
			}
			if !outputFile.EndDate.IsZero() {
				oneFile.EndDate = outputFile.EndDate.Format(time.RFC3339)
			}
			respBody.Files = append(respBody.Files, oneFile)
		}
		respBodyJson, err := json.Marshal(respBody)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't marshal response body"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(respBodyJson)
		// #endregion
	}))
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}
