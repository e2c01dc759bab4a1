package route

import (
	"encoding/json"
	"net/http"
	"time"

	"icsplit/src-server/model"
	"icsplit/src-server/utils"
)

func History(muxer *http.ServeMux, as *utils.AppState) {
	type OneOutputRespBody struct {
		Name             string `json:"name"`
		Size             int    `json:"size"`
		EventCount       int    `json:"eventCount"`
		StartDateUnixUTC int64  `json:"startDateUnixUTC,omitempty"`
		EndDateUnixUTC   int64  `json:"endDateUnixUTC,omitempty"`
	}

	type OneJobRespBody struct {
		ID               string              `json:"id"`
		FileName         string              `json:"fileName"`
		Source           string              `json:"source"`
		Mode             string              `json:"mode"`
		CleanMode        bool                `json:"cleanMode"`
		MaxSizeBytes     int                 `json:"maxSizeBytes,omitempty"`
		TotalEvents      int                 `json:"totalEvents"`
		OutputCount      int                 `json:"outputCount"`
		CreatedAtUnixUTC int64               `json:"createdAtUnixUTC"`
		Outputs          []OneOutputRespBody `json:"outputs"`
	}

	// most recent split jobs first
	muxer.HandleFunc("GET /api/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		startTimer := time.Now()
		jobModels := make([]model.SplitJob, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&jobModels).
			Relation("Outputs").
			Order("created_at DESC").
			Limit(50).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get split history"))
			return
		}
		as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

		respBody := make([]OneJobRespBody, 0, len(jobModels))
		for _, jobModel := range jobModels {
			oneJob := OneJobRespBody{
				ID:               jobModel.ID,
				FileName:         jobModel.FileName,
				Source:           jobModel.Source,
				Mode:             jobModel.Mode,
				CleanMode:        jobModel.CleanMode,
				MaxSizeBytes:     jobModel.MaxSizeBytes,
				TotalEvents:      jobModel.TotalEvents,
				OutputCount:      jobModel.OutputCount,
				CreatedAtUnixUTC: jobModel.CreatedAt,
				Outputs:          make([]OneOutputRespBody, 0, len(jobModel.Outputs)),
			}
			for _, outputModel := range jobModel.Outputs {
				oneJob.Outputs = append(oneJob.Outputs, OneOutputRespBody{
					Name:             outputModel.Name,
					Size:             outputModel.Size,
					EventCount:       outputModel.EventCount,
					StartDateUnixUTC: outputModel.StartDate,
					EndDateUnixUTC:   outputModel.EndDate,
				})
			}
			respBody = append(respBody, oneJob)
		}
		respBodyJson, err := json.Marshal(respBody)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't marshal response body"))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write(respBodyJson)
	})
}
