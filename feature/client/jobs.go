package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"engine-bridge/core/response"

	"go.uber.org/zap"
)

// awaitJob follows an Accepted response until the job behind it finishes.
// The final progress response carries the job's result and is normalized
// like any direct response.
func (c *Client) awaitJob(ctx context.Context, accepted []byte) response.Result {
	var job struct {
		JobID string `json:"jobID"`
	}
	if err := json.Unmarshal(accepted, &job); err != nil || job.JobID == "" {
		return response.Normalize(http.StatusAccepted, accepted, nil)
	}
	c.log.Debug("waiting for long-running job", zap.String("job_id", job.JobID))

	ticker := time.NewTicker(c.jobInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return response.Result{
				Outcome: response.OutcomeError,
				Err:     response.NewError(response.KindCancelled, "cancelled while waiting for job %s", job.JobID),
			}
		case <-ticker.C:
		}

		status, body, err := c.raw(ctx, http.MethodGet, "progress?progress-id="+job.JobID, nil)
		if err != nil {
			return transportFailure(ctx, err)
		}
		if status == http.StatusAccepted {
			continue
		}
		return response.Normalize(status, body, nil)
	}
}
