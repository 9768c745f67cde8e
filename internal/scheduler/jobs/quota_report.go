package jobs

import (
	"context"
	"time"

	"github.com/orunio/climate/backend/internal/quota"
	"github.com/orunio/climate/backend/pkg/logger"
)

// QuotaReportJob logs the tracker state so exhausted providers show up in logs
type QuotaReportJob struct {
	tracker *quota.Tracker
	logger  *logger.Logger
}

// NewQuotaReportJob creates a new quota report job
func NewQuotaReportJob(tracker *quota.Tracker, log *logger.Logger) *QuotaReportJob {
	return &QuotaReportJob{
		tracker: tracker,
		logger:  log.WithField("job", "quota_report"),
	}
}

// Name returns the job name
func (j *QuotaReportJob) Name() string {
	return "quota_report"
}

// Schedule returns the cron schedule (hourly)
func (j *QuotaReportJob) Schedule() string {
	return "0 0 * * * *"
}

// Run logs one line per tracked provider
func (j *QuotaReportJob) Run(ctx context.Context) error {
	now := time.Now()
	for _, st := range j.tracker.Snapshot() {
		log := j.logger.WithProvider(st.Provider).WithFields(map[string]interface{}{
			"remaining": st.Remaining,
			"limit":     st.Limit,
			"calls":     st.Calls,
		})
		if st.Exhausted(now) {
			log.WithField("reset_at", st.ResetAt).Warn("Provider quota exhausted")
			continue
		}
		log.Debug("Provider quota")
	}
	return nil
}
