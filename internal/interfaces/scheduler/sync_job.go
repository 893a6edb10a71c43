package scheduler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"moneta/internal/domain/bank"
	"moneta/internal/domain/banksync"
	"moneta/internal/domain/notification"
)

// UserSyncJob refreshes every linked bank for one user and pushes the
// outcome to the user's registered devices. Banks whose consent has lapsed
// produce a consent-expired push instead of data.
type UserSyncJob struct {
	userID        int64
	syncService   *banksync.Service
	notifications *notification.Service
	logger        zerolog.Logger
}

func NewUserSyncJob(userID int64, syncService *banksync.Service, notifications *notification.Service, logger zerolog.Logger) *UserSyncJob {
	return &UserSyncJob{
		userID:        userID,
		syncService:   syncService,
		notifications: notifications,
		logger:        logger,
	}
}

// Execute runs the sync and reports per-bank outcomes. Push failures are
// logged but never fail the job.
func (j *UserSyncJob) Execute(ctx context.Context) error {
	reports, err := j.syncService.SyncUserBanks(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("sync failed for user %d: %w", j.userID, err)
	}

	var synced, failed int
	for _, report := range reports {
		switch report.State {
		case bank.StateReady:
			accountErrors := 0
			for _, a := range report.Accounts {
				if a.Error != "" {
					accountErrors++
				}
			}
			synced++
			failed += accountErrors

			if j.notifications != nil && accountErrors == 0 {
				if err := j.notifications.NotifySyncComplete(ctx, j.userID, report.BankName); err != nil {
					j.logger.Warn().Err(err).Int64("user_id", j.userID).Str("bank", report.BankName).Msg("sync push failed")
				}
			}

		case bank.StateNeedsConsent:
			if j.notifications != nil {
				if err := j.notifications.NotifyConsentExpired(ctx, j.userID, report.BankName); err != nil {
					j.logger.Warn().Err(err).Int64("user_id", j.userID).Str("bank", report.BankName).Msg("consent push failed")
				}
			}

		case bank.StateError:
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("sync for user %d finished with %d account errors", j.userID, failed)
	}

	j.logger.Info().Int64("user_id", j.userID).Int("banks_synced", synced).Msg("user sync finished")
	return nil
}

func (j *UserSyncJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

func (j *UserSyncJob) Description() string {
	return fmt.Sprintf("bank sync for user %d", j.userID)
}
