package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jordanlanch/replykit/pkg/subscriptions"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron   *cron.Cron
	subs   *subscriptions.Service
	logger *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(subs *subscriptions.Service, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:   cron.New(),
		subs:   subs,
		logger: logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Hourly: flip overdue subscriptions to expired. Entitlement checks
	// already do this lazily per user; the sweep keeps the stored state
	// honest for users who stop calling.
	_, err := cm.cron.AddFunc("0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := cm.subs.ExpireOverdue(ctx)
		if err != nil {
			cm.logger.Printf("❌ Subscription sweep failed: %v", err)
			return
		}
		if count > 0 {
			cm.logger.Printf("🕐 Subscription sweep expired %d subscriptions", count)
		}
	})
	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured")
	return nil
}

// Start begins running scheduled jobs
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop gracefully stops the cron scheduler
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
}
