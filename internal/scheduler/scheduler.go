package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/service/audit"
	"github.com/mamadbah2/seedledger/pkg/clients/whatsapp"
)

// Scheduler manages scheduled tasks. Its single job is the nightly
// conservation audit; when the sweep reports violations and a messenger is
// configured, the ops group is alerted.
type Scheduler struct {
	cron       *cron.Cron
	auditSvc   *audit.Service
	messenger  whatsapp.Client
	opsGroupID string
	cfg        config.AuditConfig
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler instance. messenger may be nil.
func NewScheduler(cfg config.AuditConfig, auditSvc *audit.Service, messenger whatsapp.Client, opsGroupID string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// robfig/cron/v3 default parser is standard cron (5 fields: min, hour, dom, month, dow).
	c := cron.New()

	return &Scheduler{
		cron:       c,
		auditSvc:   auditSvc,
		messenger:  messenger,
		opsGroupID: opsGroupID,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("audit_schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runAudit); err != nil {
		s.logger.Error("failed to schedule conservation audit", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runAudit() {
	s.logger.Info("running scheduled conservation audit")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	findings, err := s.auditSvc.Run(ctx)
	if err != nil {
		s.logger.Error("conservation audit failed", zap.Error(err))
		return
	}
	if len(findings) == 0 {
		return
	}

	if s.messenger == nil || s.opsGroupID == "" {
		return
	}

	body := fmt.Sprintf("Ledger audit found %d accounting violation(s); check the dispatch logs.", len(findings))
	if err := s.messenger.SendText(ctx, s.opsGroupID, body); err != nil {
		s.logger.Error("failed to send audit alert", zap.Error(err))
	}
}
