package scheduler

import (
	"context"
	"time"

	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/robfig/cron/v3"
)

// staleAfter 웹훅을 이만큼 기다린 뒤에야 폴링 대사를 시작한다
const staleAfter = 10 * time.Minute

// PaymentSyncScheduler 결론이 나지 않은 결제/환불 폴링 대사 스케줄러
type PaymentSyncScheduler struct {
	cron           *cron.Cron
	paymentService service.PaymentService
	refundService  service.RefundService
	cfg            config.PaymentConfig
}

// NewPaymentSyncScheduler 결제 대사 스케줄러 생성
func NewPaymentSyncScheduler(
	paymentService service.PaymentService,
	refundService service.RefundService,
	cfg config.PaymentConfig,
) *PaymentSyncScheduler {
	return &PaymentSyncScheduler{
		cron:           cron.New(),
		paymentService: paymentService,
		refundService:  refundService,
		cfg:            cfg,
	}
}

// Start 스케줄러 시작
func (s *PaymentSyncScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.SyncSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		logger.Debug("Starting scheduled payment reconciliation", nil)

		synced, err := s.paymentService.SyncPending(ctx, staleAfter, s.cfg.SyncBatch)
		if err != nil {
			logger.Error("Payment reconciliation failed", err)
		} else if synced > 0 {
			logger.Info("Payment reconciliation completed", map[string]interface{}{
				"synced": synced,
			})
		}

		refunded, err := s.refundService.SyncOpen(ctx, staleAfter, s.cfg.SyncBatch)
		if err != nil {
			logger.Error("Refund reconciliation failed", err)
		} else if refunded > 0 {
			logger.Info("Refund reconciliation completed", map[string]interface{}{
				"synced": refunded,
			})
		}
	})

	if err != nil {
		logger.Error("Failed to add cron job for payment reconciliation", err)
		return err
	}

	s.cron.Start()
	logger.Info("Payment sync scheduler started successfully", map[string]interface{}{
		"spec": s.cfg.SyncSpec,
	})

	return nil
}

// Stop 스케줄러 중지
func (s *PaymentSyncScheduler) Stop() {
	logger.Info("Stopping payment sync scheduler...", nil)
	s.cron.Stop()
	logger.Info("Payment sync scheduler stopped", nil)
}
