package scheduler

import (
	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/robfig/cron/v3"
)

// OrderTimeoutScheduler 결제 대기 시간을 넘긴 주문 자동 취소 스케줄러
type OrderTimeoutScheduler struct {
	cron         *cron.Cron
	orderService service.OrderService
	cfg          config.OrderTimeoutConfig
}

// NewOrderTimeoutScheduler 주문 타임아웃 스케줄러 생성
func NewOrderTimeoutScheduler(orderService service.OrderService, cfg config.OrderTimeoutConfig) *OrderTimeoutScheduler {
	return &OrderTimeoutScheduler{
		cron:         cron.New(),
		orderService: orderService,
		cfg:          cfg,
	}
}

// Start 스케줄러 시작
func (s *OrderTimeoutScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.SweepSpec, func() {
		logger.Debug("Starting scheduled order timeout sweep", nil)

		cancelled, err := s.orderService.RecoverTimeouts(s.cfg.TTL, s.cfg.BatchSize, s.cfg.CancelReason)
		if err != nil {
			logger.Error("Order timeout sweep failed", err)
			return
		}

		if cancelled > 0 {
			logger.Info("Order timeout sweep completed", map[string]interface{}{
				"cancelled": cancelled,
			})
		}
	})

	if err != nil {
		logger.Error("Failed to add cron job for order timeout sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Order timeout scheduler started successfully", map[string]interface{}{
		"spec": s.cfg.SweepSpec,
		"ttl":  s.cfg.TTL.String(),
	})

	return nil
}

// Stop 스케줄러 중지
func (s *OrderTimeoutScheduler) Stop() {
	logger.Info("Stopping order timeout scheduler...", nil)
	s.cron.Stop()
	logger.Info("Order timeout scheduler stopped", nil)
}
