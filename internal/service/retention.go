package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunRetentionSweeper 过期记录清理循环
// 按固定周期调用 PurgeExpired，直到 ctx 被取消；随 HTTP 服务优雅退出
func RunRetentionSweeper(ctx context.Context, svc ParticipationService, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("过期记录清理器已启动", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("过期记录清理器已停止")
			return
		case <-ticker.C:
			if _, err := svc.PurgeExpired(ctx); err != nil {
				logger.Error("清理轮次失败", zap.Error(err))
			}
		}
	}
}
