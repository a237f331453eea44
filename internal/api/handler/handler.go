package handler

import "save-serve/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Participation *ParticipationHandler
	Export        *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Participation: NewParticipationHandler(svc.Participation, svc.Calendar),
		Export:        NewExportHandler(svc.Export),
	}
}

