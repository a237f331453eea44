package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"save-serve/backend/internal/service"
	"save-serve/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDailyStatus 导出宿舍当日状态为 Excel
// GET /api/v1/export/daily-status?date=2026-09-01
func (h *ExportHandler) ExportDailyStatus(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, 20001, "date 不能为空")
		return
	}

	hostelID, ok := MustGetHostelID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportDailyStatus(c.Request.Context(), hostelID, date)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 20004, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrExportNoStudents):
		response.NotFound(c, 24001, "该宿舍暂无学生")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
