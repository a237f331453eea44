package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"save-serve/backend/internal/dto"
	"save-serve/backend/internal/service"
	pkgerrors "save-serve/backend/pkg/errors"
	"save-serve/backend/pkg/response"
)

// ParticipationHandler 就餐参与模块 HTTP 处理器
type ParticipationHandler struct {
	partSvc service.ParticipationService
	calSvc  service.CalendarService
}

// NewParticipationHandler 创建 ParticipationHandler
func NewParticipationHandler(partSvc service.ParticipationService, calSvc service.CalendarService) *ParticipationHandler {
	return &ParticipationHandler{partSvc: partSvc, calSvc: calSvc}
}

// SubmitSelection 学生选餐提交
// POST /api/v1/participation/selections
func (h *ParticipationHandler) SubmitSelection(c *gin.Context) {
	var req dto.SubmitSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}
	hostelID, ok := MustGetHostelID(c)
	if !ok {
		return
	}

	result, err := h.partSvc.SubmitSelection(c.Request.Context(), &req, studentID, hostelID)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.Created(c, result)
}

// Redeem 扫码核销
// POST /api/v1/participation/redeem
func (h *ParticipationHandler) Redeem(c *gin.Context) {
	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	result, err := h.partSvc.Redeem(c.Request.Context(), req.Token)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.OK(c, result)
}

// GetMyRecord 学生查看自己当日记录
// GET /api/v1/participation/me?date=2026-09-01
func (h *ParticipationHandler) GetMyRecord(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, 20001, "date 不能为空")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	record, err := h.partSvc.GetMyRecord(c.Request.Context(), studentID, date)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.OK(c, record)
}

// GetMyCalendar 学生餐次日历订阅（iCalendar）
// GET /api/v1/participation/me/calendar?from=2026-09-01&to=2026-09-30
func (h *ParticipationHandler) GetMyCalendar(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		response.BadRequest(c, 20001, "from/to 不能为空")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	ics, err := h.calSvc.BuildMyMealCalendar(c.Request.Context(), studentID, from, to)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="meals.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// GetDailyStatus 宿舍当日状态明细
// GET /api/v1/participation/status?date=2026-09-01
func (h *ParticipationHandler) GetDailyStatus(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, 20001, "date 不能为空")
		return
	}

	hostelID, ok := MustGetHostelID(c)
	if !ok {
		return
	}

	status, err := h.partSvc.GetDailyStatus(c.Request.Context(), hostelID, date)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.OK(c, status)
}

// GetAggregateCounts 宿舍当日三餐汇总
// GET /api/v1/participation/counts?date=2026-09-01
func (h *ParticipationHandler) GetAggregateCounts(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, 20001, "date 不能为空")
		return
	}

	hostelID, ok := MustGetHostelID(c)
	if !ok {
		return
	}

	counts, err := h.partSvc.GetAggregateCounts(c.Request.Context(), hostelID, date)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.OK(c, counts)
}

// GetWeeklyMenu 宿舍周菜单只读视图
// GET /api/v1/participation/menu
func (h *ParticipationHandler) GetWeeklyMenu(c *gin.Context) {
	hostelID, ok := MustGetHostelID(c)
	if !ok {
		return
	}

	menu, err := h.partSvc.GetWeeklyMenu(c.Request.Context(), hostelID)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.OK(c, menu)
}

// BulkSetConsumed 店主批量人工修正消费状态
// PUT /api/v1/participation/consumed
func (h *ParticipationHandler) BulkSetConsumed(c *gin.Context) {
	var req dto.BulkSetConsumedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	hostelID, ok := MustGetHostelID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.partSvc.BulkSetConsumed(c.Request.Context(), hostelID, &req, callerID)
	if err != nil {
		h.handleParticipationError(c, err)
		return
	}

	response.OK(c, result)
}

// SweepExpired 手动触发过期记录清理
// POST /api/v1/admin/retention/sweep
func (h *ParticipationHandler) SweepExpired(c *gin.Context) {
	deleted, err := h.partSvc.PurgeExpired(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.SweepResponse{Deleted: deleted})
}

// handleParticipationError 统一业务错误映射
func (h *ParticipationHandler) handleParticipationError(c *gin.Context, err error) {
	var used *service.TokenUsedError
	switch {
	case errors.As(err, &used):
		// 重复核销：409 并携带既有核销的审计上下文
		response.ConflictWithData(c, 22002, "二维码已被使用", dto.TokenUsedData{
			StudentName: used.StudentName,
			MealType:    string(used.MealType),
			UsedAt:      used.UsedAt.Format(time.RFC3339),
		})
	case errors.Is(err, service.ErrInvalidMealType):
		response.BadRequest(c, 20002, "无效的餐次类型")
	case errors.Is(err, service.ErrInvalidDayOfWeek):
		response.BadRequest(c, 20003, "星期标签无效或与日期不符")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 20004, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrMealNotOnMenu):
		response.BadRequest(c, 20005, "菜单中不存在该餐次")
	case errors.Is(err, service.ErrCalendarRangeInvalid):
		response.BadRequest(c, 20007, "日期区间无效")
	case errors.Is(err, service.ErrCalendarRangeTooBig):
		response.BadRequest(c, 20008, "日期区间过大")
	case errors.Is(err, service.ErrIdentityMismatch):
		response.Forbidden(c, 20006, "学生与宿舍归属不匹配")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21001, "学生不存在")
	case errors.Is(err, service.ErrHostelNotFound):
		response.NotFound(c, 21003, "宿舍不存在")
	case errors.Is(err, service.ErrTokenNotFound):
		response.NotFound(c, 21002, "无效的二维码")
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Conflict(c, 22001, "该餐次已提交过，不可重复选餐")
	case errors.Is(err, service.ErrRedemptionExpired):
		response.Conflict(c, 22003, "该餐次核销已截止")
	case errors.Is(err, pkgerrors.ErrConcurrentUpdate):
		response.Conflict(c, 22004, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/participation_handler.go
