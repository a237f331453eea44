package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoStudents   = errors.New("该宿舍暂无学生")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 当日状态明细导出为 Excel (.xlsx)，供厨房备餐与对账
//   - 数据复用 ParticipationService 的明细合并逻辑（名册 + 记录双向合并）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportDailyStatus 导出宿舍当日状态为 Excel
	ExportDailyStatus(ctx context.Context, hostelID, date string) (*bytes.Buffer, string, error)
}

type exportService struct {
	partSvc ParticipationService
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(partSvc ParticipationService, logger *zap.Logger) ExportService {
	return &exportService{partSvc: partSvc, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ExportDailyStatus — 导出当日状态为 Excel
// ════════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Daily Status"
//   - 列：学生姓名 | 早餐选/耗 | 午餐选/耗 | 晚餐选/耗（耗列标注 qr/manual 来源）
//   - 末行：三餐 选餐数/消费数 汇总
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportDailyStatus(ctx context.Context, hostelID, date string) (*bytes.Buffer, string, error) {
	status, err := s.partSvc.GetDailyStatus(ctx, hostelID, date)
	if err != nil {
		return nil, "", err
	}
	if len(status.List) == 0 {
		return nil, "", ErrExportNoStudents
	}

	counts, err := s.partSvc.GetAggregateCounts(ctx, hostelID, date)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Daily Status"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Breakfast Opted", "Breakfast Consumed", "Lunch Opted", "Lunch Consumed", "Dinner Opted", "Dinner Consumed"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			s.logger.Error("写入表头失败", zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "G", 18)

	for i, row := range status.List {
		values := []interface{}{
			row.StudentName,
			optedMark(row.Breakfast.Selected),
			consumedMark(row.Breakfast.Consumed, row.Breakfast.ConsumedVia),
			optedMark(row.Lunch.Selected),
			consumedMark(row.Lunch.Consumed, row.Lunch.ConsumedVia),
			optedMark(row.Dinner.Selected),
			consumedMark(row.Dinner.Consumed, row.Dinner.ConsumedVia),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				s.logger.Error("写入数据行失败", zap.Error(err))
				return nil, "", ErrExportGenerateFail
			}
		}
	}

	// 汇总行
	summaryRow := len(status.List) + 3
	summary := []interface{}{
		"Total (opted/consumed)",
		counts.Breakfast.OptedCount,
		counts.Breakfast.UsedCount,
		counts.Lunch.OptedCount,
		counts.Lunch.UsedCount,
		counts.Dinner.OptedCount,
		counts.Dinner.UsedCount,
	}
	for j, v := range summary {
		cell, _ := excelize.CoordinatesToCellName(j+1, summaryRow)
		_ = f.SetCellValue(sheet, cell, v)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("序列化 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("daily-status-%s.xlsx", date)
	return buf, filename, nil
}

func optedMark(selected bool) string {
	if selected {
		return "yes"
	}
	return "-"
}

func consumedMark(consumed bool, via string) string {
	if !consumed {
		return "-"
	}
	if via != "" {
		return "yes (" + via + ")"
	}
	return "yes"
}

