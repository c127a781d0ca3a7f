package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/coachpulse/internal/db"
	"gorm.io/gorm"
)

// ErrSmartLogNotFound 在指定智能日志不存在时返回
var ErrSmartLogNotFound = errors.New("smart log not found")

// minExtractionConfidence 是进入提取阶段的整体置信度下限，低于该值直接跳过第二次调用。
const minExtractionConfidence = 0.3

// ProcessResult 汇总一次日志处理的结果。
type ProcessResult struct {
	Success        bool
	Classification *db.AIClassification
	Parsed         *db.AIParsedData
	EventsCreated  int
	Error          string
}

// SmartLogProcessor 驱动单条智能日志走完 分类 → 提取 → 事件落库 的流水线。
// 状态机：pending → processing → completed|failed；失败为终态，重试依赖学员重新提交。
type SmartLogProcessor struct {
	db         *gorm.DB
	classifier LogClassifier
}

// NewSmartLogProcessor 构造 SmartLogProcessor。
func NewSmartLogProcessor(gdb *gorm.DB, classifier LogClassifier) *SmartLogProcessor {
	return &SmartLogProcessor{db: gdb, classifier: classifier}
}

// Process 处理指定日志。空日志（无文字且无图片）直接标记完成并返回零事件。
// 分类与提取对网络失败都做软降级，保证日志不会停滞在 processing 状态。
func (s *SmartLogProcessor) Process(ctx context.Context, smartLogID uint) (ProcessResult, error) {
	var entry db.SmartLog
	if err := s.db.First(&entry, smartLogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProcessResult{}, ErrSmartLogNotFound
		}
		return ProcessResult{}, fmt.Errorf("load smart log: %w", err)
	}

	if strings.TrimSpace(entry.RawText) == "" && len(entry.MediaURLs) == 0 {
		// JSON 序列化字段只走结构体更新，map 更新不会经过序列化器
		entry.ProcessingStatus = db.SmartLogStatusCompleted
		entry.AIClassification = nil
		entry.AIParsedData = nil
		entry.ProcessingError = ""
		if err := s.db.Model(&entry).
			Select("processing_status", "ai_classification", "ai_parsed_data", "processing_error").
			Updates(&entry).Error; err != nil {
			return ProcessResult{}, fmt.Errorf("complete empty smart log: %w", err)
		}
		return ProcessResult{Success: true}, nil
	}

	if err := s.db.Model(&entry).Updates(map[string]any{
		"processing_status": db.SmartLogStatusProcessing,
		"processing_error":  "",
	}).Error; err != nil {
		return ProcessResult{}, fmt.Errorf("mark smart log processing: %w", err)
	}

	classification := s.classifyWithFallback(ctx, entry)

	// 分类结果先行落库，两阶段之间崩溃也能保留部分进度。
	entry.AIClassification = &classification
	if err := s.db.Model(&entry).Select("ai_classification").Updates(&entry).Error; err != nil {
		return s.fail(entry.ID, fmt.Errorf("persist classification: %w", err))
	}

	parsed := s.extractWithGate(ctx, entry, classification)

	entry.AIParsedData = &parsed
	if err := s.db.Model(&entry).Select("ai_parsed_data").Updates(&entry).Error; err != nil {
		return s.fail(entry.ID, fmt.Errorf("persist parsed data: %w", err))
	}

	metricDate := entry.LocalDate
	if metricDate.IsZero() {
		metricDate = entry.CreatedAt
	}
	events := MaterializeEvents(entry.ClientID, entry.ID, metricDate, parsed)

	// 旧事件先删后建，保证同一条日志重复处理不会留下残余。
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("smart_log_id = ?", entry.ID).Delete(&db.ProgressEvent{}).Error; err != nil {
			return err
		}
		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return err
			}
		}
		return tx.Model(&db.SmartLog{}).Where("id = ?", entry.ID).
			Update("processing_status", db.SmartLogStatusCompleted).Error
	})
	if err != nil {
		return s.fail(entry.ID, fmt.Errorf("materialize events: %w", err))
	}

	return ProcessResult{
		Success:        true,
		Classification: &classification,
		Parsed:         &parsed,
		EventsCreated:  len(events),
	}, nil
}

// classifyWithFallback 调用分类能力，任何失败都降级为 note/0.5 的保底分类。
func (s *SmartLogProcessor) classifyWithFallback(ctx context.Context, entry db.SmartLog) db.AIClassification {
	classification, err := s.classifier.Classify(ctx, ClassifyInput{
		Text:      entry.RawText,
		ImageURLs: entry.MediaURLs,
	})
	if err != nil {
		log.Printf("[SMARTLOG] classify log %d failed, falling back to note: %v", entry.ID, err)
		return db.AIClassification{
			DetectedEventTypes: []string{"note"},
			OverallConfidence:  0.5,
		}
	}
	return classification
}

// extractWithGate 按置信度门控决定是否调用提取阶段，失败时返回空数据而非错误。
func (s *SmartLogProcessor) extractWithGate(ctx context.Context, entry db.SmartLog, classification db.AIClassification) db.AIParsedData {
	if classification.OverallConfidence < minExtractionConfidence || !classification.HasAnyCategory() {
		return db.AIParsedData{}
	}

	parsed, err := s.classifier.Extract(ctx, ExtractInput{
		Text:           entry.RawText,
		ImageURLs:      entry.MediaURLs,
		Classification: classification,
	})
	if err != nil {
		log.Printf("[SMARTLOG] extract log %d failed, continuing with empty data: %v", entry.ID, err)
		return db.AIParsedData{}
	}
	return parsed
}

// fail 将日志置为 failed 终态并记录错误信息。
func (s *SmartLogProcessor) fail(smartLogID uint, cause error) (ProcessResult, error) {
	if err := s.db.Model(&db.SmartLog{}).Where("id = ?", smartLogID).Updates(map[string]any{
		"processing_status": db.SmartLogStatusFailed,
		"processing_error":  cause.Error(),
	}).Error; err != nil {
		log.Printf("[SMARTLOG] mark log %d failed error: %v", smartLogID, err)
	}
	return ProcessResult{Error: cause.Error()}, cause
}

// ResetForReanalysis 在学员编辑日志后清空历史解析结果并回到 pending 状态。
// 旧的进度事件一并删除，重新处理后的结果只反映新内容。
func (s *SmartLogProcessor) ResetForReanalysis(smartLogID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.SmartLog{}).Where("id = ?", smartLogID).
			Select("processing_status", "ai_classification", "ai_parsed_data", "processing_error").
			Updates(&db.SmartLog{ProcessingStatus: db.SmartLogStatusPending})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSmartLogNotFound
		}
		return tx.Where("smart_log_id = ?", smartLogID).Delete(&db.ProgressEvent{}).Error
	})
}
