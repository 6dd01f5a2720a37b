package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bruadam/hvx-sub006/internal/cache"
	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/export"
	"github.com/bruadam/hvx-sub006/internal/service"

	"go.uber.org/zap"
)

// RunService 分析服务接口（便于在单元测试中替换）
type RunService interface {
	RunPortfolio(ctx context.Context, portfolioID string, from, to time.Time) (*service.RunRecord, error)
	Run(runID string) (*service.RunRecord, bool)
	EntitySummary(ctx context.Context, entityID string) (*domain.SummaryResults, error)
}

// AnalysisHandler 分析 API 处理器
type AnalysisHandler struct {
	svc    RunService
	logger *zap.Logger
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(svc RunService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, logger: logger}
}

// triggerRunRequest 触发运行请求体
type triggerRunRequest struct {
	PortfolioID string    `json:"portfolio_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
}

// TriggerRun POST /ieq/api/v1/runs
func (h *AnalysisHandler) TriggerRun(w http.ResponseWriter, req *http.Request) {
	var body triggerRunRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PortfolioID == "" {
		writeError(w, http.StatusBadRequest, "portfolio_id is required")
		return
	}
	if !body.From.Before(body.To) {
		writeError(w, http.StatusBadRequest, "from must be before to")
		return
	}

	record, err := h.svc.RunPortfolio(req.Context(), body.PortfolioID, body.From, body.To)
	if err != nil {
		h.logger.Error("Portfolio run failed",
			zap.String("portfolio_id", body.PortfolioID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, record.Result)
}

// GetRun GET /ieq/api/v1/runs/{id} 和 GET /ieq/api/v1/runs/{id}/export
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, req *http.Request) {
	rest := strings.TrimPrefix(req.URL.Path, "/ieq/api/v1/runs/")
	wantExport := false
	if strings.HasSuffix(rest, "/export") {
		rest = strings.TrimSuffix(rest, "/export")
		wantExport = true
	}
	runID := strings.Trim(rest, "/")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	record, ok := h.svc.Run(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	if wantExport {
		data, err := export.BuildRunWorkbook(record.Result, record.Hierarchy)
		if err != nil {
			h.logger.Error("Failed to build run workbook",
				zap.String("run_id", runID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to build workbook")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="ieq-run-`+runID+`.xlsx"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	writeJSON(w, http.StatusOK, record.Result)
}

// GetEntitySummary GET /ieq/api/v1/entities/{id}/analysis
func (h *AnalysisHandler) GetEntitySummary(w http.ResponseWriter, req *http.Request) {
	rest := strings.TrimPrefix(req.URL.Path, "/ieq/api/v1/entities/")
	entityID := strings.Trim(strings.TrimSuffix(strings.Trim(rest, "/"), "analysis"), "/")
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "entity id is required")
		return
	}

	summary, err := h.svc.EntitySummary(req.Context(), entityID)
	if err != nil {
		if err == cache.ErrCacheMiss {
			writeError(w, http.StatusNotFound, "no analysis for entity")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
