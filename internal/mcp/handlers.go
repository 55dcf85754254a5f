package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/service"
)

// Tool names
const (
	ToolPredictRisk         = "predict_risk"
	ToolListAlgorithms      = "list_algorithms"
	ToolCompareAlgorithms   = "compare_algorithms"
	ToolValidatePatientData = "validate_patient_data"
	ToolCheckUpload         = "check_upload"
	ToolGenerateReport      = "generate_report"
	ToolListHistory         = "list_history"
	ToolGetStatistics       = "get_statistics"
)

// PredictRiskParams defines parameters for predict_risk tool
type PredictRiskParams struct {
	Inputs    *domain.PatientInputs `json:"inputs,omitempty" jsonschema:"patient vitals; the prediction form defaults are used when omitted"`
	Algorithm string                `json:"algorithm,omitempty" jsonschema:"one of j48, randomForest, naiveBayes; empty means unselected"`
}

// EmptyParams is the input of tools without parameters.
type EmptyParams struct{}

// ValidatePatientDataParams mirrors the manual-entry form. Values are given as typed.
type ValidatePatientDataParams struct {
	Age         string `json:"age" jsonschema:"age in years"`
	Sex         string `json:"sex,omitempty" jsonschema:"M or F, defaults to M"`
	Systolic    string `json:"systolic" jsonschema:"systolic blood pressure in mmHg"`
	Diastolic   string `json:"diastolic" jsonschema:"diastolic blood pressure in mmHg"`
	Cholesterol string `json:"cholesterol" jsonschema:"total cholesterol in mg/dL"`
	Glucose     string `json:"glucose" jsonschema:"fasting glucose in mg/dL"`
	Smoker      bool   `json:"smoker,omitempty" jsonschema:"whether the patient smokes"`
}

// ValidatePatientDataResult defines the result structure for validate_patient_data tool
type ValidatePatientDataResult struct {
	Valid         bool                  `json:"valid"`
	Inputs        *domain.PatientInputs `json:"inputs,omitempty"`
	MissingFields []string              `json:"missing_fields,omitempty"`
	Error         string                `json:"error,omitempty"`
	Notice        *domain.Notification  `json:"notice,omitempty"`
}

// CheckUploadParams describes the file a user selected.
type CheckUploadParams struct {
	FileName    string `json:"file_name" jsonschema:"name of the selected file"`
	ContentType string `json:"content_type" jsonschema:"MIME type reported for the file"`
	SizeBytes   int64  `json:"size_bytes,omitempty" jsonschema:"file size in bytes"`
}

// CheckUploadResult defines the result structure for check_upload tool
type CheckUploadResult struct {
	Accepted bool                   `json:"accepted"`
	Receipt  *service.UploadReceipt `json:"receipt,omitempty"`
	Notice   domain.Notification    `json:"notice"`
}

// GenerateReportParams defines parameters for generate_report tool
type GenerateReportParams struct {
	Inputs *domain.PatientInputs `json:"inputs,omitempty" jsonschema:"patient vitals to check against the risk factor targets"`
}

// ListHistoryParams defines parameters for list_history tool
type ListHistoryParams struct {
	RiskLevel string `json:"risk_level,omitempty" jsonschema:"low, medium (or moderate) or high"`
	Algorithm string `json:"algorithm,omitempty" jsonschema:"one of j48, randomForest, naiveBayes"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of entries"`
	Offset    int    `json:"offset,omitempty" jsonschema:"number of entries to skip"`
}

// ListHistoryResult defines the result structure for list_history tool
type ListHistoryResult struct {
	Entries []domain.HistoryEntry `json:"entries"`
	Count   int                   `json:"count"`
}

func (s *LiteServer) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolPredictRisk,
		Description: "Estimate the simulated cardiovascular risk of a patient with the selected algorithm",
	}, s.handlePredictRisk)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListAlgorithms,
		Description: "List the three classification algorithms and their display metrics",
	}, s.handleListAlgorithms)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolCompareAlgorithms,
		Description: "Compare the algorithms metric by metric and recommend the most accurate one",
	}, s.handleCompareAlgorithms)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolValidatePatientData,
		Description: "Validate a manual patient entry and convert it to patient vitals",
	}, s.handleValidatePatientData)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolCheckUpload,
		Description: "Check whether a file would be accepted for upload (Excel or CSV only)",
	}, s.handleCheckUpload)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGenerateReport,
		Description: "Generate the recommendations report with risk factors and model ranking",
	}, s.handleGenerateReport)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListHistory,
		Description: "List past analyses, optionally filtered by risk level and algorithm",
	}, s.handleListHistory)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetStatistics,
		Description: "Summary statistics over all past analyses",
	}, s.handleGetStatistics)

	s.logger.WithField("tool_count", 8).Debug("Registered MCP tools")
}

// handlePredictRisk handles the predict_risk tool invocation
func (s *LiteServer) handlePredictRisk(ctx context.Context, req *mcp.CallToolRequest, params PredictRiskParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolPredictRisk).Info("Tool invoked")

	algorithm, err := parseOptionalAlgorithm(params.Algorithm)
	if err != nil {
		return s.createErrorResult("Invalid algorithm", err), nil, nil
	}

	inputs := domain.DefaultPredictionInputs()
	if params.Inputs != nil {
		inputs = *params.Inputs
	}
	if inputs, err = service.NormalizeInputs(inputs); err != nil {
		return s.createErrorResult("Invalid patient data", err), nil, nil
	}

	p := s.predictions.Predict(inputs, algorithm)
	return s.createResult(fmt.Sprintf("Riesgo %s: %.0f%% (confianza %.0f%%, %s)",
		p.LevelLabel, p.RiskPercent, p.ConfidencePercent, p.Notice.Description), p), nil, nil
}

// handleListAlgorithms handles the list_algorithms tool invocation
func (s *LiteServer) handleListAlgorithms(ctx context.Context, req *mcp.CallToolRequest, _ EmptyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListAlgorithms).Info("Tool invoked")

	profiles := s.catalog.Profiles()
	return s.createResult(fmt.Sprintf("%d algorithms available", len(profiles)),
		map[string]any{"algorithms": profiles}), nil, nil
}

// handleCompareAlgorithms handles the compare_algorithms tool invocation
func (s *LiteServer) handleCompareAlgorithms(ctx context.Context, req *mcp.CallToolRequest, _ EmptyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolCompareAlgorithms).Info("Tool invoked")

	comparison, err := s.catalog.Compare()
	if err != nil {
		return s.createErrorResult("Comparison failed", err), nil, nil
	}
	return s.createResult(comparison.Recommendation, comparison), nil, nil
}

// handleValidatePatientData handles the validate_patient_data tool invocation.
// Rejected entries are reported in the result, not as tool errors.
func (s *LiteServer) handleValidatePatientData(ctx context.Context, req *mcp.CallToolRequest, params ValidatePatientDataParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolValidatePatientData).Info("Tool invoked")

	result, err := s.intake.SubmitManualEntry(service.ManualEntryForm{
		Age:         params.Age,
		Sex:         params.Sex,
		Systolic:    params.Systolic,
		Diastolic:   params.Diastolic,
		Cholesterol: params.Cholesterol,
		Glucose:     params.Glucose,
		Smoker:      params.Smoker,
	})

	var (
		out     ValidatePatientDataResult
		missing *domain.MissingFieldsError
	)
	switch {
	case err == nil:
		out = ValidatePatientDataResult{Valid: true, Inputs: &result.Inputs, Notice: &result.Notice}
	case errors.As(err, &missing):
		out = ValidatePatientDataResult{MissingFields: missing.Fields, Error: err.Error(), Notice: &missing.Notice}
	default:
		out = ValidatePatientDataResult{Error: err.Error()}
	}

	summary := "Patient data is valid"
	if !out.Valid {
		summary = "Patient data rejected: " + out.Error
	}
	return s.createResult(summary, out), nil, nil
}

// handleCheckUpload handles the check_upload tool invocation
func (s *LiteServer) handleCheckUpload(ctx context.Context, req *mcp.CallToolRequest, params CheckUploadParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolCheckUpload).Info("Tool invoked")

	if params.SizeBytes < 0 {
		return s.createErrorResult("Invalid size", fmt.Errorf("size_bytes must not be negative")), nil, nil
	}

	result, err := s.uploads.Accept(service.UploadRequest{
		FileName:    params.FileName,
		ContentType: params.ContentType,
		SizeBytes:   params.SizeBytes,
	})

	var unsupported *domain.UnsupportedFileError
	switch {
	case err == nil:
		return s.createResult(fmt.Sprintf("%s accepted (%.2f KB)", result.Receipt.FileName, result.Receipt.SizeKB),
			CheckUploadResult{Accepted: true, Receipt: &result.Receipt, Notice: result.Notice}), nil, nil
	case errors.As(err, &unsupported):
		return s.createResult(unsupported.Notice.Description,
			CheckUploadResult{Notice: unsupported.Notice}), nil, nil
	default:
		return s.createErrorResult("Upload check failed", err), nil, nil
	}
}

// handleGenerateReport handles the generate_report tool invocation
func (s *LiteServer) handleGenerateReport(ctx context.Context, req *mcp.CallToolRequest, params GenerateReportParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGenerateReport).Info("Tool invoked")

	inputs := params.Inputs
	if inputs != nil {
		normalized, err := service.NormalizeInputs(*inputs)
		if err != nil {
			return s.createErrorResult("Invalid patient data", err), nil, nil
		}
		inputs = &normalized
	}

	report := s.reports.Generate(inputs)
	return s.createResult(report.RankingSummary, report), nil, nil
}

// handleListHistory handles the list_history tool invocation
func (s *LiteServer) handleListHistory(ctx context.Context, req *mcp.CallToolRequest, params ListHistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListHistory).Info("Tool invoked")

	if params.Limit < 0 || params.Offset < 0 {
		return s.createErrorResult("Invalid paging", fmt.Errorf("limit and offset must not be negative")), nil, nil
	}
	filter := domain.HistoryFilter{Limit: params.Limit, Offset: params.Offset}

	if params.RiskLevel != "" {
		level, err := domain.ParseHistoryRiskLevel(params.RiskLevel)
		if err != nil {
			return s.createErrorResult("Invalid risk level", err), nil, nil
		}
		filter.RiskLevel = level
	}
	if params.Algorithm != "" {
		alg, err := domain.ParseAlgorithm(params.Algorithm)
		if err != nil {
			return s.createErrorResult("Invalid algorithm", err), nil, nil
		}
		filter.Algorithm = alg
	}

	entries, err := s.history.List(ctx, filter)
	if err != nil {
		return s.createErrorResult("History unavailable", err), nil, nil
	}
	return s.createResult(fmt.Sprintf("%d analyses found", len(entries)),
		ListHistoryResult{Entries: entries, Count: len(entries)}), nil, nil
}

// handleGetStatistics handles the get_statistics tool invocation
func (s *LiteServer) handleGetStatistics(ctx context.Context, req *mcp.CallToolRequest, _ EmptyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGetStatistics).Info("Tool invoked")

	stats, err := s.history.Statistics(ctx)
	if err != nil {
		return s.createErrorResult("History unavailable", err), nil, nil
	}
	return s.createResult(fmt.Sprintf("%d analyses, average accuracy %.1f%%, most accurate: %s",
		stats.TotalAnalyses, stats.AverageAccuracy, stats.MostAccurateAlgorithm), stats), nil, nil
}

func parseOptionalAlgorithm(id string) (domain.Algorithm, error) {
	var alg domain.Algorithm
	if err := alg.UnmarshalText([]byte(id)); err != nil {
		return 0, err
	}
	return alg, nil
}

// createResult pairs a one-line summary with the structured payload.
func (s *LiteServer) createResult(summary string, payload any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
		},
		StructuredContent: payload,
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *LiteServer) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	s.logger.WithError(err).Debug(message)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
