package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/service"
	"github.com/cardiopredict-server/internal/session"
)

// PredictionRequest asks for one risk estimate. Missing inputs fall back to the workspace form,
// then to the form defaults; a missing algorithm falls back to the workspace selection.
type PredictionRequest struct {
	Inputs      *domain.PatientInputs `json:"inputs"`
	Algorithm   domain.Algorithm      `json:"algorithm"`
	WorkspaceID string                `json:"workspace_id"`
}

// ManualEntryRequest is the manual-entry form plus the workspace it belongs to.
type ManualEntryRequest struct {
	service.ManualEntryForm
	WorkspaceID string `json:"workspace_id"`
}

// ReportRequest asks for recommendations. Without inputs the workspace's patient data is used.
type ReportRequest struct {
	Inputs      *domain.PatientInputs `json:"inputs"`
	WorkspaceID string                `json:"workspace_id"`
}

// AcceptedResponse answers an intake whose follow-up notice arrives later.
type AcceptedResponse struct {
	Inputs   *domain.PatientInputs  `json:"inputs,omitempty"`
	Receipt  *service.UploadReceipt `json:"receipt,omitempty"`
	Notice   domain.Notification    `json:"notice"`
	DelayMS  int64                  `json:"delay_ms"`
	Redirect string                 `json:"redirect"`
}

type routeRequest struct {
	Route string `json:"route" binding:"required"`
}

type tabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type algorithmRequest struct {
	Algorithm string `json:"algorithm" binding:"required"`
}

// bindOptionalJSON decodes the body into obj; an empty body is allowed.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleNavigation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": session.Navigation()})
}

func (s *Server) handleListAlgorithms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"algorithms": s.svc.Catalog.Profiles()})
}

func (s *Server) handleGetAlgorithm(c *gin.Context) {
	alg, err := domain.ParseAlgorithm(c.Param("id"))
	if err != nil {
		s.abort(c, http.StatusNotFound, domain.ErrNotFoundCode, "Algorithm not found", err.Error(), nil)
		return
	}
	profile, err := s.svc.Catalog.Profile(alg)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleComparison(c *gin.Context) {
	comparison, err := s.svc.Catalog.Compare()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

func (s *Server) handlePredictionDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"inputs":    domain.DefaultPredictionInputs(),
		"algorithm": domain.RandomForest,
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	var req PredictionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	ctx := c.Request.Context()

	var ws *session.Workspace
	if req.WorkspaceID != "" {
		var err error
		if ws, err = s.svc.Workspaces.Get(ctx, req.WorkspaceID); err != nil {
			s.respondError(c, err)
			return
		}
	}

	inputs := domain.DefaultPredictionInputs()
	algorithm := req.Algorithm
	switch {
	case req.Inputs != nil:
		inputs = *req.Inputs
	case ws != nil:
		inputs = ws.PredictionForm
	}
	if algorithm == 0 && ws != nil {
		algorithm = ws.SelectedAlgorithm
	}

	inputs, err := service.NormalizeInputs(inputs)
	if err != nil {
		s.respondError(c, err)
		return
	}

	prediction := s.svc.Predictions.Predict(inputs, algorithm)

	if ws != nil {
		_, err := s.svc.Workspaces.Update(ctx, ws.ID, func(w *session.Workspace) error {
			w.PredictionForm = inputs
			w.SelectedAlgorithm = algorithm
			w.RecordPrediction(prediction)
			return nil
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		s.svc.Notifications.Publish(ws.ID, prediction.Notice)
	}

	c.JSON(http.StatusOK, prediction)
}

func (s *Server) handleManualEntry(c *gin.Context) {
	var req ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	ctx := c.Request.Context()

	if req.WorkspaceID != "" {
		if _, err := s.svc.Workspaces.Get(ctx, req.WorkspaceID); err != nil {
			s.respondError(c, err)
			return
		}
	}

	result, err := s.svc.Intake.SubmitManualEntry(req.ManualEntryForm)
	if err != nil {
		var missing *domain.MissingFieldsError
		if req.WorkspaceID != "" && errors.As(err, &missing) {
			s.svc.Notifications.Publish(req.WorkspaceID, missing.Notice)
		}
		s.respondError(c, err)
		return
	}

	if req.WorkspaceID != "" {
		_, err := s.svc.Workspaces.Update(ctx, req.WorkspaceID, func(w *session.Workspace) error {
			w.RecordManualEntry(req.ManualEntryForm, result.Inputs)
			return nil
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		s.svc.Notifications.PublishAfter(req.WorkspaceID, result.Notice, result.Delay)
	}

	c.JSON(http.StatusAccepted, AcceptedResponse{
		Inputs:   &result.Inputs,
		Notice:   result.Notice,
		DelayMS:  result.Delay.Milliseconds(),
		Redirect: result.Notice.Redirect,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	maxBytes := s.configManager.GetServerConfig().MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.abort(c, http.StatusRequestEntityTooLarge, domain.ErrInvalidInput, "File too large",
				"uploads are limited to "+strconv.FormatInt(maxBytes, 10)+" bytes", nil)
			return
		}
		s.badRequest(c, "A file is required in the 'file' form field", err)
		return
	}

	ctx := c.Request.Context()
	workspaceID := c.PostForm("workspace_id")
	if workspaceID != "" {
		if _, err := s.svc.Workspaces.Get(ctx, workspaceID); err != nil {
			s.respondError(c, err)
			return
		}
	}

	result, err := s.svc.Uploads.Accept(service.UploadRequest{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
	})
	if err != nil {
		var unsupported *domain.UnsupportedFileError
		if workspaceID != "" && errors.As(err, &unsupported) {
			s.svc.Notifications.Publish(workspaceID, unsupported.Notice)
		}
		s.respondError(c, err)
		return
	}

	if workspaceID != "" {
		_, err := s.svc.Workspaces.Update(ctx, workspaceID, func(w *session.Workspace) error {
			w.RecordUpload(result.Receipt)
			return nil
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		s.svc.Notifications.PublishAfter(workspaceID, result.Notice, result.Delay)
	}

	c.JSON(http.StatusAccepted, AcceptedResponse{
		Receipt:  &result.Receipt,
		Notice:   result.Notice,
		DelayMS:  result.Delay.Milliseconds(),
		Redirect: result.Notice.Redirect,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	var req ReportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}

	inputs := req.Inputs
	if inputs == nil && req.WorkspaceID != "" {
		ws, err := s.svc.Workspaces.Get(c.Request.Context(), req.WorkspaceID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		inputs = ws.PatientData
	}
	if inputs != nil {
		normalized, err := service.NormalizeInputs(*inputs)
		if err != nil {
			s.respondError(c, err)
			return
		}
		inputs = &normalized
	}

	c.JSON(http.StatusOK, s.svc.Reports.Generate(inputs))
}

func (s *Server) handleListHistory(c *gin.Context) {
	var filter domain.HistoryFilter

	if v := c.Query("risk_level"); v != "" {
		level, err := domain.ParseHistoryRiskLevel(v)
		if err != nil {
			s.respondError(c, err)
			return
		}
		filter.RiskLevel = level
	}
	if v := c.Query("algorithm"); v != "" {
		alg, err := domain.ParseAlgorithm(v)
		if err != nil {
			s.respondError(c, err)
			return
		}
		filter.Algorithm = alg
	}
	var ok bool
	if filter.Limit, ok = s.queryCount(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = s.queryCount(c, "offset"); !ok {
		return
	}

	entries, err := s.svc.History.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// queryCount reads an optional non-negative integer query parameter. It responds and returns
// false when the value is malformed.
func (s *Server) queryCount(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid "+name, "must be a non-negative integer", nil)
		return 0, false
	}
	return n, true
}

func (s *Server) handleGetHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.badRequest(c, "Invalid history id", err)
		return
	}
	entry, err := s.svc.History.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.svc.History.Statistics(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCreateWorkspace(c *gin.Context) {
	ws, err := s.svc.Workspaces.Create(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/workspaces/"+ws.ID)
	c.JSON(http.StatusCreated, ws)
}

func (s *Server) handleGetWorkspace(c *gin.Context) {
	ws, err := s.svc.Workspaces.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) handleDeleteWorkspace(c *gin.Context) {
	if err := s.svc.Workspaces.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateWorkspace binds req, applies fn to the workspace and writes it back.
func (s *Server) updateWorkspace(c *gin.Context, req interface{}, fn func(*session.Workspace) error) {
	if err := c.ShouldBindJSON(req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	ws, err := s.svc.Workspaces.Update(c.Request.Context(), c.Param("id"), fn)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) handleNavigate(c *gin.Context) {
	var req routeRequest
	s.updateWorkspace(c, &req, func(w *session.Workspace) error {
		return w.Navigate(req.Route)
	})
}

func (s *Server) handleSelectTab(c *gin.Context) {
	var req tabRequest
	s.updateWorkspace(c, &req, func(w *session.Workspace) error {
		return w.SelectTab(req.Tab)
	})
}

func (s *Server) handleSelectAlgorithm(c *gin.Context) {
	var req algorithmRequest
	s.updateWorkspace(c, &req, func(w *session.Workspace) error {
		return w.SelectAlgorithm(req.Algorithm)
	})
}

// handleEditPredictionForm applies field edits in a single update; one bad field rejects all.
func (s *Server) handleEditPredictionForm(c *gin.Context) {
	var fields map[string]string
	s.updateWorkspace(c, &fields, func(w *session.Workspace) error {
		for field, value := range fields {
			if err := w.SetPredictionField(field, value); err != nil {
				return err
			}
		}
		return nil
	})
}
