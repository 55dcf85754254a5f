package service

import (
	"math"
	"mime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
)

// DefaultUploadDelay is the simulated processing time of an accepted upload.
const DefaultUploadDelay = 1500 * time.Millisecond

// Accepted upload content types.
const (
	ContentTypeExcel = "application/vnd.ms-excel"
	ContentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV   = "text/csv"
)

var acceptedContentTypes = map[string]struct{}{
	ContentTypeExcel: {},
	ContentTypeXLSX:  {},
	ContentTypeCSV:   {},
}

// UploadRequest describes a selected file. The bytes themselves are never read.
type UploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// UploadReceipt is what the upload page shows for an accepted file.
type UploadReceipt struct {
	FileName    string  `json:"file_name"`
	ContentType string  `json:"content_type"`
	SizeBytes   int64   `json:"size_bytes"`
	SizeKB      float64 `json:"size_kb"`
}

// UploadResult is an accepted upload and its delayed follow-up notice.
type UploadResult struct {
	Receipt UploadReceipt       `json:"receipt"`
	Notice  domain.Notification `json:"notice"`
	Delay   time.Duration       `json:"delay"`
}

// UploadService checks uploads by content type only.
type UploadService struct {
	delay  time.Duration
	logger *logrus.Logger
}

// NewUploadService creates an upload service. A negative delay is treated as zero.
func NewUploadService(logger *logrus.Logger, delay time.Duration) *UploadService {
	if delay < 0 {
		delay = 0
	}
	return &UploadService{delay: delay, logger: logger}
}

// UnsupportedFormatNotice is shown when a file is neither Excel nor CSV.
func UnsupportedFormatNotice() domain.Notification {
	return domain.Notification{
		Title:       "Formato no compatible",
		Description: "Por favor, selecciona un archivo Excel o CSV.",
		Variant:     domain.NotificationDestructive,
	}
}

// FileProcessedNotice follows an accepted upload.
func FileProcessedNotice() domain.Notification {
	return domain.Notification{
		Title:       "Archivo procesado correctamente",
		Description: "Los datos han sido cargados para análisis.",
		Variant:     domain.NotificationDefault,
		Redirect:    RouteAlgorithms,
	}
}

// IsAcceptedContentType reports whether contentType is Excel or CSV.
// Media type parameters such as charset are ignored.
func IsAcceptedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	_, ok := acceptedContentTypes[mediaType]
	return ok
}

// Accept validates req and returns a receipt. Unsupported content types yield a
// *domain.UnsupportedFileError carrying the destructive notice.
func (s *UploadService) Accept(req UploadRequest) (*UploadResult, error) {
	if !IsAcceptedContentType(req.ContentType) {
		intakeOutcomes.WithLabelValues("upload", "rejected").Inc()
		s.log().WithFields(logrus.Fields{
			"file_name":    req.FileName,
			"content_type": req.ContentType,
		}).Info("Upload rejected")
		return nil, &domain.UnsupportedFileError{ContentType: req.ContentType, Notice: UnsupportedFormatNotice()}
	}

	receipt := UploadReceipt{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		SizeKB:      SizeKB(req.SizeBytes),
	}

	intakeOutcomes.WithLabelValues("upload", "accepted").Inc()

	notice := FileProcessedNotice()
	notice.CreatedAt = time.Now().UTC()

	s.log().WithFields(logrus.Fields{
		"file_name": receipt.FileName,
		"size_kb":   receipt.SizeKB,
	}).Info("Upload accepted")

	return &UploadResult{Receipt: receipt, Notice: notice, Delay: s.delay}, nil
}

// SizeKB converts a byte count to kilobytes rounded to two decimals.
func SizeKB(sizeBytes int64) float64 {
	return math.Round(float64(sizeBytes)/1024*100) / 100
}

func (s *UploadService) log() logrus.FieldLogger {
	if s.logger == nil {
		return logrus.StandardLogger()
	}
	return s.logger
}
