package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/syncwell/zoomcrm/internal/bridge"
	"github.com/syncwell/zoomcrm/internal/zoom"
)

// RecordingFetcher streams recording files from the upstream API.
type RecordingFetcher interface {
	DownloadPhoneRecording(ctx context.Context, fileID string) (*zoom.Download, error)
	DownloadMeetingRecording(ctx context.Context, recordingID string) (*zoom.Download, error)
}

// RecordingsHandler proxies recording downloads so CRM notes can link to
// files that otherwise require server-side credentials.
type RecordingsHandler struct {
	fetcher   RecordingFetcher
	accountID string
	logger    *slog.Logger
}

// NewRecordingsHandler creates the proxy handler. accountID is the only
// account whose tokens are honored.
func NewRecordingsHandler(log *slog.Logger, fetcher RecordingFetcher, accountID string) *RecordingsHandler {
	return &RecordingsHandler{
		fetcher:   fetcher,
		accountID: accountID,
		logger:    log.With(slog.String("handler", "recordings")),
	}
}

// Register mounts the download routes.
func (h *RecordingsHandler) Register(e *echo.Echo) {
	e.GET("/download/:token", h.DownloadPhone)
	e.GET("/recording/:id", h.DownloadMeeting)
}

// DownloadPhone streams a phone recording identified by a note link token.
func (h *RecordingsHandler) DownloadPhone(c echo.Context) error {
	account, fileID, err := bridge.DecodeRecordingToken(c.Param("token"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid download token"})
	}
	if account != h.accountID {
		h.logger.Warn("download token for foreign account", "account", account)
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "recording not found"})
	}

	dl, err := h.fetcher.DownloadPhoneRecording(c.Request().Context(), fileID)
	if err != nil {
		h.logger.Error("phone recording fetch failed", "file_id", fileID, "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "recording unavailable"})
	}
	defer dl.Body.Close()

	return h.stream(c, dl, "zoom_recording_"+fileID+".mp3")
}

// DownloadMeeting streams a meeting recording by its upstream id.
func (h *RecordingsHandler) DownloadMeeting(c echo.Context) error {
	recordingID := c.Param("id")
	if recordingID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "recording id is required"})
	}

	dl, err := h.fetcher.DownloadMeetingRecording(c.Request().Context(), recordingID)
	if err != nil {
		h.logger.Error("meeting recording fetch failed", "recording_id", recordingID, "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "recording unavailable"})
	}
	defer dl.Body.Close()

	return h.stream(c, dl, "zoom_meeting_"+recordingID+".mp4")
}

func (h *RecordingsHandler) stream(c echo.Context, dl *zoom.Download, filename string) error {
	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Response().Header().Set("Cache-Control", "no-store")
	if dl.Length != "" {
		c.Response().Header().Set(echo.HeaderContentLength, dl.Length)
	}
	return c.Stream(http.StatusOK, contentType, dl.Body)
}
