package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/observability/metrics"
	"github.com/tphakala/voiceid/internal/speech"
)

const (
	serviceMessage = "Bangla Speech Gender & Region API"
	usageMessage   = "Use POST /predict with an audio file to get gender and region predictions"
	busyMessage    = "Server is busy, please retry later"

	uploadField = "audio"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// InfoResponse describes the service.
type InfoResponse struct {
	Message      string            `json:"message"`
	Version      string            `json:"version"`
	Endpoints    map[string]string `json:"endpoints"`
	ModelsStatus string            `json:"models_status"`
	Usage        string            `json:"usage"`
}

// HealthComponents reports which bundle slots are usable.
type HealthComponents struct {
	GenderModel   bool `json:"gender_model"`
	RegionModel   bool `json:"region_model"`
	GenderEncoder bool `json:"gender_encoder"`
	RegionEncoder bool `json:"region_encoder"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status              string           `json:"status"`
	ModelsLoaded        bool             `json:"models_loaded"`
	Components          HealthComponents `json:"components"`
	ReadyForPredictions bool             `json:"ready_for_predictions"`
}

// info handles GET / and GET /api/info.
func (s *Server) info(c echo.Context) error {
	status := "not loaded"
	if s.pipeline.Bundle().FullyLoaded() {
		status = "loaded"
	}

	version := s.settings.Version
	if version == "" {
		version = "dev"
	}

	return c.JSON(http.StatusOK, InfoResponse{
		Message: serviceMessage,
		Version: version,
		Endpoints: map[string]string{
			"/":         "API information",
			"/api/info": "API information",
			"/health":   "Health check",
			"/predict":  "POST audio file for gender and region prediction",
		},
		ModelsStatus: status,
		Usage:        usageMessage,
	})
}

// health reports bundle readiness. It always answers 200; a partial bundle
// is reported as degraded.
func (s *Server) health(c echo.Context) error {
	b := s.pipeline.Bundle()

	loaded := make(map[bundle.Slot]bool, len(bundle.AllSlots()))
	for _, st := range b.Status() {
		loaded[st.Slot] = st.Loaded
	}

	ready := b.FullyLoaded()
	status := "healthy"
	if !ready {
		status = "degraded"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:       status,
		ModelsLoaded: ready,
		Components: HealthComponents{
			GenderModel:   loaded[bundle.SlotGenderModel],
			RegionModel:   loaded[bundle.SlotRegionModel],
			GenderEncoder: loaded[bundle.SlotGenderEncoder],
			RegionEncoder: loaded[bundle.SlotRegionEncoder],
		},
		ReadyForPredictions: ready,
	})
}

// predict handles POST /predict with a multipart "audio" file.
func (s *Server) predict(c echo.Context) error {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, speech.MsgNoAudio).SetInternal(err)
	}

	file, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, speech.MsgNoAudio).SetInternal(err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.log.Debug("failed to close upload", logger.Error(err))
		}
	}()

	hm := s.httpMetrics()
	hm.RecordUploadSize(fh.Size)
	done := hm.PredictionStarted()
	defer done()

	result, err := s.pipeline.Predict(c.Request().Context(), speech.Upload{
		Filename: fh.Filename,
		Content:  file,
		Size:     fh.Size,
	})
	if err != nil {
		return predictHTTPError(err)
	}

	s.log.Info("prediction served",
		logger.String("file_name", result.FileName),
		logger.String("gender", result.Gender),
		logger.String("region", result.Region),
		logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))

	return c.JSON(http.StatusOK, result)
}

// predictHTTPError maps a pipeline failure to its HTTP status.
func predictHTTPError(err error) *echo.HTTPError {
	var perr *speech.PredictError
	if !errors.As(err, &perr) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Prediction failed: "+err.Error()).SetInternal(err)
	}

	switch perr.Stage {
	case speech.StageValidation:
		return echo.NewHTTPError(http.StatusBadRequest, perr.Error()).SetInternal(err)
	case speech.StageBusy:
		return echo.NewHTTPError(http.StatusServiceUnavailable, busyMessage).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, perr.Error()).SetInternal(err)
	}
}

func (s *Server) httpMetrics() *metrics.HTTPMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.HTTP
}
