package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/latticeml/lattice/internal/network"
)

// Server exposes the prediction API over HTTP.
type Server struct {
	service  *PredictionService
	provider NetworkProvider
}

func NewServer(service *PredictionService, provider NetworkProvider) *Server {
	return &Server{service: service, provider: provider}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/predictions", s.handleCreatePrediction)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleCreatePrediction(c *echo.Context) error {
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "malformed request body")
	}

	resp, err := s.service.CreatePrediction(c.Request().Context(), &req)
	if err != nil {
		return writePredictionError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListModels(c *echo.Context) error {
	models, err := s.provider.ListModels()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	list := ModelList{Object: "list", Data: make([]ModelInfo, len(models))}
	for i, m := range models {
		list.Data[i] = ModelInfo{ID: m, Object: "model"}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// writePredictionError maps service and network failures to HTTP
// statuses. Contract violations are the caller's fault; engine and
// lifecycle failures are ours.
func writePredictionError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrModelNotFound):
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error())
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, network.ErrShape),
		errors.Is(err, network.ErrArity),
		errors.Is(err, network.ErrBatchSize),
		errors.Is(err, network.ErrUnsupportedOperation):
		return writeBadRequest(c, err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": errorBody{Message: msg, Type: errType},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
