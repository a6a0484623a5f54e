// Package api exposes the portal over HTTP with gin.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/internal/export"
	"github.com/celerix-dev/celerix-compliance/internal/portal"
)

// ActorHeader names the caller recorded in audit entries.
const ActorHeader = "X-Actor"

var errBadRequest = errors.New("bad request")

type Handler struct {
	Portal *portal.Portal
	// Now stamps export filenames; defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// writeError maps domain errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, portal.ErrUnknownDataset):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, engine.ErrEmptyID),
		errors.Is(err, portal.ErrEmptySelection),
		errors.Is(err, portal.ErrInvalidAction),
		errors.Is(err, portal.ErrInvalidRecord),
		errors.Is(err, portal.ErrNoTemplates),
		errors.Is(err, export.ErrUnknownFormat):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func actor(c *gin.Context) portal.Actor {
	name := c.GetHeader(ActorHeader)
	if name == "" {
		name = "anonymous"
	}
	return portal.Actor{Name: name, IP: c.ClientIP()}
}

type datasetInfo struct {
	Name   string             `json:"name"`
	Fields []portal.FieldInfo `json:"fields"`
}

func (h *Handler) GetDatasets(c *gin.Context) {
	names := h.Portal.Datasets()
	out := make([]datasetInfo, 0, len(names))
	for _, name := range names {
		d, err := h.Portal.Dataset(name)
		if err != nil {
			writeError(c, err)
			return
		}
		out = append(out, datasetInfo{Name: name, Fields: d.Fields()})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.Portal.Dashboard.Summary())
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
