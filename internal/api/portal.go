package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-compliance/internal/portal"
	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

func (h *Handler) CreateContent(c *gin.Context) {
	var item schema.ContentItem
	if err := c.ShouldBindJSON(&item); err != nil {
		bindError(c, err)
		return
	}
	created, err := h.Portal.Content.Create(actor(c), item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateContent(c *gin.Context) {
	var item schema.ContentItem
	if err := c.ShouldBindJSON(&item); err != nil {
		bindError(c, err)
		return
	}
	updated, err := h.Portal.Content.Update(actor(c), c.Param("id"), item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) PublishContent(c *gin.Context) {
	item, err := h.Portal.Content.Publish(actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ArchiveContent(c *gin.Context) {
	item, err := h.Portal.Content.Archive(actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) BatchPublish(c *gin.Context) {
	ids, err := h.Portal.Content.PublishSelected(actor(c))
	batchRecordsTotal.WithLabelValues(portal.DatasetContent, "publish").Add(float64(len(ids)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": ids})
}

func (h *Handler) GenerateChecklist(c *gin.Context) {
	var req portal.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	created, err := h.Portal.Checklist.Generate(actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

func (h *Handler) CompleteChecklist(c *gin.Context) {
	var input struct {
		Completed *bool `json:"completed"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
	}
	done := input.Completed == nil || *input.Completed
	item, err := h.Portal.Checklist.SetCompleted(actor(c), c.Param("id"), done)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) GetTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.Portal.Checklist.Templates())
}
