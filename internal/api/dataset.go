package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-compliance/internal/export"
	"github.com/celerix-dev/celerix-compliance/internal/portal"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// datasetHandlers serves the routes shared by every dataset.
type datasetHandlers struct {
	h *Handler
	d portal.Dataset
}

func (dh datasetHandlers) register(g gin.IRouter) {
	g.GET("", dh.List)
	g.GET("/stats", dh.Stats)
	g.GET("/export", dh.Export)
	g.GET("/:id", dh.Get)
	g.DELETE("/:id", dh.Delete)

	g.GET("/view", dh.View)
	g.PUT("/view/query", dh.SetQuery)
	g.POST("/view/sort", dh.SortBy)
	g.PUT("/view/page", dh.SetPage)
	g.POST("/view/selection/toggle", dh.Toggle)
	g.POST("/view/selection/all", dh.SelectAll)
	g.DELETE("/view/selection", dh.ClearSelection)
	g.POST("/view/batch/delete", dh.BatchDelete)
	g.POST("/view/batch/export", dh.BatchExport)
}

func (dh datasetHandlers) List(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dh.d.Search(req))
}

func (dh datasetHandlers) Stats(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dh.d.Summarize(q))
}

func exportFormat(c *gin.Context) string {
	return strings.ToLower(c.DefaultQuery("format", export.CSV))
}

// sendExport buffers the whole document so a failed export still gets a JSON
// error response.
func (dh datasetHandlers) sendExport(c *gin.Context, format string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		writeError(c, err)
		return
	}
	exportsTotal.WithLabelValues(dh.d.Name(), format).Inc()
	name := export.Filename(dh.d.Name(), format, dh.h.now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func (dh datasetHandlers) Export(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	format := exportFormat(c)
	dh.sendExport(c, format, func(buf *bytes.Buffer) error {
		return dh.d.Export(buf, format, req)
	})
}

func (dh datasetHandlers) Get(c *gin.Context) {
	rec, err := dh.d.Lookup(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (dh datasetHandlers) Delete(c *gin.Context) {
	if err := dh.d.Remove(actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (dh datasetHandlers) View(c *gin.Context) {
	c.JSON(http.StatusOK, dh.d.Snapshot())
}

func (dh datasetHandlers) SetQuery(c *gin.Context) {
	var q query.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		bindError(c, err)
		return
	}
	dh.d.SetQuery(q)
	c.JSON(http.StatusOK, dh.d.Snapshot())
}

func (dh datasetHandlers) SortBy(c *gin.Context) {
	var input struct {
		Field string `json:"field" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	dh.d.SortBy(input.Field)
	c.JSON(http.StatusOK, dh.d.Snapshot())
}

func (dh datasetHandlers) SetPage(c *gin.Context) {
	var input struct {
		Action string `json:"action" binding:"omitempty,oneof=first prev next last goto"`
		Page   int    `json:"page"`
		Size   int    `json:"size" binding:"omitempty,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if input.Size > 0 {
		dh.d.SetPageSize(input.Size)
	}
	if input.Action != "" {
		if err := dh.d.Navigate(input.Action, input.Page); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, dh.d.Snapshot())
}

func (dh datasetHandlers) Toggle(c *gin.Context) {
	var input struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	on, err := dh.d.Toggle(input.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": input.ID, "selected": on, "selection": dh.d.Selected()})
}

func (dh datasetHandlers) SelectAll(c *gin.Context) {
	n := dh.d.SelectAll()
	c.JSON(http.StatusOK, gin.H{"count": n, "selection": dh.d.Selected()})
}

func (dh datasetHandlers) ClearSelection(c *gin.Context) {
	dh.d.ClearSelection()
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (dh datasetHandlers) BatchDelete(c *gin.Context) {
	ids, err := dh.d.DeleteSelected(actor(c))
	batchRecordsTotal.WithLabelValues(dh.d.Name(), "delete").Add(float64(len(ids)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": ids})
}

func (dh datasetHandlers) BatchExport(c *gin.Context) {
	format := exportFormat(c)
	n := len(dh.d.Selected())
	dh.sendExport(c, format, func(buf *bytes.Buffer) error {
		return dh.d.ExportSelected(buf, format, actor(c))
	})
	if c.Writer.Status() == http.StatusOK {
		batchRecordsTotal.WithLabelValues(dh.d.Name(), "export").Add(float64(n))
	}
}
