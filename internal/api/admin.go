package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/regionstat/internal/dataset"
	domerrors "github.com/garyellow/regionstat/internal/errors"
)

// adminAuthMiddleware requires "Authorization: Bearer <token>".
func adminAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
			return
		}
		c.Next()
	}
}

// importDataset stores the request body as one dataset of a snapshot and
// drops the cached build, so the next request sees the new text.
func (h *Handler) importDataset(c *gin.Context) {
	id := c.Param("id")
	if err := dataset.ValidateSnapshotID(id); err != nil {
		h.fail(c, err)
		return
	}
	kind, err := dataset.ParseKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, domerrors.NewValidationError("body", fmt.Sprintf("larger than %d bytes", MaxImportSize)))
			return
		}
		h.fail(c, fmt.Errorf("read import body: %w", err))
		return
	}

	text := string(body)
	table, err := dataset.Parse(kind, text)
	if err != nil {
		h.recordImport(kind, "invalid")
		h.fail(c, err)
		return
	}
	if table == nil {
		h.recordImport(kind, "invalid")
		h.fail(c, domerrors.NewValidationError("body", "dataset text is empty"))
		return
	}

	saved, err := h.store.SaveDataset(c.Request.Context(), id, string(kind), text)
	if err != nil {
		h.recordImport(kind, "error")
		h.fail(c, fmt.Errorf("save dataset %s/%s: %w", id, kind, err))
		return
	}
	h.catalog.Forget(id)
	h.recordImport(kind, "success")

	h.log.WithSnapshot(id).WithField("kind", string(kind)).
		WithField("rows", len(table.Rows)).
		WithField("sha256", saved.SHA256).
		InfoContext(c.Request.Context(), "Dataset imported")

	c.JSON(http.StatusCreated, gin.H{
		"dataset": saved,
		"rows":    len(table.Rows),
	})
}

func (h *Handler) recordImport(kind dataset.Kind, status string) {
	if h.metrics != nil {
		h.metrics.RecordDatasetImport(string(kind), status)
	}
}
