package v1

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
)

// Reconcile reports orphaned and missing videos for an optional
// [from, to] window given as DD-MM-YYYY query parameters.
func (h *Handler) Reconcile(c *gin.Context) {
	var fieldErrs []string
	from, ok := parseFolderDate(c.Query("from"))
	if !ok {
		fieldErrs = append(fieldErrs, "from must be DD-MM-YYYY")
	}
	to, ok := parseFolderDate(c.Query("to"))
	if !ok {
		fieldErrs = append(fieldErrs, "to must be DD-MM-YYYY")
	}
	if len(fieldErrs) > 0 {
		h.respondServiceError(c, &service.ValidationError{Fields: fieldErrs})
		return
	}

	report, err := h.reconcile.Run(c.Request.Context(), from, to)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, report)
}

// parseFolderDate returns the zero time for an empty value.
func parseFolderDate(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, true
	}
	folder, err := storage.ParseFolder(s)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(storage.DateLayout, folder)
	return t, err == nil
}
