package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
)

type createConsultationRequest struct {
	PatientName              string `json:"patientName"`
	UHID                     string `json:"uhid"`
	Department               string `json:"department"`
	DoctorName               string `json:"doctorName"`
	AttenderName             string `json:"attenderName"`
	ICUConsultantName        string `json:"icuConsultantName"`
	ConditionType            string `json:"conditionType"`
	Date                     string `json:"date"`
	RecordingDurationSeconds int    `json:"recordingDurationSeconds"`
}

type updateConsultationRequest struct {
	PatientName              *string `json:"patientName"`
	Department               *string `json:"department"`
	DoctorName               *string `json:"doctorName"`
	AttenderName             *string `json:"attenderName"`
	ICUConsultantName        *string `json:"icuConsultantName"`
	ConditionType            *string `json:"conditionType"`
	Location                 *string `json:"location"`
	Date                     *string `json:"date"`
	RecordingDurationSeconds *int    `json:"recordingDurationSeconds"`
	Status                   *string `json:"status"`
}

// parseRecordDate accepts RFC 3339 or a bare YYYY-MM-DD in server local time.
func parseRecordDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	var req createConsultationRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &consultation.CreateCommand{
		PatientName:              req.PatientName,
		UHID:                     req.UHID,
		Department:               req.Department,
		DoctorName:               req.DoctorName,
		AttenderName:             req.AttenderName,
		ICUConsultantName:        req.ICUConsultantName,
		ConditionType:            req.ConditionType,
		RecordingDurationSeconds: req.RecordingDurationSeconds,
	}
	if strings.TrimSpace(req.Date) != "" {
		d, ok := parseRecordDate(req.Date)
		if !ok {
			h.respondServiceError(c, &service.ValidationError{Fields: []string{"date must be RFC 3339 or YYYY-MM-DD"}})
			return
		}
		cmd.Date = d
	}

	rec, err := h.consultations.Create(c.Request.Context(), callerFrom(c), cmd)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	rec, err := h.consultations.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	var req updateConsultationRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd, fieldErrs := req.toCommand()
	if len(fieldErrs) > 0 {
		h.respondServiceError(c, &service.ValidationError{Fields: fieldErrs})
		return
	}

	rec, err := h.consultations.Update(c.Request.Context(), callerFrom(c), c.Param("id"), cmd)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (r *updateConsultationRequest) toCommand() (*consultation.UpdateCommand, []string) {
	var errs []string
	cmd := &consultation.UpdateCommand{
		PatientName:              r.PatientName,
		Department:               r.Department,
		DoctorName:               r.DoctorName,
		AttenderName:             r.AttenderName,
		ICUConsultantName:        r.ICUConsultantName,
		Location:                 r.Location,
		RecordingDurationSeconds: r.RecordingDurationSeconds,
	}

	if r.ConditionType != nil {
		ct, err := consultation.ParseConditionType(*r.ConditionType)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			cmd.ConditionType = &ct
		}
	}
	if r.Status != nil {
		st := consultation.Status(strings.ToLower(strings.TrimSpace(*r.Status)))
		cmd.Status = &st
	}
	if r.Date != nil {
		d, ok := parseRecordDate(*r.Date)
		if !ok {
			errs = append(errs, "date must be RFC 3339 or YYYY-MM-DD")
		} else {
			cmd.Date = &d
		}
	}
	return cmd, errs
}

func (h *Handler) DeleteConsultation(c *gin.Context) {
	if err := h.consultations.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[any]{Success: true, Message: "consultation deleted"})
}

// FilterConsultations answers the filter endpoint with a bare JSON array.
// Totals travel in headers so existing clients that expect an array keep working.
func (h *Handler) FilterConsultations(c *gin.Context) {
	page, ok := parseQueryInt(c, "page", 0)
	if !ok {
		return
	}
	pageSize, ok := parseQueryInt(c, "pageSize", 0)
	if !ok {
		return
	}

	in := consultation.FilterInput{
		DateFrom:      c.Query("dateFrom"),
		DateTo:        c.Query("dateTo"),
		UHID:          c.Query("uhid"),
		PatientName:   c.Query("patientName"),
		Department:    c.Query("department"),
		DoctorName:    c.Query("doctorName"),
		ConditionType: c.Query("conditionType"),
		Location:      c.Query("location"),
	}
	opts := service.ListOptions{
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      page,
		PageSize:  pageSize,
	}

	result, err := h.consultations.List(c.Request.Context(), callerFrom(c), in, opts)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	records := result.Records
	if records == nil {
		records = []*consultation.Record{}
	}
	c.Header("X-Total-Count", strconv.FormatInt(result.TotalCount, 10))
	if result.PageSize > 0 {
		c.Header("X-Page", strconv.Itoa(result.Page))
		c.Header("X-Page-Size", strconv.Itoa(result.PageSize))
		c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
	}
	c.JSON(http.StatusOK, records)
}
