package consultation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConditionType string

const (
	ConditionNormal       ConditionType = "normal"
	ConditionCriticalCare ConditionType = "CriticalCare"
	ConditionMLC          ConditionType = "MLC"
)

// ParseConditionType accepts the canonical spelling case-insensitively.
// An empty input yields ConditionNormal.
func ParseConditionType(s string) (ConditionType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ConditionNormal, nil
	}
	for _, c := range []ConditionType{ConditionNormal, ConditionCriticalCare, ConditionMLC} {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ErrInvalidConditionType
}

func (c ConditionType) IsValid() bool {
	switch c {
	case ConditionNormal, ConditionCriticalCare, ConditionMLC:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Record is the metadata for one recorded consultation. The video bytes live
// in the storage tree under VideoFolder/{ID}.webm and are not tracked here.
type Record struct {
	ID        string    `gorm:"column:id;type:char(24);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	PatientName       string        `gorm:"column:patient_name;type:varchar(200);not null" json:"patientName"`
	UHID              string        `gorm:"column:uhid;type:varchar(50);not null;index" json:"uhid"`
	Department        string        `gorm:"column:department;type:varchar(100);not null" json:"department"`
	DoctorName        string        `gorm:"column:doctor_name;type:varchar(200)" json:"doctorName"`
	AttenderName      string        `gorm:"column:attender_name;type:varchar(200)" json:"attenderName"`
	ICUConsultantName string        `gorm:"column:icu_consultant_name;type:varchar(200)" json:"icuConsultantName"`
	ConditionType     ConditionType `gorm:"column:condition_type;type:varchar(20);not null;default:'normal'" json:"conditionType"`

	// Copied from the creator's session; no referential link to a site list.
	Location string `gorm:"column:location;type:varchar(100);index" json:"location"`

	Date                     time.Time `gorm:"column:date;not null;index" json:"date"`
	RecordingDurationSeconds int       `gorm:"column:recording_duration_seconds;default:0" json:"recordingDurationSeconds"`
	Status                   Status    `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	// Set by ingestion. VideoFolder is the DD-MM-YYYY folder the last upload
	// landed in; it is a hint for reconciliation, not proof the file exists.
	VideoUploadedAt *time.Time `gorm:"column:video_uploaded_at" json:"videoUploadedAt,omitempty"`
	VideoFolder     string     `gorm:"column:video_folder;type:varchar(10);index" json:"videoFolder,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"createdBy"`
}

func (Record) TableName() string {
	return "clinical.consultations"
}

// VideoFileName is the canonical name of the record's video.
func (r *Record) VideoFileName() string {
	return VideoFileName(r.ID)
}

const VideoExt = ".webm"

func VideoFileName(id string) string {
	return id + VideoExt
}

type CreateCommand struct {
	PatientName              string
	UHID                     string
	Department               string
	DoctorName               string
	AttenderName             string
	ICUConsultantName        string
	ConditionType            string
	Date                     time.Time
	RecordingDurationSeconds int
	Location                 string
	CreatedBy                uuid.UUID
}

// UpdateCommand carries a partial update. ID, UHID and the audit timestamps
// are deliberately absent.
type UpdateCommand struct {
	PatientName              *string
	Department               *string
	DoctorName               *string
	AttenderName             *string
	ICUConsultantName        *string
	ConditionType            *ConditionType
	Location                 *string
	Date                     *time.Time
	RecordingDurationSeconds *int
	Status                   *Status
}

// Apply copies the set fields onto r.
func (cmd *UpdateCommand) Apply(r *Record) {
	if cmd.PatientName != nil {
		r.PatientName = *cmd.PatientName
	}
	if cmd.Department != nil {
		r.Department = *cmd.Department
	}
	if cmd.DoctorName != nil {
		r.DoctorName = *cmd.DoctorName
	}
	if cmd.AttenderName != nil {
		r.AttenderName = *cmd.AttenderName
	}
	if cmd.ICUConsultantName != nil {
		r.ICUConsultantName = *cmd.ICUConsultantName
	}
	if cmd.ConditionType != nil {
		r.ConditionType = *cmd.ConditionType
	}
	if cmd.Location != nil {
		r.Location = *cmd.Location
	}
	if cmd.Date != nil {
		r.Date = *cmd.Date
	}
	if cmd.RecordingDurationSeconds != nil {
		r.RecordingDurationSeconds = *cmd.RecordingDurationSeconds
	}
	if cmd.Status != nil {
		r.Status = *cmd.Status
	}
}

// IsEmpty reports whether the command changes nothing.
func (cmd *UpdateCommand) IsEmpty() bool {
	return cmd.PatientName == nil && cmd.Department == nil && cmd.DoctorName == nil &&
		cmd.AttenderName == nil && cmd.ICUConsultantName == nil && cmd.ConditionType == nil &&
		cmd.Location == nil && cmd.Date == nil && cmd.RecordingDurationSeconds == nil &&
		cmd.Status == nil
}

type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByDate        SortField = "date"
	SortByPatientName SortField = "patientName"
	SortByUHID        SortField = "uhid"
)

func ParseSortField(s string) (SortField, bool) {
	switch SortField(s) {
	case "":
		return SortByCreatedAt, true
	case SortByCreatedAt, SortByDate, SortByPatientName, SortByUHID:
		return SortField(s), true
	}
	return "", false
}

type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

func ParseSortOrder(s string) (SortOrder, bool) {
	switch strings.ToLower(s) {
	case "", "desc":
		return SortDesc, true
	case "asc":
		return SortAsc, true
	}
	return "", false
}

const MaxPageSize = 500

// ListQuery is a built predicate plus ordering. PageSize zero means unpaged.
// Ties on the sort field are broken by ID in the same direction.
type ListQuery struct {
	Predicate Predicate
	SortBy    SortField
	SortOrder SortOrder
	Page      int
	PageSize  int
}

func (q *ListQuery) Offset() int {
	if q.PageSize <= 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

type PagedRecords struct {
	Records    []*Record
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}

func NewPagedRecords(records []*Record, total int64, q *ListQuery) *PagedRecords {
	p := &PagedRecords{Records: records, TotalCount: total, Page: 1, PageSize: q.PageSize}
	if q.Page > 0 {
		p.Page = q.Page
	}
	if q.PageSize > 0 {
		p.TotalPages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	} else if total > 0 {
		p.TotalPages = 1
	}
	return p
}
