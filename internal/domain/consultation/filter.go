package consultation

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
)

// FilterInput holds the raw, optional query inputs of the filter endpoint.
type FilterInput struct {
	DateFrom      string
	DateTo        string
	UHID          string
	PatientName   string
	Department    string
	DoctorName    string
	ConditionType string
	Location      string
}

const filterDateLayout = "2006-01-02"

// BuildPredicate composes the scoped predicate for a caller. Access scoping
// is applied first: admins are unrestricted and may filter location by
// substring, non-admins are pinned to their own location whatever the input
// says, and non-admins without a location get ErrEmptyScope. Day bounds are
// interpreted in loc.
func BuildPredicate(in FilterInput, access domain.AccessContext, loc *time.Location) (Predicate, error) {
	p := True()

	if access.IsAdmin() {
		if v := strings.TrimSpace(in.Location); v != "" {
			p = p.And(ContainsFold{Field: FieldLocation, Value: v})
		}
	} else {
		if !access.HasLocation() {
			return Predicate{}, ErrEmptyScope
		}
		p = p.And(Equals{Field: FieldLocation, Value: access.Location})
	}

	dr, err := parseDateRange(in.DateFrom, in.DateTo, loc)
	if err != nil {
		return Predicate{}, err
	}
	if dr.From != nil || dr.To != nil {
		p = p.And(dr)
	}

	for _, f := range []struct {
		field Field
		value string
	}{
		{FieldUHID, in.UHID},
		{FieldPatientName, in.PatientName},
		{FieldDepartment, in.Department},
		{FieldDoctorName, in.DoctorName},
		{FieldConditionType, in.ConditionType},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			p = p.And(ContainsFold{Field: f.field, Value: v})
		}
	}

	return p, nil
}

func parseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	var dr DateRange

	if s := strings.TrimSpace(from); s != "" {
		d, err := time.ParseInLocation(filterDateLayout, s, loc)
		if err != nil {
			return dr, ErrInvalidDateFilter
		}
		dr.From = &d
	}
	if s := strings.TrimSpace(to); s != "" {
		d, err := time.ParseInLocation(filterDateLayout, s, loc)
		if err != nil {
			return dr, ErrInvalidDateFilter
		}
		end := d.AddDate(0, 0, 1).Add(-time.Millisecond)
		dr.To = &end
	}
	if dr.From != nil && dr.To != nil && dr.From.After(*dr.To) {
		return dr, ErrInvalidDateRange
	}
	return dr, nil
}
