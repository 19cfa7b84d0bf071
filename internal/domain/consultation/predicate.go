package consultation

import (
	"strings"
	"time"
)

// Field names a filterable string column of Record. Storage drivers map it
// to their own column or document key.
type Field string

const (
	FieldUHID          Field = "uhid"
	FieldPatientName   Field = "patientName"
	FieldDepartment    Field = "department"
	FieldDoctorName    Field = "doctorName"
	FieldConditionType Field = "conditionType"
	FieldLocation      Field = "location"
)

// Value returns the string value of f on r.
func (r *Record) Value(f Field) string {
	switch f {
	case FieldUHID:
		return r.UHID
	case FieldPatientName:
		return r.PatientName
	case FieldDepartment:
		return r.Department
	case FieldDoctorName:
		return r.DoctorName
	case FieldConditionType:
		return string(r.ConditionType)
	case FieldLocation:
		return r.Location
	}
	return ""
}

// Term is one conjunct of a Predicate. The set of implementations is closed.
type Term interface {
	matches(r *Record) bool
	isTerm()
}

// ContainsFold matches when Value is a case-insensitive literal substring of
// the field. Value is never interpreted as a pattern.
type ContainsFold struct {
	Field Field
	Value string
}

func (t ContainsFold) matches(r *Record) bool {
	return strings.Contains(strings.ToLower(r.Value(t.Field)), strings.ToLower(t.Value))
}

func (ContainsFold) isTerm() {}

// Equals matches when the stored field is exactly Value.
type Equals struct {
	Field Field
	Value string
}

func (t Equals) matches(r *Record) bool {
	return r.Value(t.Field) == t.Value
}

func (Equals) isTerm() {}

// DateRange bounds Record.Date. Both ends are inclusive; a nil end is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (t DateRange) matches(r *Record) bool {
	if t.From != nil && r.Date.Before(*t.From) {
		return false
	}
	if t.To != nil && r.Date.After(*t.To) {
		return false
	}
	return true
}

func (DateRange) isTerm() {}

// Predicate is a conjunction of terms. The zero value is True.
type Predicate struct {
	terms []Term
}

func True() Predicate {
	return Predicate{}
}

// And returns a new predicate with t appended. p itself is not modified.
func (p Predicate) And(t Term) Predicate {
	terms := make([]Term, 0, len(p.terms)+1)
	terms = append(terms, p.terms...)
	return Predicate{terms: append(terms, t)}
}

func (p Predicate) Terms() []Term {
	out := make([]Term, len(p.terms))
	copy(out, p.terms)
	return out
}

func (p Predicate) IsTrue() bool {
	return len(p.terms) == 0
}

func (p Predicate) Matches(r *Record) bool {
	for _, t := range p.terms {
		if !t.matches(r) {
			return false
		}
	}
	return true
}
