package pgrepo

import (
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

var fieldColumns = map[consultation.Field]string{
	consultation.FieldUHID:          "uhid",
	consultation.FieldPatientName:   "patient_name",
	consultation.FieldDepartment:    "department",
	consultation.FieldDoctorName:    "doctor_name",
	consultation.FieldConditionType: "condition_type",
	consultation.FieldLocation:      "location",
}

var sortColumns = map[consultation.SortField]string{
	consultation.SortByCreatedAt:   "created_at",
	consultation.SortByDate:        "date",
	consultation.SortByPatientName: "patient_name",
	consultation.SortByUHID:        "uhid",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// whereClause renders p as a parameterised SQL condition. An empty string
// means the predicate is True and no WHERE is needed.
func whereClause(p consultation.Predicate) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, term := range p.Terms() {
		switch t := term.(type) {
		case consultation.ContainsFold:
			col, ok := fieldColumns[t.Field]
			if !ok {
				return "", nil, fmt.Errorf("unknown filter field %q", t.Field)
			}
			parts = append(parts, col+` ILIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(t.Value)+"%")
		case consultation.Equals:
			col, ok := fieldColumns[t.Field]
			if !ok {
				return "", nil, fmt.Errorf("unknown filter field %q", t.Field)
			}
			parts = append(parts, col+" = ?")
			args = append(args, t.Value)
		case consultation.DateRange:
			if t.From != nil {
				parts = append(parts, "date >= ?")
				args = append(args, *t.From)
			}
			if t.To != nil {
				parts = append(parts, "date <= ?")
				args = append(args, *t.To)
			}
		default:
			return "", nil, fmt.Errorf("unsupported predicate term %T", term)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}
