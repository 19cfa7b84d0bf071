package mongorepo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

// Document keys match the Field names; this set guards against anything else.
var fieldKeys = map[consultation.Field]string{
	consultation.FieldUHID:          "uhid",
	consultation.FieldPatientName:   "patientName",
	consultation.FieldDepartment:    "department",
	consultation.FieldDoctorName:    "doctorName",
	consultation.FieldConditionType: "conditionType",
	consultation.FieldLocation:      "location",
}

var sortKeys = map[consultation.SortField]string{
	consultation.SortByCreatedAt:   "createdAt",
	consultation.SortByDate:        "date",
	consultation.SortByPatientName: "patientName",
	consultation.SortByUHID:        "uhid",
}

// filterFor translates p into a query document. User input is quoted before
// it goes into a regex so it only ever matches literally.
func filterFor(p consultation.Predicate) (bson.D, error) {
	var clauses bson.A
	for _, term := range p.Terms() {
		switch t := term.(type) {
		case consultation.ContainsFold:
			key, ok := fieldKeys[t.Field]
			if !ok {
				return nil, fmt.Errorf("unknown filter field %q", t.Field)
			}
			clauses = append(clauses, bson.D{{Key: key, Value: primitive.Regex{
				Pattern: regexp.QuoteMeta(t.Value),
				Options: "i",
			}}})
		case consultation.Equals:
			key, ok := fieldKeys[t.Field]
			if !ok {
				return nil, fmt.Errorf("unknown filter field %q", t.Field)
			}
			clauses = append(clauses, bson.D{{Key: key, Value: t.Value}})
		case consultation.DateRange:
			bounds := bson.D{}
			if t.From != nil {
				bounds = append(bounds, bson.E{Key: "$gte", Value: *t.From})
			}
			if t.To != nil {
				bounds = append(bounds, bson.E{Key: "$lte", Value: *t.To})
			}
			if len(bounds) > 0 {
				clauses = append(clauses, bson.D{{Key: "date", Value: bounds}})
			}
		default:
			return nil, fmt.Errorf("unsupported predicate term %T", term)
		}
	}
	if len(clauses) == 0 {
		return bson.D{}, nil
	}
	return bson.D{{Key: "$and", Value: clauses}}, nil
}

func sortFor(by consultation.SortField, order consultation.SortOrder) bson.D {
	key, ok := sortKeys[by]
	if !ok {
		key = sortKeys[consultation.SortByCreatedAt]
	}
	dir := -1
	if order == consultation.SortAsc {
		dir = 1
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: -1}}
}
