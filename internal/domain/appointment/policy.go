package appointment

// Field identifies a mutable appointment attribute for policy evaluation.
type Field string

const (
	FieldDate          Field = "date"
	FieldTimeSlot      Field = "time_slot"
	FieldReason        Field = "reason"
	FieldSymptoms      Field = "symptoms"
	FieldNotes         Field = "notes"
	FieldStatus        Field = "status"
	FieldPrescriptions Field = "prescriptions"
)

// Relation is the caller's relationship to a specific appointment, resolved
// by the service layer before policy evaluation.
type Relation string

const (
	RelationOwner          Relation = "owner"           // patient who booked it
	RelationAssignedDoctor Relation = "assigned_doctor" // doctor it is booked with
	RelationAdmin          Relation = "admin"
	RelationNone           Relation = "none"
)

type Permission int

const (
	Forbidden Permission = iota
	Allowed
	// CancelOnly restricts a status write to the cancelled value.
	CancelOnly
)

// mutationPolicy is the role × field table from which every update decision
// is read. Owners may edit their free-text fields and cancel; the assigned
// doctor and admins may edit everything, but prescriptions stay exclusive to
// the assigned doctor.
var mutationPolicy = map[Relation]map[Field]Permission{
	RelationOwner: {
		FieldReason:   Allowed,
		FieldSymptoms: Allowed,
		FieldNotes:    Allowed,
		FieldStatus:   CancelOnly,
	},
	RelationAssignedDoctor: {
		FieldDate:          Allowed,
		FieldTimeSlot:      Allowed,
		FieldReason:        Allowed,
		FieldSymptoms:      Allowed,
		FieldNotes:         Allowed,
		FieldStatus:        Allowed,
		FieldPrescriptions: Allowed,
	},
	RelationAdmin: {
		FieldDate:     Allowed,
		FieldTimeSlot: Allowed,
		FieldReason:   Allowed,
		FieldSymptoms: Allowed,
		FieldNotes:    Allowed,
		FieldStatus:   Allowed,
	},
}

// PermissionFor returns the permission the relation has on the field.
func PermissionFor(rel Relation, f Field) Permission {
	return mutationPolicy[rel][f]
}

// CanRead reports whether the relation may read the appointment at all.
func CanRead(rel Relation) bool {
	return rel != RelationNone
}
