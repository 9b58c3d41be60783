package crm

// Stage is the pipeline status of a query or lead.
type Stage string

const (
	StageFreshQuery Stage = "Fresh Query"
	StageInContact  Stage = "In-Contact"
	StageQualified  Stage = "Qualified"
	StageLost       Stage = "Lost"

	StageFreshLead Stage = "Fresh Lead"
	StageFollowUps Stage = "Follow ups"
	StageBooked    Stage = "Booked"
)

var (
	queryStages = []Stage{StageFreshQuery, StageInContact, StageQualified, StageLost}
	leadStages  = []Stage{StageFreshLead, StageFollowUps, StageLost, StageBooked}
)

// StageOptions returns the selectable stages for a collection, in display order.
// Bookings have no stage and return nil.
func StageOptions(c Collection) []Stage {
	var src []Stage
	switch c {
	case Queries:
		src = queryStages
	case Leads:
		src = leadStages
	default:
		return nil
	}
	out := make([]Stage, len(src))
	copy(out, src)
	return out
}

// ValidStage reports whether s belongs to the stage set of c.
func ValidStage(c Collection, s Stage) bool {
	for _, opt := range StageOptions(c) {
		if opt == s {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends the pipeline for records of c.
func Terminal(c Collection, s Stage) bool {
	switch c {
	case Queries:
		return s == StageLost
	case Leads:
		return s == StageLost || s == StageBooked
	}
	return false
}

// Transition is the lifecycle side effect of a committed stage edit.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionPromoteLead
	TransitionCreateBooking
)

func (t Transition) String() string {
	switch t {
	case TransitionPromoteLead:
		return "promote_lead"
	case TransitionCreateBooking:
		return "create_booking"
	default:
		return "none"
	}
}

// TransitionFor returns the side effect of writing value into field on a record of c.
// Only a leadStage edit reaching Qualified (queries) or Booked (leads) triggers anything.
func TransitionFor(c Collection, field, value string) Transition {
	if field != FieldLeadStage {
		return TransitionNone
	}
	switch {
	case c == Queries && Stage(value) == StageQualified:
		return TransitionPromoteLead
	case c == Leads && Stage(value) == StageBooked:
		return TransitionCreateBooking
	}
	return TransitionNone
}

// Editable reports whether field can be edited in place on a table of c.
func Editable(c Collection, field string) bool {
	if c != Queries && c != Leads {
		return false
	}
	return field == FieldFollowUpDate || field == FieldLeadStage
}
