// Package bookingform manages the booking-creation form: repeating flight,
// hotel and other-service rows, the trip type, and date-order checks.
package bookingform

import (
	"errors"
	"fmt"
	"time"

	"travelcrm/internal/crm"
)

// Section names a repeating part of the form.
type Section string

const (
	Flights Section = "flights"
	Hotels  Section = "hotels"
	Others  Section = "others"
)

// Sections lists the repeating sections in display order.
var Sections = []Section{Flights, Hotels, Others}

// TripType controls how many flight rows the form starts with.
type TripType string

const (
	OneWay    TripType = "one-way"
	RoundTrip TripType = "return"
)

var (
	// ErrLastRow is returned when removing the only row of a section.
	ErrLastRow = errors.New("a section keeps at least one row")
	// ErrUnknownField is returned for a field name the section does not have.
	ErrUnknownField = errors.New("unknown field")
)

const (
	arrivalMessage  = "Arrival Date cannot be before Departure Date."
	checkoutMessage = "Check Out Date cannot be before Check In Date."
)

// Form is the state of one booking-creation form.
type Form struct {
	FolderNo    string
	BookingDate time.Time
	CxName      string
	TripType    TripType

	Flights []crm.FlightSegment
	Hotels  []crm.HotelStay
	Others  []crm.OtherService
}

// New returns a reset form: blank folder, date now, one-way, one blank row per section.
func New(cxName string, now time.Time) *Form {
	return &Form{
		BookingDate: now,
		CxName:      cxName,
		TripType:    OneWay,
		Flights:     []crm.FlightSegment{{}},
		Hotels:      []crm.HotelStay{{}},
		Others:      []crm.OtherService{{}},
	}
}

// Clone returns a copy that shares no rows with f.
func (f *Form) Clone() *Form {
	c := *f
	c.Flights = append([]crm.FlightSegment(nil), f.Flights...)
	c.Hotels = append([]crm.HotelStay(nil), f.Hotels...)
	c.Others = append([]crm.OtherService(nil), f.Others...)
	return &c
}

// Rows returns the number of rows in a section.
func (f *Form) Rows(s Section) int {
	switch s {
	case Flights:
		return len(f.Flights)
	case Hotels:
		return len(f.Hotels)
	case Others:
		return len(f.Others)
	}
	return 0
}

// AddRow appends a blank row to the section.
func (f *Form) AddRow(s Section) {
	switch s {
	case Flights:
		f.Flights = append(f.Flights, crm.FlightSegment{})
	case Hotels:
		f.Hotels = append(f.Hotels, crm.HotelStay{})
	case Others:
		f.Others = append(f.Others, crm.OtherService{})
	}
}

// RemoveRow deletes row i unless it is the last one left in its section.
func (f *Form) RemoveRow(s Section, i int) error {
	if f.Rows(s) <= 1 {
		return ErrLastRow
	}
	if i < 0 || i >= f.Rows(s) {
		return fmt.Errorf("remove %s row %d: out of range", s, i)
	}
	switch s {
	case Flights:
		f.Flights = append(f.Flights[:i], f.Flights[i+1:]...)
	case Hotels:
		f.Hotels = append(f.Hotels[:i], f.Hotels[i+1:]...)
	case Others:
		f.Others = append(f.Others[:i], f.Others[i+1:]...)
	}
	return nil
}

// SetTripType switches the trip type. A return trip gets a second blank flight row
// when fewer than two exist; a one-way trip keeps only the first flight row.
func (f *Form) SetTripType(t TripType) {
	f.TripType = t
	switch t {
	case RoundTrip:
		for len(f.Flights) < 2 {
			f.Flights = append(f.Flights, crm.FlightSegment{})
		}
	case OneWay:
		if len(f.Flights) > 1 {
			f.Flights = f.Flights[:1]
		}
	}
}

// ToggleTripType flips between one-way and return.
func (f *Form) ToggleTripType() {
	if f.TripType == RoundTrip {
		f.SetTripType(OneWay)
		return
	}
	f.SetTripType(RoundTrip)
}

// Get reads one field of a row.
func (f *Form) Get(s Section, row int, field string) (string, error) {
	ptr, err := f.fieldPtr(s, row, field)
	if err != nil {
		return "", err
	}
	return *ptr, nil
}

// SetField writes one field of a row, then checks the row's date order. An inverted
// range clears the offending field and returns a *crm.ValidationError for the alert.
func (f *Form) SetField(s Section, row int, field, value string) error {
	ptr, err := f.fieldPtr(s, row, field)
	if err != nil {
		return err
	}
	*ptr = value
	return f.checkRow(s, row)
}

func (f *Form) checkRow(s Section, row int) error {
	switch s {
	case Flights:
		r := &f.Flights[row]
		if err := crm.CheckDateOrder("arrDate", r.DepDate, r.ArrDate, arrivalMessage); err != nil {
			r.ArrDate = ""
			return err
		}
	case Hotels:
		r := &f.Hotels[row]
		if err := crm.CheckDateOrder("checkout", r.Checkin, r.Checkout, checkoutMessage); err != nil {
			r.Checkout = ""
			return err
		}
	}
	return nil
}

// Assembled is the itinerary read from the form at submit time.
type Assembled struct {
	Flights []crm.FlightSegment
	Hotels  []crm.HotelStay
	Others  []crm.OtherService
	// Alerts lists every inverted date range that was cleared. It never blocks submission.
	Alerts []crm.FieldError
}

// Assemble checks every row, clearing inverted date ranges, and copies the rows out.
func (f *Form) Assemble() Assembled {
	var alerts []crm.FieldError
	for _, s := range []Section{Flights, Hotels} {
		for i := 0; i < f.Rows(s); i++ {
			var ve *crm.ValidationError
			if err := f.checkRow(s, i); errors.As(err, &ve) {
				for _, fe := range ve.Errors {
					alerts = append(alerts, crm.FieldError{
						Field:   fmt.Sprintf("%s[%d].%s", s, i, fe.Field),
						Message: fe.Message,
					})
				}
			}
		}
	}
	return Assembled{
		Flights: append([]crm.FlightSegment(nil), f.Flights...),
		Hotels:  append([]crm.HotelStay(nil), f.Hotels...),
		Others:  append([]crm.OtherService(nil), f.Others...),
		Alerts:  alerts,
	}
}
