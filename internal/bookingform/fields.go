package bookingform

import (
	"fmt"

	"travelcrm/internal/crm"
)

// FieldSpec describes one input of a repeating row.
type FieldSpec struct {
	Name  string
	Label string
	Date  bool
}

var sectionFields = map[Section][]FieldSpec{
	Flights: {
		{Name: "airline", Label: "Airline"},
		{Name: "flightNo", Label: "Flight No"},
		{Name: "depFrom", Label: "Departure From"},
		{Name: "depDate", Label: "Departure Date", Date: true},
		{Name: "arrAt", Label: "Arrival At"},
		{Name: "arrDate", Label: "Arrival Date", Date: true},
		{Name: "connFlight", Label: "Connecting Flight"},
	},
	Hotels: {
		{Name: "name", Label: "Property"},
		{Name: "room", Label: "Room Type"},
		{Name: "qty", Label: "Qty"},
		{Name: "guests", Label: "Guests"},
		{Name: "board", Label: "Board"},
		{Name: "checkin", Label: "Check In", Date: true},
		{Name: "checkout", Label: "Check Out", Date: true},
		{Name: "city", Label: "City"},
	},
	Others: {
		{Name: "narration", Label: "Narration"},
		{Name: "pax", Label: "PAX"},
	},
}

// Fields returns the inputs of one row of s, in display order.
func Fields(s Section) []FieldSpec {
	return append([]FieldSpec(nil), sectionFields[s]...)
}

func (f *Form) fieldPtr(s Section, row int, field string) (*string, error) {
	if row < 0 || row >= f.Rows(s) {
		return nil, fmt.Errorf("%s row %d: out of range", s, row)
	}
	var ptr *string
	switch s {
	case Flights:
		ptr = flightField(&f.Flights[row], field)
	case Hotels:
		ptr = hotelField(&f.Hotels[row], field)
	case Others:
		ptr = otherField(&f.Others[row], field)
	}
	if ptr == nil {
		return nil, fmt.Errorf("%s.%s: %w", s, field, ErrUnknownField)
	}
	return ptr, nil
}

func flightField(r *crm.FlightSegment, field string) *string {
	switch field {
	case "airline":
		return &r.Airline
	case "flightNo":
		return &r.FlightNo
	case "depFrom":
		return &r.DepFrom
	case "depDate":
		return &r.DepDate
	case "arrAt":
		return &r.ArrAt
	case "arrDate":
		return &r.ArrDate
	case "connFlight":
		return &r.ConnFlight
	}
	return nil
}

func hotelField(r *crm.HotelStay, field string) *string {
	switch field {
	case "name":
		return &r.Name
	case "room":
		return &r.Room
	case "qty":
		return &r.Qty
	case "guests":
		return &r.Guests
	case "board":
		return &r.Board
	case "checkin":
		return &r.Checkin
	case "checkout":
		return &r.Checkout
	case "city":
		return &r.City
	}
	return nil
}

func otherField(r *crm.OtherService, field string) *string {
	switch field {
	case "narration":
		return &r.Narration
	case "pax":
		return &r.Pax
	}
	return nil
}
