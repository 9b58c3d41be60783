package crm

import (
	"sort"
	"time"
)

// Collection names a document collection in the store.
type Collection string

const (
	Queries  Collection = "queries"
	Leads    Collection = "leads"
	Bookings Collection = "bookings"
)

// Field names shared by the editor, the controller and the store adapters.
const (
	FieldTimestamp    = "timestamp"
	FieldBookingDate  = "bookingDate"
	FieldFollowUpDate = "followUpDate"
	FieldLeadStage    = "leadStage"
	FieldRemarks      = "remarks"
)

// DateLayout is the format of every calendar-date field (follow-ups, travel dates).
const DateLayout = "2006-01-02"

// Remark is a timestamped free-text note attached to a query or lead.
type Remark struct {
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Query is an initial customer inquiry.
type Query struct {
	ID            string    `bson:"-" json:"-"`
	QueryID       string    `bson:"queryId" json:"queryId"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	AgentEmail    string    `bson:"agentEmail" json:"agentEmail"`
	Source        string    `bson:"source" json:"source"`
	CxName        string    `bson:"cxName" json:"cxName"`
	ContactNumber string    `bson:"contactNumber" json:"contactNumber"`
	Email         string    `bson:"email" json:"email"`
	FollowUpDate  string    `bson:"followUpDate" json:"followUpDate"`
	LeadStage     Stage     `bson:"leadStage" json:"leadStage"`
	Remarks       []Remark  `bson:"remarks" json:"remarks"`
}

// Lead is a query qualified for active sales follow-up.
type Lead struct {
	ID             string    `bson:"-" json:"-"`
	QueryID        string    `bson:"queryId" json:"queryId"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	AgentEmail     string    `bson:"agentEmail" json:"agentEmail"`
	Source         string    `bson:"source" json:"source"`
	CxName         string    `bson:"cxName" json:"cxName"`
	ContactNumber  string    `bson:"contactNumber" json:"contactNumber"`
	Email          string    `bson:"email" json:"email"`
	ProductService string    `bson:"productService" json:"productService"`
	FollowUpDate   string    `bson:"followUpDate" json:"followUpDate"`
	LeadStage      Stage     `bson:"leadStage" json:"leadStage"`
	Remarks        []Remark  `bson:"remarks" json:"remarks"`
}

// FlightSegment is one leg of a booked itinerary.
type FlightSegment struct {
	Airline    string `bson:"airline" json:"airline"`
	FlightNo   string `bson:"flightNo" json:"flightNo"`
	DepFrom    string `bson:"depFrom" json:"depFrom"`
	DepDate    string `bson:"depDate" json:"depDate"`
	ArrAt      string `bson:"arrAt" json:"arrAt"`
	ArrDate    string `bson:"arrDate" json:"arrDate"`
	ConnFlight string `bson:"connFlight" json:"connFlight"`
}

// HotelStay is one booked accommodation.
type HotelStay struct {
	Name     string `bson:"name" json:"name"`
	Room     string `bson:"room" json:"room"`
	Qty      string `bson:"qty" json:"qty"`
	Guests   string `bson:"guests" json:"guests"`
	Board    string `bson:"board" json:"board"`
	Checkin  string `bson:"checkin" json:"checkin"`
	Checkout string `bson:"checkout" json:"checkout"`
	City     string `bson:"city" json:"city"`
}

// OtherService is any booked item that is neither a flight nor a hotel.
type OtherService struct {
	Narration string `bson:"narration" json:"narration"`
	Pax       string `bson:"pax" json:"pax"`
}

// Booking is a finalized travel order.
type Booking struct {
	ID            string          `bson:"-" json:"-"`
	FolderNo      string          `bson:"folderNo" json:"folderNo"`
	BookingDate   time.Time       `bson:"bookingDate" json:"bookingDate"`
	QueryID       string          `bson:"queryId" json:"queryId"`
	AgentEmail    string          `bson:"agentEmail" json:"agentEmail"`
	CxName        string          `bson:"cxName" json:"cxName"`
	ContactNumber string          `bson:"contactNumber" json:"contactNumber"`
	Email         string          `bson:"email" json:"email"`
	Flights       []FlightSegment `bson:"flights" json:"flights"`
	Hotels        []HotelStay     `bson:"hotels" json:"hotels"`
	Others        []OtherService  `bson:"others" json:"others"`
}

// ActiveRecord names the record a modal or form currently targets.
type ActiveRecord struct {
	Type Collection
	ID   string
}

// IsZero reports whether no record is selected.
func (a ActiveRecord) IsZero() bool {
	return a.Type == "" || a.ID == ""
}

// LatestRemark returns the text of the last stored remark.
func LatestRemark(remarks []Remark) (string, bool) {
	if len(remarks) == 0 {
		return "", false
	}
	return remarks[len(remarks)-1].Text, true
}

// AppendRemark returns a new slice holding remarks followed by r. The input is not modified.
func AppendRemark(remarks []Remark, r Remark) []Remark {
	out := make([]Remark, 0, len(remarks)+1)
	out = append(out, remarks...)
	return append(out, r)
}

// NewestFirst returns a copy of remarks sorted by timestamp, newest first.
// Remarks with equal timestamps keep their stored order.
func NewestFirst(remarks []Remark) []Remark {
	out := append([]Remark(nil), remarks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
