package viator

import (
	"strings"

	"bitbucket.org/vron/connector-hub/internal/ron"
	"bitbucket.org/vron/connector-hub/internal/xmldoc"
)

// Kind is the request kind, determined by the inbound root tag.
type Kind string

const (
	KindBooking           Kind = "BookingRequest"
	KindAvailability      Kind = "AvailabilityRequest"
	KindTourList          Kind = "TourListRequest"
	KindBatchAvailability Kind = "BatchAvailabilityRequest"
)

// KindOf maps a root tag to a supported request kind, "" when unsupported.
func KindOf(rootTag string) Kind {
	switch Kind(rootTag) {
	case KindBooking, KindAvailability, KindTourList, KindBatchAvailability:
		return Kind(rootTag)
	}
	return ""
}

// fieldMapping binds one canonical reservation field to the inbound tag it
// is read from. Tables are iterated in order, so validation failures are
// deterministic.
type fieldMapping struct {
	field    string
	tag      string
	required bool
}

var bookingMappings = []fieldMapping{
	{"api_key", "ApiKey", true},
	{"external_reference", "ExternalReference", true},
	{"timestamp", "Timestamp", true},
	{"distributor_id", "ResellerId", true},
	{"tour_code", "SupplierProductCode", true},
	{"tour_date", "TravelDate", true},
	{"voucher_number", "BookingReference", true},
	{"basis_id", "TourOptions", true},
	{"sub_basis_id", "TourOptions", true},
	{"tour_time_id", "TourOptions", true},
	{"pax_total", "AgeBandMap", true},
	{"default_pickup_key", "TourOptions", true},
	{"pickup_point", "PickupPoint", true},
	{"first_name", "GivenName", true},
	{"last_name", "Surname", true},
	{"traveller_identifier", "TravellerIdentifier", true},
	{"email", "ContactValue", false},
	{"mobile", "ContactValue", false},
}

var availabilityMappings = []fieldMapping{
	{"api_key", "ApiKey", true},
	{"external_reference", "ExternalReference", true},
	{"timestamp", "Timestamp", true},
	{"distributor_id", "ResellerId", true},
	{"tour_code", "SupplierProductCode", true},
}

var tourListMappings = []fieldMapping{
	{"api_key", "ApiKey", true},
	{"external_reference", "ExternalReference", true},
	{"timestamp", "Timestamp", true},
	{"distributor_id", "ResellerId", true},
}

// Request is the canonical reservation model extracted from one inbound
// document. Built once per request; field names follow the RON side of the
// mapping so the translation stays readable.
type Request struct {
	doc  *xmldoc.Document
	kind Kind

	APIKey            string
	ExternalReference string
	Timestamp         string
	DistributorID     string

	TourCode      string
	TravelDate    string // partner format, YYYY-MM-DD
	TourDate      string // RON format, YYYY-Mon-DD
	StartDate     string
	EndDate       string
	VoucherNumber string

	BasisID    string
	SubBasisID string
	TourTimeID string

	PaxAdults   int
	PaxInfants  int
	PaxChildren int
	PaxFOC      int
	PaxUdef1    int
	paxSet      bool

	DefaultPickupKey string
	PickupPoint      string
	pickupKey        string

	FirstName           string
	LastName            string
	TravellerIdentifier string
	Email               string
	Mobile              string

	comments []string
}

// ParseRequest extracts every canonical field from the document in one pass.
// Missing optional tags leave fields empty; required-field policy is applied
// later by CheckRequiredData.
func ParseRequest(doc *xmldoc.Document) *Request {
	request := &Request{
		doc:  doc,
		kind: KindOf(doc.RootTag()),
	}

	request.APIKey = doc.ElementText("ApiKey", nil)
	request.ExternalReference = doc.ElementText("ExternalReference", nil)
	request.Timestamp = doc.ElementText("Timestamp", nil)
	request.DistributorID = doc.ElementText("ResellerId", nil)
	request.TourCode = doc.ElementText("SupplierProductCode", nil)
	request.VoucherNumber = doc.ElementText("BookingReference", nil)
	request.PickupPoint = doc.ElementText("PickupPoint", nil)
	request.StartDate = doc.ElementText("StartDate", nil)
	request.EndDate = doc.ElementText("EndDate", nil)

	request.TravelDate = doc.ElementText("TravelDate", nil)
	if request.TravelDate != "" {
		if backendDate, err := ToBackendDate(request.TravelDate); err == nil {
			request.TourDate = backendDate
		}
	}

	request.readTourOptions()
	request.readLeadTraveller()
	request.readContactDetail()
	request.readCommentSignals()

	return request
}

// Kind returns the request kind derived from the root tag.
func (r *Request) Kind() Kind {
	return r.kind
}

// CheckRequiredData iterates the kind's mapping table and fails closed on the
// first missing required field. The returned descriptor names the offending
// inbound tag and canonical field, and is used verbatim in error responses.
func (r *Request) CheckRequiredData() (string, bool) {
	var mappings []fieldMapping
	switch r.kind {
	case KindBooking:
		mappings = bookingMappings
	case KindAvailability:
		mappings = availabilityMappings
	case KindTourList:
		mappings = tourListMappings
	default:
		mappings = tourListMappings
	}

	for _, mapping := range mappings {
		if !mapping.required {
			continue
		}
		if r.fieldValue(mapping.field) == "" {
			return mapping.tag + " - " + mapping.field, false
		}
	}
	return "", true
}

func (r *Request) fieldValue(field string) string {
	switch field {
	case "api_key":
		return r.APIKey
	case "external_reference":
		return r.ExternalReference
	case "timestamp":
		return r.Timestamp
	case "distributor_id":
		return r.DistributorID
	case "tour_code":
		return r.TourCode
	case "tour_date":
		return r.TourDate
	case "voucher_number":
		return r.VoucherNumber
	case "basis_id":
		return r.BasisID
	case "sub_basis_id":
		return r.SubBasisID
	case "tour_time_id":
		return r.TourTimeID
	case "pax_total":
		if r.paxSet {
			return "set"
		}
		return ""
	case "default_pickup_key":
		return r.DefaultPickupKey
	case "pickup_point":
		return r.PickupPoint
	case "first_name":
		return r.FirstName
	case "last_name":
		return r.LastName
	case "traveller_identifier":
		return r.TravellerIdentifier
	case "email":
		return r.Email
	case "mobile":
		return r.Mobile
	}
	return ""
}

// readTourOptions walks the custom TourOptions block: Name/Value option
// pairs carrying the compound Basis and AgeBandMap encodings plus the
// default pickup key.
func (r *Request) readTourOptions() {
	tourOptions := r.doc.Element("TourOptions", nil)
	if tourOptions == nil {
		return
	}

	for _, option := range tourOptions.Children {
		name := r.doc.ElementText("Name", option)
		value := r.doc.ElementText("Value", option)
		if name == "" || value == "" {
			continue
		}

		switch name {
		case "Basis":
			r.decomposeBasis(value)
		case "AgeBandMap":
			r.aggregateAgeBands(value)
		case "DefaultPickup":
			r.DefaultPickupKey = value
		}
	}
}

// decomposeBasis splits the compound 'B=30;S=37;T=38' value into basis,
// sub-basis and tour-time ids. Malformed pairs leave fields unset, which
// fails the required-field check later.
func (r *Request) decomposeBasis(content string) {
	pairs := strings.Split(content, ";")
	if len(pairs) < 2 {
		return
	}

	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) < 2 {
			continue
		}
		switch parts[0] {
		case "B":
			r.BasisID = parts[1]
		case "S":
			r.SubBasisID = parts[1]
		case "T":
			r.TourTimeID = parts[1]
		}
	}
}

// BasisString recomposes the compound basis value.
func (r *Request) BasisString() string {
	return "B=" + r.BasisID + ";S=" + r.SubBasisID + ";T=" + r.TourTimeID
}

var travellerCategories = []struct {
	code string
	tag  string
}{
	{"A", "Adult"},
	{"C", "Child"},
	{"Y", "Youth"},
	{"I", "Infant"},
	{"S", "Senior"},
}

// aggregateAgeBands maps the five partner traveller categories onto the five
// RON pax buckets and sums TravellerMix quantities into them. Aggregation is
// abandoned when any category key is missing, which surfaces as an AgeBandMap
// required-field failure.
func (r *Request) aggregateAgeBands(content string) {
	pairs := strings.Split(content, ";")
	if len(pairs) < 2 {
		return
	}

	ageBandMap := map[string]string{}
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) < 2 {
			continue
		}
		ageBandMap[parts[0]] = parts[1]
	}

	for _, category := range travellerCategories {
		if _, ok := ageBandMap[category.code]; !ok {
			return
		}
	}

	travellerMix := r.doc.Element("TravellerMix", nil)
	if travellerMix == nil {
		return
	}

	totalPax := 0
	buckets := map[string]int{"P1": 0, "P2": 0, "P3": 0, "P4": 0, "P5": 0}
	for _, category := range travellerCategories {
		quantity := parseCount(r.doc.ElementText(category.tag, travellerMix))
		if quantity > 0 {
			buckets[ageBandMap[category.code]] += quantity
			totalPax += quantity
		}
	}

	if totalPax == 0 {
		return
	}

	r.PaxAdults = buckets["P1"]
	r.PaxInfants = buckets["P2"]
	r.PaxChildren = buckets["P3"]
	r.PaxFOC = buckets["P4"]
	r.PaxUdef1 = buckets["P5"]
	r.paxSet = true
}

func parseCount(text string) int {
	count := 0
	for _, char := range text {
		if char < '0' || char > '9' {
			return 0
		}
		count = count*10 + int(char-'0')
	}
	return count
}

// readLeadTraveller picks the traveller flagged LeadTraveller=true out of the
// traveller list.
func (r *Request) readLeadTraveller() {
	for _, traveller := range r.doc.ElementList("Traveller", nil) {
		if r.doc.ElementText("LeadTraveller", traveller) != "true" {
			continue
		}
		r.FirstName = r.doc.ElementText("GivenName", traveller)
		r.LastName = r.doc.ElementText("Surname", traveller)
		r.TravellerIdentifier = r.doc.ElementText("TravellerIdentifier", traveller)
		return
	}
}

func (r *Request) readContactDetail() {
	contact := r.doc.Element("ContactDetail", nil)
	if contact == nil {
		return
	}

	switch r.doc.ElementText("ContactType", contact) {
	case "MOBILE":
		r.Mobile = r.doc.ElementText("ContactValue", contact)
	case "EMAIL":
		r.Email = r.doc.ElementText("ContactValue", contact)
	}
}

// readCommentSignals collects the optional inbound signals forwarded to RON
// as one free-text field. Insertion order is fixed so the aggregated comment
// is reproducible.
func (r *Request) readCommentSignals() {
	if value := r.doc.ElementText("LanguageCode", nil); value != "" {
		r.appendComment("language_code", value)
	}
	if value := r.doc.ElementText("LanguageOption", nil); value != "" {
		r.appendComment("language_option", value)
	}
	if value := r.doc.ElementText("AgeBand", nil); value != "" {
		r.appendComment("age_band", value)
	}
	for _, qa := range r.doc.ElementList("QuestionAnswer", nil) {
		question := r.doc.ElementText("Question", qa)
		answer := r.doc.ElementText("Answer", qa)
		if question != "" && answer != "" {
			r.appendComment(question, answer)
		}
	}
	if value := r.doc.ElementText("SpecialRequirements", nil); value != "" {
		r.appendComment("special_requirements", value)
	}
	if value := r.doc.ElementText("SupplierNote", nil); value != "" {
		r.appendComment("supplier_note", value)
	}
	if value := r.doc.ElementText("AdditionalRemarks", nil); value != "" {
		r.appendComment("remarks", value)
	}
}

func (r *Request) appendComment(key, value string) {
	r.comments = append(r.comments, key+"="+value)
}

// GeneralComments joins the collected key=value clauses in insertion order.
func (r *Request) GeneralComments() string {
	return strings.Join(r.comments, ";")
}

// ResolvePickupKey matches the requested pickup point against the backend's
// pickup list, case-insensitively. An unmatched point falls back to the first
// backend record with an explanatory note; a booking is never dropped over an
// unmatched pickup.
func (r *Request) ResolvePickupKey(pickups []ron.Pickup) string {
	if r.pickupKey != "" {
		return r.pickupKey
	}

	r.pickupKey = r.DefaultPickupKey
	if r.PickupPoint == "" || len(pickups) == 0 {
		return r.pickupKey
	}

	for _, pickup := range pickups {
		if strings.EqualFold(pickup.Name, r.PickupPoint) {
			r.pickupKey = pickup.Key
			return r.pickupKey
		}
	}

	r.pickupKey = pickups[0].Key
	r.appendComment("pickup_point", r.PickupPoint)
	return r.pickupKey
}

// ForcePickup overrides the resolved pickup with a backend-supplied record.
// Used by the single retry after a pickup-mandatory fault.
func (r *Request) ForcePickup(pickup ron.Pickup) {
	r.pickupKey = pickup.Key
	r.appendComment("forced_pickup", pickup.Name)
}

// PickupKey returns the currently resolved pickup key.
func (r *Request) PickupKey() string {
	return r.pickupKey
}

// HasExplicitBasis reports whether the request carried a full basis triple.
func (r *Request) HasExplicitBasis() bool {
	return r.BasisID != "" && r.SubBasisID != "" && r.TourTimeID != ""
}

// ReservationFields assembles the writeReservation payload.
func (r *Request) ReservationFields() map[string]any {
	return map[string]any{
		"strTourCode":       r.TourCode,
		"strTourDate":       r.TourDate,
		"strVoucherNum":     r.VoucherNumber,
		"strExternalRef":    r.ExternalReference,
		"intBasisID":        r.BasisID,
		"intSubBasisID":     r.SubBasisID,
		"intTourTimeID":     r.TourTimeID,
		"intPaxAdults":      r.PaxAdults,
		"intPaxInfants":     r.PaxInfants,
		"intPaxChildren":    r.PaxChildren,
		"intPaxFOC":         r.PaxFOC,
		"intPaxUdef1":       r.PaxUdef1,
		"strPickupKey":      r.pickupKey,
		"strGivenName":      r.FirstName,
		"strSurname":        r.LastName,
		"strEmail":          r.Email,
		"strMobile":         r.Mobile,
		"strGeneralComment": r.GeneralComments(),
	}
}
