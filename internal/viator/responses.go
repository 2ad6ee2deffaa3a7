package viator

import (
	"strconv"

	"bitbucket.org/vron/connector-hub/internal/xmldoc"
)

// RequestError is a request-level failure carried inside the response's
// RequestStatus block.
type RequestError struct {
	Code    string
	Message string
	Tag     string
}

// TourAvailability is one availability result block.
type TourAvailability struct {
	TourCode   string
	TravelDate string // partner format
	Basis      string
	Status     string
	Vacancies  int
}

const (
	AvailabilityStatusAvailable   = "AVAILABLE"
	AvailabilityStatusUnavailable = "UNAVAILABLE"
)

// TourOptionSummary is one bookable variant of a tour.
type TourOptionSummary struct {
	Basis string
	Label string
}

// TourSummary is one tour in a tour list response.
type TourSummary struct {
	Code        string
	Name        string
	Description string
	Options     []TourOptionSummary
}

// echoIdentity copies the identifying fields of the request into a response
// document so the partner can correlate it.
func (r *Request) echoIdentity(response *xmldoc.Document) {
	response.CreateElement("ApiKey", nil, r.APIKey)
	response.CreateElement("ResellerId", nil, r.DistributorID)
	if supplier := r.doc.Element("SupplierId", nil); supplier != nil {
		response.CreateElement("SupplierId", nil, supplier.Text)
	}
	response.CreateElement("ExternalReference", nil, r.ExternalReference)
	response.CreateElement("Timestamp", nil, r.Timestamp)
}

func writeRequestStatus(response *xmldoc.Document, requestError *RequestError) {
	status := response.CreateElement("RequestStatus", nil, "")
	if requestError == nil {
		response.CreateElement("Status", status, "SUCCESS")
		return
	}

	response.CreateElement("Status", status, "ERROR")
	errorElement := response.CreateElement("Error", status, "")
	if requestError.Code != "" {
		response.CreateElement("ErrorCode", errorElement, requestError.Code)
	}
	response.CreateElement("ErrorMessage", errorElement, requestError.Message)
	if requestError.Tag != "" {
		response.CreateElement("ErrorDetails", errorElement, "Error on TAG "+requestError.Tag)
	}
}

// BookingResponse builds the full booking response document: echoed
// identity, request status, transaction status and the confirmation number.
func (r *Request) BookingResponse(confirmationNumber, transactionError string, requestError *RequestError) []byte {
	response := xmldoc.New("BookingResponse")

	r.echoIdentity(response)
	writeRequestStatus(response, requestError)

	response.CreateElement("TravellerIdentifier", nil, r.TravellerIdentifier)

	transaction := response.CreateElement("TransactionStatus", nil, "")
	if confirmationNumber != "" {
		response.CreateElement("Status", transaction, "CONFIRMED")
	} else {
		response.CreateElement("Status", transaction, "REJECTED")
		if transactionError != "" {
			response.CreateElement("RejectionReasonDetails", transaction, "Error on RON: "+transactionError)
			response.CreateElement("RejectionReason", transaction, "OTHER")
		}
	}

	response.CreateElement("SupplierConfirmationNumber", nil, confirmationNumber)

	return response.Serialize()
}

// AvailabilityResponse builds the availability response with one
// TourAvailability block per queried date and option.
func (r *Request) AvailabilityResponse(blocks []TourAvailability, requestError *RequestError) []byte {
	response := xmldoc.New("AvailabilityResponse")

	r.echoIdentity(response)
	writeRequestStatus(response, requestError)

	for _, block := range blocks {
		element := response.CreateElement("TourAvailability", nil, "")
		response.CreateElement("SupplierProductCode", element, block.TourCode)
		response.CreateElement("TravelDate", element, block.TravelDate)
		options := response.CreateElement("TourOptions", element, "")
		option := response.CreateElement("Option", options, "")
		response.CreateElement("Name", option, "Basis")
		response.CreateElement("Value", option, block.Basis)
		response.CreateElement("AvailabilityStatus", element, block.Status)
		response.CreateElement("Vacancies", element, strconv.Itoa(block.Vacancies))
	}

	return response.Serialize()
}

// TourListResponse builds the tour list response with one Tour block per
// publicly visible tour and one TourOption per bookable variant.
func (r *Request) TourListResponse(tours []TourSummary, requestError *RequestError) []byte {
	response := xmldoc.New("TourListResponse")

	r.echoIdentity(response)
	writeRequestStatus(response, requestError)

	for _, tour := range tours {
		element := response.CreateElement("Tour", nil, "")
		response.CreateElement("SupplierProductCode", element, tour.Code)
		response.CreateElement("TourName", element, tour.Name)
		if tour.Description != "" {
			response.CreateElement("Description", element, tour.Description)
		}
		for _, option := range tour.Options {
			optionElement := response.CreateElement("TourOption", element, "")
			response.CreateElement("Label", optionElement, option.Label)
			response.CreateElement("Basis", optionElement, option.Basis)
		}
	}

	return response.Serialize()
}

// ErrorResponse builds a response for requests that never produced a usable
// canonical model: unparseable bodies and unsupported root tags.
func ErrorResponse(rootTag string, requestError *RequestError) []byte {
	response := xmldoc.New(rootTag)
	writeRequestStatus(response, requestError)
	return response.Serialize()
}
