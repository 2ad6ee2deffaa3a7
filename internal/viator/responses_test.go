package viator_test

import (
	"testing"

	"bitbucket.org/vron/connector-hub/internal/viator"
	"bitbucket.org/vron/connector-hub/internal/xmldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseResponse(t *testing.T, raw []byte) *xmldoc.Document {
	t.Helper()
	doc := xmldoc.Parse(raw)
	require.True(t, doc.Validated, doc.ErrorMessage)
	return doc
}

func TestBookingResponseConfirmed(t *testing.T) {
	request := parseRequest(t, bookingRequestBody(nil))

	raw := request.BookingResponse("CFM-0042", "", nil)
	response := parseResponse(t, raw)

	assert.Equal(t, "BookingResponse", response.RootTag())
	assert.Equal(t, "cdqu60CykKeca1001", response.ElementText("ApiKey", nil))
	assert.Equal(t, "1000", response.ElementText("ResellerId", nil))
	assert.Equal(t, "1004", response.ElementText("SupplierId", nil))
	assert.Equal(t, "10051374722992645", response.ElementText("ExternalReference", nil))
	assert.Equal(t, "SUCCESS", response.ElementText("Status", response.Element("RequestStatus", nil)))
	assert.Equal(t, "CONFIRMED", response.ElementText("Status", response.Element("TransactionStatus", nil)))
	assert.Equal(t, "CFM-0042", response.ElementText("SupplierConfirmationNumber", nil))
	assert.Equal(t, "TRV-1", response.ElementText("TravellerIdentifier", nil))
}

func TestBookingResponseRejectedCarriesFaultText(t *testing.T) {
	request := parseRequest(t, bookingRequestBody(nil))

	raw := request.BookingResponse("", "No availability on requested basis", nil)
	response := parseResponse(t, raw)

	transaction := response.Element("TransactionStatus", nil)
	assert.Equal(t, "SUCCESS", response.ElementText("Status", response.Element("RequestStatus", nil)))
	assert.Equal(t, "REJECTED", response.ElementText("Status", transaction))
	assert.Equal(t, "Error on RON: No availability on requested basis",
		response.ElementText("RejectionReasonDetails", transaction))
	assert.Equal(t, "OTHER", response.ElementText("RejectionReason", transaction))
	assert.Equal(t, "", response.ElementText("SupplierConfirmationNumber", nil))
}

func TestBookingResponseRequestError(t *testing.T) {
	request := parseRequest(t, bookingRequestBody(nil))

	raw := request.BookingResponse("", "", &viator.RequestError{
		Code:    "VRONERR001",
		Message: "Malformed or missing elements",
		Tag:     "BookingReference - voucher_number",
	})
	response := parseResponse(t, raw)

	status := response.Element("RequestStatus", nil)
	assert.Equal(t, "ERROR", response.ElementText("Status", status))

	errorElement := response.Element("Error", status)
	assert.Equal(t, "VRONERR001", response.ElementText("ErrorCode", errorElement))
	assert.Equal(t, "Malformed or missing elements", response.ElementText("ErrorMessage", errorElement))
	assert.Equal(t, "Error on TAG BookingReference - voucher_number",
		response.ElementText("ErrorDetails", errorElement))
}

func TestAvailabilityResponseBlocks(t *testing.T) {
	request := parseRequest(t, bookingRequestBody(nil))

	raw := request.AvailabilityResponse([]viator.TourAvailability{
		{TourCode: "REEF", TravelDate: "2024-01-01", Basis: "B=30;S=37;T=38", Status: viator.AvailabilityStatusAvailable, Vacancies: 12},
		{TourCode: "REEF", TravelDate: "2024-01-02", Basis: "B=30;S=37;T=38", Status: viator.AvailabilityStatusUnavailable, Vacancies: 0},
	}, nil)
	response := parseResponse(t, raw)

	blocks := response.ElementList("TourAvailability", nil)
	require.Len(t, blocks, 2)
	assert.Equal(t, "2024-01-01", response.ElementText("TravelDate", blocks[0]))
	assert.Equal(t, "AVAILABLE", response.ElementText("AvailabilityStatus", blocks[0]))
	assert.Equal(t, "12", response.ElementText("Vacancies", blocks[0]))
	assert.Equal(t, "B=30;S=37;T=38", response.ElementText("Value", blocks[0]))
	assert.Equal(t, "UNAVAILABLE", response.ElementText("AvailabilityStatus", blocks[1]))
}

func TestTourListResponseShape(t *testing.T) {
	request := parseRequest(t, bookingRequestBody(nil))

	raw := request.TourListResponse([]viator.TourSummary{
		{
			Code:        "REEF",
			Name:        "Reef Day Trip",
			Description: "Full day reef cruise",
			Options: []viator.TourOptionSummary{
				{Basis: "B=30;S=37;T=38", Label: "Standard 08:00"},
				{Basis: "B=31;S=37;T=38", Label: "Premium 08:00"},
			},
		},
	}, nil)
	response := parseResponse(t, raw)

	tours := response.ElementList("Tour", nil)
	require.Len(t, tours, 1)
	assert.Equal(t, "REEF", response.ElementText("SupplierProductCode", tours[0]))
	assert.Equal(t, "Reef Day Trip", response.ElementText("TourName", tours[0]))

	options := response.ElementList("TourOption", tours[0])
	require.Len(t, options, 2)
	assert.Equal(t, "B=30;S=37;T=38", response.ElementText("Basis", options[0]))
	assert.Equal(t, "Premium 08:00", response.ElementText("Label", options[1]))
}

func TestErrorResponseForUnparseableRequests(t *testing.T) {
	raw := viator.ErrorResponse("Response", &viator.RequestError{
		Code:    "VRONERR001",
		Message: "Malformed or missing elements",
	})
	response := parseResponse(t, raw)

	assert.Equal(t, "Response", response.RootTag())
	assert.Equal(t, "ERROR", response.ElementText("Status", response.Element("RequestStatus", nil)))
}
