package ron_test

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitbucket.org/vron/connector-hub/internal/ron"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Body   string
	URL    string
}

type ronServer struct {
	*httptest.Server
	calls     []recordedCall
	responses map[string]string
}

func newRonServer(t *testing.T) *ronServer {
	server := &ronServer{responses: map[string]string{}}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		var call struct {
			XMLName xml.Name `xml:"methodCall"`
			Method  string   `xml:"methodName"`
		}
		require.NoError(t, xml.Unmarshal(body, &call))

		server.calls = append(server.calls, recordedCall{
			Method: call.Method,
			Body:   string(body),
			URL:    r.URL.String(),
		})

		response, ok := server.responses[call.Method]
		if !ok {
			response = fault(1, "unknown method "+call.Method)
		}

		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server
}

func stringResponse(value string) string {
	return `<?xml version="1.0"?><methodResponse><params><param><value><string>` +
		value + `</string></value></param></params></methodResponse>`
}

func fault(code int, message string) string {
	return `<?xml version="1.0"?><methodResponse><fault><value><struct>` +
		`<member><name>faultCode</name><value><int>` + string(rune('0'+code)) + `</int></value></member>` +
		`<member><name>faultString</name><value><string>` + message + `</string></value></member>` +
		`</struct></value></fault></methodResponse>`
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func testClient(server *ronServer) *ron.Client {
	client := ron.NewClient(ron.Options{
		Username: "apiuser",
		Password: "secret",
		TestURL:  server.URL + "/?api=1",
		LiveURL:  "http://live.invalid/?api=1",
		Mode:     ron.ModeTrain,
	}, testLogger())
	client.SetHostID("1004")
	return client
}

func TestLoginStoresSessionAndQualifiesLaterCalls(t *testing.T) {
	server := newRonServer(t)
	server.responses["login"] = stringResponse("PHPSESSID=abc123")
	server.responses["readTours"] = `<?xml version="1.0"?><methodResponse><params><param><value><array><data>
		<value><struct>
			<member><name>strTourCode</name><value><string>REEF</string></value></member>
			<member><name>strTourName</name><value><string>Reef Day Trip</string></value></member>
		</struct></value>
	</data></array></value></param></params></methodResponse>`

	client := testClient(server)

	require.NoError(t, client.Login(context.Background(), "1000"))

	tours, err := client.Tours(context.Background())
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, ron.Tour{Code: "REEF", Name: "Reef Day Trip"}, tours[0])

	require.Len(t, server.calls, 2)
	assert.Contains(t, server.calls[0].Body, "<string>apiuser</string>")
	assert.Contains(t, server.calls[0].Body, "<string>1000</string>")
	assert.NotContains(t, server.calls[0].URL, "PHPSESSID")
	assert.Contains(t, server.calls[1].URL, "PHPSESSID=abc123")
}

func TestLoginFaultIsCaptured(t *testing.T) {
	server := newRonServer(t)
	server.responses["login"] = fault(4, "Invalid reseller")

	client := testClient(server)

	err := client.Login(context.Background(), "9999")
	require.Error(t, err)

	var ronFault *ron.Fault
	require.ErrorAs(t, err, &ronFault)
	assert.Equal(t, "Invalid reseller", ronFault.Message)
	assert.Equal(t, "Invalid reseller", client.FaultMessage())
}

func TestWriteReservationSendsPaymentOptionAndFields(t *testing.T) {
	server := newRonServer(t)
	server.responses["writeReservation"] = stringResponse("CFM-0042")

	client := testClient(server)

	confirmation, err := client.WriteReservation(context.Background(), map[string]any{
		"strTourCode":    "REEF",
		"strVoucherNum":  "VCH-1",
		"intPaxAdults":   2,
		"strPickupKey":   "PK1",
		"strTourDate":    "2024-Jan-02",
		"strExternalRef": "ext-1",
	}, "full-agent")

	require.NoError(t, err)
	assert.Equal(t, "CFM-0042", confirmation)

	require.Len(t, server.calls, 1)
	body := server.calls[0].Body
	assert.Contains(t, body, "<name>strPaymentOption</name>")
	assert.Contains(t, body, "<string>full-agent</string>")
	assert.Contains(t, body, "<int>-1</int>")
	assert.Contains(t, body, "<name>strTourCode</name>")
}

func TestWriteReservationFaultKeepsFaultText(t *testing.T) {
	server := newRonServer(t)
	server.responses["writeReservation"] = fault(2, "A pickup location is mandatory for this tour")

	client := testClient(server)

	_, err := client.WriteReservation(context.Background(), map[string]any{}, "full-agent")
	require.Error(t, err)
	assert.Equal(t, "A pickup location is mandatory for this tour", client.FaultMessage())
}

func TestTourPickupsMapsRecords(t *testing.T) {
	server := newRonServer(t)
	server.responses["readTourPickups"] = `<?xml version="1.0"?><methodResponse><params><param><value><array><data>
		<value><struct>
			<member><name>strPickupKey</name><value><string>PK1</string></value></member>
			<member><name>strPickupName</name><value><string>Marina Jetty</string></value></member>
			<member><name>strPickupTime</name><value><string>07:30</string></value></member>
		</struct></value>
		<value><struct>
			<member><name>strPickupKey</name><value><string>PK2</string></value></member>
			<member><name>strPickupName</name><value><string>City Hotel</string></value></member>
			<member><name>strPickupTime</name><value><string>07:45</string></value></member>
		</struct></value>
	</data></array></value></param></params></methodResponse>`

	client := testClient(server)

	pickups, err := client.TourPickups(context.Background(), "REEF", "38", "30")
	require.NoError(t, err)
	require.Len(t, pickups, 2)
	assert.Equal(t, ron.Pickup{Key: "PK1", Name: "Marina Jetty", Time: "07:30"}, pickups[0])
}

func TestTourAvailabilityRangeReadsVacancies(t *testing.T) {
	server := newRonServer(t)
	server.responses["readTourAvailabilityRange"] = `<?xml version="1.0"?><methodResponse><params><param><value><array><data>
		<value><int>12</int></value>
		<value><int>0</int></value>
	</data></array></value></param></params></methodResponse>`

	client := testClient(server)

	vacancies, err := client.TourAvailabilityRange(context.Background(), ron.AvailabilityQuery{
		TourCode: "REEF",
		Date:     "2024-Jan-01",
		Options: []ron.BasisOption{
			{BasisID: "30", SubBasisID: "37", TourTimeID: "38"},
			{BasisID: "31", SubBasisID: "37", TourTimeID: "38"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []int{12, 0}, vacancies)
	assert.Contains(t, server.calls[0].Body, "<name>arrOptions</name>")
}

func TestTimeoutIsTreatedAsFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := ron.NewClient(ron.Options{
		TestURL: server.URL + "/?api=1",
		Mode:    ron.ModeTrain,
		Timeout: 20 * time.Millisecond,
	}, testLogger())

	err := client.Login(context.Background(), "1000")
	require.Error(t, err)
	assert.NotEmpty(t, client.FaultMessage())
	assert.True(t, strings.Contains(strings.ToLower(client.FaultMessage()), "timeout") ||
		strings.Contains(strings.ToLower(client.FaultMessage()), "deadline"))
}
