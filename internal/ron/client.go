package ron

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/vron/connector-hub/internal/tools/requesting"
	"github.com/rs/zerolog"
)

// Mode selects between the configured test and live RON endpoints. It never
// changes after the client is built.
type Mode string

const (
	ModeTrain Mode = "train"
	ModeLive  Mode = "live"
)

const defaultTimeout = 20 * time.Second

type Options struct {
	Username string
	Password string
	TestURL  string
	LiveURL  string
	Mode     Mode
	Timeout  time.Duration
	// Transport is shared across clients; each request still gets its own
	// bounded http.Client.
	Transport http.RoundTripper
}

// Client talks to the RON reservation engine over XML-RPC. One client serves
// exactly one inbound request: the session token is never shared.
type Client struct {
	options      Options
	url          string
	hostID       string
	sessionID    string
	faultMessage string
	httpClient   *http.Client
	logger       *zerolog.Logger
}

func NewClient(options Options, logger *zerolog.Logger) *Client {
	url := options.TestURL
	if options.Mode == ModeLive {
		url = options.LiveURL
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := options.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		options: options,
		url:     url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &requesting.InterceptorTransport{
				Transport: transport,
				Middlewares: []requesting.TransportMiddleware{
					requesting.NewLoggingTransportMiddleware(logger),
				},
			},
		},
		logger: logger,
	}
}

func (c *Client) SetHostID(hostID string) {
	c.hostID = hostID
}

// FaultMessage returns the fault text captured by the most recent failed
// call, for verbatim inclusion in partner responses.
func (c *Client) FaultMessage() string {
	return c.faultMessage
}

// callURL qualifies the endpoint with the session token acquired at login,
// unless the configured URL already pins a session.
func (c *Client) callURL() string {
	if !strings.Contains(c.url, "PHPSESSID") && c.sessionID != "" {
		return c.url + "&" + c.sessionID
	}
	return c.url
}

func (c *Client) call(ctx context.Context, method string, args ...any) (any, error) {
	body, err := marshalCall(method, args...)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.callURL(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "text/xml")

	response, err := c.httpClient.Do(request)
	if err != nil {
		// timeouts and connection errors count as faults: the caller
		// treats both as a failed backend call
		c.faultMessage = err.Error()
		c.sessionID = ""
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer response.Body.Close()

	result, err := unmarshalResponse(response.Body)
	if err != nil {
		if fault, ok := err.(*Fault); ok {
			c.faultMessage = fault.Message
			c.sessionID = ""
			return nil, fault
		}
		c.faultMessage = err.Error()
		return nil, err
	}

	return result, nil
}

// Login acquires a session token. Must be called once per inbound request
// before any read or write.
func (c *Client) Login(ctx context.Context, resellerID string) error {
	result, err := c.call(ctx, "login", c.options.Username, c.options.Password, resellerID)
	if err != nil {
		return err
	}

	session, ok := result.(string)
	if !ok || session == "" {
		c.faultMessage = "login returned no session"
		return fmt.Errorf("login returned no session")
	}

	c.sessionID = session
	return nil
}

type Pickup struct {
	Key  string
	Name string
	Time string
}

func (c *Client) TourPickups(ctx context.Context, tourCode, tourTimeID, basisID string) ([]Pickup, error) {
	result, err := c.call(ctx, "readTourPickups", c.hostID, tourCode, tourTimeID, basisID)
	if err != nil {
		return nil, err
	}

	pickups := []Pickup{}
	for _, item := range asList(result) {
		record := asStruct(item)
		pickups = append(pickups, Pickup{
			Key:  asString(record["strPickupKey"]),
			Name: asString(record["strPickupName"]),
			Time: asString(record["strPickupTime"]),
		})
	}
	return pickups, nil
}

type TourTime struct {
	ID   string
	Name string
}

func (c *Client) TourTimes(ctx context.Context, tourCode string) ([]TourTime, error) {
	result, err := c.call(ctx, "readTourTimes", c.hostID, tourCode)
	if err != nil {
		return nil, err
	}

	times := []TourTime{}
	for _, item := range asList(result) {
		record := asStruct(item)
		times = append(times, TourTime{
			ID:   asString(record["intTourTimeID"]),
			Name: asString(record["strTourTime"]),
		})
	}
	return times, nil
}

type TourBasis struct {
	ID         string
	SubBasisID string
	Name       string
}

func (c *Client) TourBases(ctx context.Context, tourCode string) ([]TourBasis, error) {
	result, err := c.call(ctx, "readTourBases", c.hostID, tourCode)
	if err != nil {
		return nil, err
	}

	bases := []TourBasis{}
	for _, item := range asList(result) {
		record := asStruct(item)
		bases = append(bases, TourBasis{
			ID:         asString(record["intBasisID"]),
			SubBasisID: asString(record["intSubBasisID"]),
			Name:       asString(record["strBasisName"]),
		})
	}
	return bases, nil
}

type Tour struct {
	Code string
	Name string
}

// Tours lists the publicly visible tours for the host.
func (c *Client) Tours(ctx context.Context) ([]Tour, error) {
	result, err := c.call(ctx, "readTours", c.hostID)
	if err != nil {
		return nil, err
	}

	tours := []Tour{}
	for _, item := range asList(result) {
		record := asStruct(item)
		tours = append(tours, Tour{
			Code: asString(record["strTourCode"]),
			Name: asString(record["strTourName"]),
		})
	}
	return tours, nil
}

// TourWebDetails reads promotional details for a tour, images excluded.
func (c *Client) TourWebDetails(ctx context.Context, tourCode string) (map[string]any, error) {
	result, err := c.call(ctx, "readTourWebDetails", c.hostID, tourCode, false)
	if err != nil {
		return nil, err
	}

	details := asStruct(result)
	if details == nil {
		return nil, nil
	}
	return details, nil
}

type BasisOption struct {
	BasisID    string
	SubBasisID string
	TourTimeID string
}

type AvailabilityQuery struct {
	TourCode string
	// Date in RON format, YYYY-Mon-DD
	Date    string
	Options []BasisOption
}

// TourAvailabilityRange returns one vacancy count per queried option, in
// query order.
func (c *Client) TourAvailabilityRange(ctx context.Context, query AvailabilityQuery) ([]int, error) {
	options := make([]any, len(query.Options))
	for i, option := range query.Options {
		options[i] = map[string]any{
			"intBasisID":    option.BasisID,
			"intSubBasisID": option.SubBasisID,
			"intTourTimeID": option.TourTimeID,
		}
	}

	result, err := c.call(ctx, "readTourAvailabilityRange", map[string]any{
		"strHostID":   c.hostID,
		"strTourCode": query.TourCode,
		"strDate":     query.Date,
		"arrOptions":  options,
	})
	if err != nil {
		return nil, err
	}

	vacancies := []int{}
	for _, item := range asList(result) {
		switch v := item.(type) {
		case int:
			vacancies = append(vacancies, v)
		case string:
			number, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("readTourAvailabilityRange returned %q", v)
			}
			vacancies = append(vacancies, number)
		}
	}
	return vacancies, nil
}

// PaymentOptions lists the payment options the host accepts.
func (c *Client) PaymentOptions(ctx context.Context) ([]string, error) {
	result, err := c.call(ctx, "readPaymentOptions", c.hostID)
	if err != nil {
		return nil, err
	}

	options := []string{}
	for _, item := range asList(result) {
		if option := asString(item); option != "" {
			options = append(options, option)
		}
	}
	return options, nil
}

// WriteReservation is the sole side-effecting call. The backend deduplicates
// on the external reference carried inside fields.
func (c *Client) WriteReservation(ctx context.Context, fields map[string]any, paymentOption string) (string, error) {
	result, err := c.call(ctx, "writeReservation",
		c.hostID,
		-1,
		fields,
		map[string]any{"strPaymentOption": paymentOption},
		map[string]any{},
	)
	if err != nil {
		return "", err
	}

	confirmation := asString(result)
	if confirmation == "" {
		return "", fmt.Errorf("writeReservation returned no confirmation number")
	}
	return confirmation, nil
}

func asList(value any) []any {
	list, _ := value.([]any)
	return list
}

func asStruct(value any) map[string]any {
	record, _ := value.(map[string]any)
	return record
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
