// Package giav talks to the GIAV travel ERP over its SOAP 1.1 web service.
package giav

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultNamespace = "http://tempuri.org/"
	defaultPageSize  = 100
	defaultMaxPages  = 50
	maxResponseBytes = 8 << 20
)

var (
	ErrBookingNotFound = errors.New("giav: booking not found")
	ErrNoReservations  = errors.New("giav: booking has no reservations")
	ErrPaymentRejected = errors.New("giav: payment was not recorded")
)

// FaultError is a SOAP fault returned by the service. Faults are business
// errors and are never retried.
type FaultError struct {
	Method string
	Code   string
	String string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("giav: %s fault %s: %s", e.Method, e.Code, e.String)
}

type Options struct {
	Endpoint  string
	ApiKey    string
	Namespace string
	Timeout   time.Duration
	// PaymentMethod is the idFormaPago used for card payments
	PaymentMethod int64
	// OfficeID is sent as idOficina when > 0, some installations reject
	// Cobro_POST without it
	OfficeID   int64
	PageSize   int
	MaxPages   int
	HTTPClient *http.Client
	Logger     *lecho.Logger
}

type Client struct {
	opts   Options
	http   *http.Client
	logger *lecho.Logger
}

func NewClient(opts Options) *Client {
	if opts.Namespace == "" {
		opts.Namespace = defaultNamespace
	}
	if !strings.HasSuffix(opts.Namespace, "/") {
		opts.Namespace += "/"
	}
	if opts.PageSize <= 0 || opts.PageSize > defaultPageSize {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = lecho.New(
			os.Stdout,
			lecho.WithLevel(log.INFO),
			lecho.WithTimestamp(),
		)
	}
	return &Client{opts: opts, http: httpClient, logger: logger}
}

type envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	Xsi     string   `xml:"xmlns:xsi,attr"`
	Xsd     string   `xml:"xmlns:xsd,attr"`
	Soap    string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Content interface{}
	} `xml:"soap:Body"`
}

type responseEnvelope struct {
	Body struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// Request is embedded by every operation body.
type Request struct {
	XMLName xml.Name
	ApiKey  string `xml:"apikey"`
}

func (c *Client) newRequest(method string) Request {
	return Request{
		XMLName: xml.Name{Space: c.opts.Namespace, Local: method},
		ApiKey:  c.opts.ApiKey,
	}
}

type intList struct {
	Values []int64 `xml:"int"`
}

func ids(v ...int64) *intList {
	return &intList{Values: v}
}

// call performs one SOAP round trip and decodes the response element into out.
func (c *Client) call(ctx context.Context, method string, body interface{}, out interface{}) error {
	env := envelope{
		Xsi:  "http://www.w3.org/2001/XMLSchema-instance",
		Xsd:  "http://www.w3.org/2001/XMLSchema",
		Soap: "http://schemas.xmlsoap.org/soap/envelope/",
	}
	env.Body.Content = body

	payload := new(bytes.Buffer)
	payload.WriteString(xml.Header)
	if err := xml.NewEncoder(payload).Encode(env); err != nil {
		return backoff.Permanent(fmt.Errorf("giav: encode %s: %w", method, err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, payload)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+c.opts.Namespace+method+`"`)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("giav: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("giav: read %s response: %w", method, err)
	}
	c.logger.Debugf("giav: %s status=%d took=%s", method, resp.StatusCode, time.Since(started))

	var decoded responseEnvelope
	if err := xml.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("giav: %s returned status %d", method, resp.StatusCode)
		}
		return backoff.Permanent(fmt.Errorf("giav: decode %s envelope: %w", method, err))
	}
	if f := decoded.Body.Fault; f != nil {
		return backoff.Permanent(&FaultError{Method: method, Code: strings.TrimSpace(f.Code), String: strings.TrimSpace(f.String)})
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("giav: %s returned status %d", method, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(fmt.Errorf("giav: %s returned status %d", method, resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := xml.Unmarshal(decoded.Body.Inner, out); err != nil {
		return backoff.Permanent(fmt.Errorf("giav: decode %s: %w", method, err))
	}
	return nil
}

// read retries idempotent searches on network errors and 5xx responses.
func (c *Client) read(ctx context.Context, method string, body interface{}, out interface{}) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = c.opts.Timeout

	err := backoff.RetryNotify(func() error {
		return c.call(ctx, method, body, out)
	}, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx), func(err error, wait time.Duration) {
		c.logger.Warnf("giav: %s failed, retrying in %s: %v", method, wait, err)
	})
	return unwrapPermanent(err)
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// IsTransient reports whether err is worth retrying later: timeouts,
// connection problems and server errors, but not SOAP faults.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fault *FaultError
	if errors.As(err, &fault) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return !errors.Is(err, ErrBookingNotFound)
}
