package redsys

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	TransactionTypeAuthorization = "0"
	CurrencyEUR                  = "978"

	// responses above this code are declined or errored operations
	maxAuthorisedResponse = 99
	unknownResponse       = 9999
)

type Merchant struct {
	Code     string
	Terminal string
	Currency string
	Secret   string
}

type Payment struct {
	OrderID   string
	Amount    int64
	Token     string
	NotifyURL string
	ReturnURL string
}

// MerchantParams builds the DS_MERCHANT_* map sent to the gateway. The
// token travels in DS_MERCHANT_MERCHANTDATA and is echoed back in
// Ds_MerchantData.
func MerchantParams(m Merchant, p Payment) map[string]string {
	currency := m.Currency
	if currency == "" {
		currency = CurrencyEUR
	}
	return map[string]string{
		"DS_MERCHANT_AMOUNT":          strconv.FormatInt(p.Amount, 10),
		"DS_MERCHANT_ORDER":           p.OrderID,
		"DS_MERCHANT_MERCHANTCODE":    m.Code,
		"DS_MERCHANT_CURRENCY":        currency,
		"DS_MERCHANT_TRANSACTIONTYPE": TransactionTypeAuthorization,
		"DS_MERCHANT_TERMINAL":        m.Terminal,
		"DS_MERCHANT_MERCHANTURL":     p.NotifyURL,
		"DS_MERCHANT_URLOK":           withQuery(p.ReturnURL, "ok", p.Token),
		"DS_MERCHANT_URLKO":           withQuery(p.ReturnURL, "ko", p.Token),
		"DS_MERCHANT_MERCHANTDATA":    p.Token,
	}
}

func withQuery(base, result, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("result", result)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// MaxOrderIntentID is the largest intent id that fits the six digit suffix.
const MaxOrderIntentID = 999999

// OrderID is the UTC date as YYMMDD followed by the intent id padded to six
// digits, which keeps it inside the gateway's 4-12 digit constraint. Larger
// ids are refused rather than wrapped onto an existing order.
func OrderID(now time.Time, intentID int64) (string, error) {
	if intentID < 1 || intentID > MaxOrderIntentID {
		return "", fmt.Errorf("%w: intent id %d", ErrOrderOverflow, intentID)
	}
	return fmt.Sprintf("%s%06d", now.UTC().Format("060102"), intentID), nil
}

type RedirectForm struct {
	SignatureVersion   string `json:"Ds_SignatureVersion"`
	MerchantParameters string `json:"Ds_MerchantParameters"`
	Signature          string `json:"Ds_Signature"`
}

// NewRedirectForm encodes and signs the params for the browser POST.
func NewRedirectForm(m Merchant, p Payment) (*RedirectForm, error) {
	encoded, err := EncodeParams(MerchantParams(m, p))
	if err != nil {
		return nil, err
	}
	sig, err := Sign(encoded, p.OrderID, m.Secret)
	if err != nil {
		return nil, err
	}
	return &RedirectForm{
		SignatureVersion:   SignatureVersion,
		MerchantParameters: encoded,
		Signature:          sig,
	}, nil
}

// Response wraps the decoded Ds_MerchantParameters of a callback. The
// gateway is inconsistent about key casing so lookups try both.
type Response map[string]string

func (r Response) get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (r Response) Order() string {
	return r.get("Ds_Order", "DS_ORDER")
}

func (r Response) MerchantData() string {
	return r.get("Ds_MerchantData", "DS_MERCHANTDATA")
}

func (r Response) AuthorisationCode() string {
	return r.get("Ds_AuthorisationCode", "DS_AUTHORISATIONCODE")
}

func (r Response) MerchantIdentifier() string {
	return r.get("Ds_Merchant_Identifier", "DS_MERCHANT_IDENTIFIER")
}

func (r Response) CardCountry() string {
	return r.get("Ds_Card_Country", "DS_CARD_COUNTRY")
}

func (r Response) Amount() string {
	return r.get("Ds_Amount", "DS_AMOUNT")
}

// Code returns Ds_Response, or 9999 when it is absent or not numeric.
func (r Response) Code() int {
	raw := r.get("Ds_Response", "DS_RESPONSE")
	code, err := strconv.Atoi(raw)
	if err != nil {
		return unknownResponse
	}
	return code
}

func (r Response) IsAuthorised() bool {
	code := r.Code()
	return code >= 0 && code <= maxAuthorisedResponse
}
