package giav

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PaymentMetadata describes a confirmed card payment for the ERP ledger.
type PaymentMetadata struct {
	Token              string
	OrderID            string
	AuthorisationCode  string
	MerchantIdentifier string
	CardCountry        string
	ResponseCode       int
	UserID             int64
	PaidAt             time.Time
}

type internalNotes struct {
	Source             string `json:"source"`
	Token              string `json:"token"`
	Order              string `json:"order"`
	AuthCode           string `json:"auth_code"`
	MerchantIdentifier string `json:"merchant_identifier"`
	CardCountry        string `json:"card_country"`
	Response           string `json:"response"`
}

type cobroPost struct {
	Request
	IdFormaPago     int64  `xml:"idFormaPago"`
	IdOficina       int64  `xml:"idOficina,omitempty"`
	IdExpediente    int64  `xml:"idExpediente"`
	IdCliente       int64  `xml:"idCliente"`
	IdTipoOperacion string `xml:"idTipoOperacion"`
	Importe         string `xml:"importe"`
	FechaCobro      string `xml:"fechaCobro"`
	Concepto        string `xml:"concepto"`
	Documento       string `xml:"documento"`
	Pagador         string `xml:"pagador"`
	NotasInternas   string `xml:"notasInternas"`
	Autocompensar   bool   `xml:"autocompensar"`
}

type cobroPostResponse struct {
	Result string `xml:"Cobro_POSTResult"`
}

// RecordPayment inserts a Cobro for the booking and returns its id. It is
// not idempotent on the ERP side and is never retried here.
func (c *Client) RecordPayment(ctx context.Context, bookingID, customerID, amount int64, meta PaymentMetadata) (int64, error) {
	notes, err := json.Marshal(internalNotes{
		Source:             "portal-giav",
		Token:              meta.Token,
		Order:              meta.OrderID,
		AuthCode:           meta.AuthorisationCode,
		MerchantIdentifier: meta.MerchantIdentifier,
		CardCountry:        meta.CardCountry,
		Response:           fmt.Sprintf("%d", meta.ResponseCode),
	})
	if err != nil {
		return 0, err
	}

	paidAt := meta.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	document := meta.AuthorisationCode
	if strings.TrimSpace(document) == "" {
		document = meta.MerchantIdentifier
	}
	payer := "Portal"
	if meta.UserID > 0 {
		payer = fmt.Sprintf("Portal user %d", meta.UserID)
	}

	body := cobroPost{
		Request:         c.newRequest("Cobro_POST"),
		IdFormaPago:     c.opts.PaymentMethod,
		IdOficina:       c.opts.OfficeID,
		IdExpediente:    bookingID,
		IdCliente:       customerID,
		IdTipoOperacion: "Cobro",
		Importe:         formatCents(amount),
		FechaCobro:      paidAt.Format("2006-01-02"),
		Concepto:        "Pago Redsys " + meta.OrderID,
		Documento:       document,
		Pagador:         payer,
		NotasInternas:   string(notes),
		Autocompensar:   true,
	}

	var resp cobroPostResponse
	if err := c.call(ctx, "Cobro_POST", body, &resp); err != nil {
		return 0, unwrapPermanent(err)
	}
	id := parseID(resp.Result)
	if id <= 0 {
		return 0, fmt.Errorf("%w: booking %d result %q", ErrPaymentRejected, bookingID, resp.Result)
	}
	c.logger.Infof("giav: cobro %d recorded for booking %d amount %s", id, bookingID, formatCents(amount))
	return id, nil
}
