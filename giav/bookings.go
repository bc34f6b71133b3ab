package giav

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Reservation struct {
	ID              int64
	Type            string
	Sale            int64 // cents
	ParentID        int64
	Deadline        time.Time
	PassengerCobros int64 // cents, DatosExternos.TotalCobrosPasajeros
}

type PaymentRecord struct {
	BookingID int64
	Amount    int64 // cents, signed as returned
	Operation string
}

// Balance is the ERP's view of what a booking costs and what was collected.
type Balance struct {
	Total     int64
	Paid      int64
	Pending   int64
	Deadlines []time.Time
	Payments  int
}

type wsReserva struct {
	ID            string `xml:"Id"`
	TipoReserva   string `xml:"TipoReserva"`
	Venta         string `xml:"Venta"`
	Contenedora   string `xml:"Anidacion_IdReservaContenedora"`
	FechaLimite   string `xml:"FechaLimite"`
	FechaLimPago  string `xml:"FechaLimitePago"`
	DatosExternos struct {
		TotalCobrosPasajeros string `xml:"TotalCobrosPasajeros"`
	} `xml:"DatosExternos"`
}

type wsCobro struct {
	IdExpediente  string `xml:"IdExpediente"`
	Importe       string `xml:"Importe"`
	TipoOperacion string `xml:"TipoOperacion"`
}

type wsExpediente struct {
	ID        string `xml:"Id"`
	IdCliente string `xml:"IdCliente"`
	Codigo    string `xml:"Codigo"`
}

type reservasSearch struct {
	Request
	IdsExpediente               *intList `xml:"idsExpediente"`
	IdsCliente                  *intList `xml:"idsCliente,omitempty"`
	FacturacionPendiente        string   `xml:"facturacionPendiente"`
	CobroPendiente              string   `xml:"cobroPendiente"`
	PrepagoPendiente            string   `xml:"prepagoPendiente"`
	RecepcionCosteTotal         string   `xml:"recepcionCosteTotal"`
	ModofiltroImporte           string   `xml:"modofiltroImporte"`
	ImporteDesde                int64    `xml:"importeDesde"`
	ImporteHasta                int64    `xml:"importeHasta"`
	FechaReserva                string   `xml:"fechaReserva"`
	ModoFiltroLocalizadorPedido string   `xml:"modoFiltroLocalizadorPedido"`
	PageSize                    int      `xml:"pageSize"`
	PageIndex                   int      `xml:"pageIndex"`
}

type reservasSearchResponse struct {
	Result struct {
		Items []wsReserva `xml:"WsReserva"`
	} `xml:"Reservas_SEARCHResult"`
}

type cobroSearch struct {
	Request
	IdsExpedientes *intList `xml:"idsExpedientes"`
	IdsCliente     *intList `xml:"idsCliente,omitempty"`
	ModoImporte    string   `xml:"modoImporte"`
	Traspasado     string   `xml:"traspasado"`
	Conciliado     string   `xml:"conciliado"`
	PageSize       int      `xml:"pageSize"`
	PageIndex      int      `xml:"pageIndex"`
}

type cobroSearchResponse struct {
	Result struct {
		Items []wsCobro `xml:"WsCobro"`
	} `xml:"Cobro_SEARCHResult"`
}

type expedienteSearch struct {
	Request
	IdsExpediente        *intList `xml:"idsExpediente"`
	ModoMultiFiltroFecha string   `xml:"modoMultiFiltroFecha"`
	FacturacionPendiente string   `xml:"facturacionPendiente"`
	CobroPendiente       string   `xml:"cobroPendiente"`
	EstadoCierre         string   `xml:"estadoCierre"`
	TipoExpediente       string   `xml:"tipoExpediente"`
	RecepcionCosteTotal  string   `xml:"recepcionCosteTotal"`
	PageSize             int      `xml:"pageSize"`
	PageIndex            int      `xml:"pageIndex"`
}

type expedienteSearchResponse struct {
	Result struct {
		Items []wsExpediente `xml:"WsExpediente"`
	} `xml:"Expediente_SEARCHResult"`
}

const notApplicable = "NoAplicar"

// Reservations returns every reservation of the booking, filtered by the
// customer when one is given.
func (c *Client) Reservations(ctx context.Context, bookingID, customerID int64) ([]Reservation, error) {
	out := []Reservation{}
	for page := 0; page < c.opts.MaxPages; page++ {
		body := reservasSearch{
			Request:                     c.newRequest("Reservas_SEARCH"),
			IdsExpediente:               ids(bookingID),
			FacturacionPendiente:        notApplicable,
			CobroPendiente:              notApplicable,
			PrepagoPendiente:            notApplicable,
			RecepcionCosteTotal:         notApplicable,
			ModofiltroImporte:           "venta",
			ImporteHasta:                9999999,
			FechaReserva:                "creacion",
			ModoFiltroLocalizadorPedido: "LOCPED",
			PageSize:                    c.opts.PageSize,
			PageIndex:                   page,
		}
		if customerID > 0 {
			body.IdsCliente = ids(customerID)
		}
		var resp reservasSearchResponse
		if err := c.read(ctx, "Reservas_SEARCH", body, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Result.Items {
			out = append(out, item.toReservation())
		}
		if len(resp.Result.Items) < c.opts.PageSize {
			break
		}
	}
	return out, nil
}

func (w wsReserva) toReservation() Reservation {
	r := Reservation{
		ID:              parseID(w.ID),
		Type:            strings.ToUpper(strings.TrimSpace(w.TipoReserva)),
		Sale:            parseCents(w.Venta),
		ParentID:        parseID(w.Contenedora),
		PassengerCobros: parseCents(w.DatosExternos.TotalCobrosPasajeros),
	}
	// GIAV uses either field depending on the reservation type
	raw := w.FechaLimite
	if strings.TrimSpace(raw) == "" {
		raw = w.FechaLimPago
	}
	r.Deadline = parseDate(raw)
	return r
}

// Payments returns the cobros of the booking. GIAV sometimes answers with
// every cobro of the customer, so results are filtered by booking id.
func (c *Client) Payments(ctx context.Context, bookingID, customerID int64) ([]PaymentRecord, error) {
	out := []PaymentRecord{}
	for page := 0; page < c.opts.MaxPages; page++ {
		body := cobroSearch{
			Request:        c.newRequest("Cobro_SEARCH"),
			IdsExpedientes: ids(bookingID),
			ModoImporte:    "Importe",
			Traspasado:     notApplicable,
			Conciliado:     notApplicable,
			PageSize:       c.opts.PageSize,
			PageIndex:      page,
		}
		if customerID > 0 {
			body.IdsCliente = ids(customerID)
		}
		var resp cobroSearchResponse
		if err := c.read(ctx, "Cobro_SEARCH", body, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Result.Items {
			if parseID(item.IdExpediente) != bookingID {
				continue
			}
			out = append(out, PaymentRecord{
				BookingID: bookingID,
				Amount:    parseCents(item.Importe),
				Operation: strings.ToUpper(strings.TrimSpace(item.TipoOperacion)),
			})
		}
		if len(resp.Result.Items) < c.opts.PageSize {
			break
		}
	}
	return out, nil
}

// BookingBalance reads reservations and cobros and computes the balance.
func (c *Client) BookingBalance(ctx context.Context, bookingID, customerID int64) (*Balance, error) {
	reservations, err := c.Reservations(ctx, bookingID, customerID)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoReservations, bookingID)
	}
	payments, err := c.Payments(ctx, bookingID, customerID)
	if err != nil {
		return nil, err
	}
	balance := CalcBalance(reservations, payments)
	return &balance, nil
}

func (c *Client) GetPendingBalance(ctx context.Context, bookingID, customerID int64) (int64, error) {
	balance, err := c.BookingBalance(ctx, bookingID, customerID)
	if err != nil {
		return 0, err
	}
	return balance.Pending, nil
}

// BookingCustomer returns the customer that owns the booking.
func (c *Client) BookingCustomer(ctx context.Context, bookingID int64) (int64, error) {
	body := expedienteSearch{
		Request:              c.newRequest("Expediente_SEARCH"),
		IdsExpediente:        ids(bookingID),
		ModoMultiFiltroFecha: "Salida",
		FacturacionPendiente: notApplicable,
		CobroPendiente:       notApplicable,
		EstadoCierre:         notApplicable,
		TipoExpediente:       notApplicable,
		RecepcionCosteTotal:  notApplicable,
		PageSize:             10,
	}
	var resp expedienteSearchResponse
	if err := c.read(ctx, "Expediente_SEARCH", body, &resp); err != nil {
		return 0, err
	}
	for _, exp := range resp.Result.Items {
		if id := parseID(exp.ID); id != 0 && id != bookingID {
			continue
		}
		if customer := parseID(exp.IdCliente); customer > 0 {
			return customer, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrBookingNotFound, bookingID)
}

// CalcBalance mirrors how the agency computes what is still owed: the sale
// price of root reservations minus cobros net of
// refunds. When GIAV has no cobros the passenger totals of the roots are
// used instead.
func CalcBalance(reservations []Reservation, payments []PaymentRecord) Balance {
	byID := make(map[int64]bool, len(reservations))
	for _, r := range reservations {
		if r.ID != 0 {
			byID[r.ID] = true
		}
	}
	isRoot := func(r Reservation) bool {
		return r.ParentID <= 0 || !byID[r.ParentID]
	}

	var total, fallback int64
	deadlines := []time.Time{}
	for _, r := range reservations {
		if !r.Deadline.IsZero() {
			deadlines = append(deadlines, r.Deadline)
		}
		if !isRoot(r) {
			continue
		}
		total += r.Sale
		fallback += r.PassengerCobros
	}
	sort.Slice(deadlines, func(i, j int) bool { return deadlines[i].Before(deadlines[j]) })

	var paid, refunded int64
	for _, p := range payments {
		amount := p.Amount
		if p.Operation == "" {
			if amount >= 0 {
				paid += amount
			} else {
				refunded += -amount
			}
			continue
		}
		if amount < 0 {
			amount = -amount
		}
		if isRefund(p.Operation) {
			refunded += amount
		} else {
			paid += amount
		}
	}

	net := paid - refunded
	if net < 0 {
		net = 0
	}
	if net == 0 && fallback > 0 {
		net = fallback
	}

	pending := total - net
	if pending < 0 {
		pending = 0
	}
	return Balance{
		Total:     total,
		Paid:      net,
		Pending:   pending,
		Deadlines: deadlines,
		Payments:  len(payments),
	}
}

func isRefund(operation string) bool {
	return operation == "REEMBOLSO" || strings.Contains(operation, "REEM") || strings.Contains(operation, "DEV")
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// parseCents reads an xsd:decimal such as "1234.5" as cents.
func parseCents(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "0001-01-01") {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
