package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dimasromerop/portal-giav/controllers"
	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib/redsys"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/dimasromerop/portal-giav/lib/service/mock_service"
	"github.com/dimasromerop/portal-giav/lib/tokens"
	"github.com/dimasromerop/portal-giav/lib/transport"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
)

const (
	userID     = int64(7)
	customerID = int64(5001)
	bookingID  = int64(42)
)

type PaymentFlowTestSuite struct {
	TestSuite
	ctrl      *gomock.Controller
	erp       *mock_service.MockERP
	directory *mock_service.MockBookingDirectory
	events    *mock_service.MockEventPublisher
	clock     *testClock
	service   *service.PaymentService
	dbConn    *bun.DB
	userToken string
}

func (suite *PaymentFlowTestSuite) SetupSuite() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.erp = mock_service.NewMockERP(suite.ctrl)
	suite.directory = mock_service.NewMockBookingDirectory(suite.ctrl)
	suite.events = mock_service.NewMockEventPublisher(suite.ctrl)
	suite.clock = &testClock{now: time.Now().UTC().Truncate(time.Second)}

	svc, dbConn, err := PortalTestServiceInit(suite.erp, suite.directory, suite.events, suite.clock)
	if err != nil {
		suite.T().Skipf("no test database: %v", err)
	}
	suite.service = svc
	suite.dbConn = dbConn

	logger := lecho.New(io.Discard)
	e := transport.InitEcho(svc.Config, logger)
	logMw := transport.CreateLoggingMiddleware(logger)
	strict := transport.CreateRateLimitMiddleware(svc.Config.StrictRateLimit, svc.Config.BurstRateLimit)
	secured := e.Group("", tokens.Middleware(svc.Config.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(svc.Config.JWTSecret), strict, logMw)
	transport.RegisterEndpoints(svc, e, secured, securedWithStrictRateLimit, tokens.AdminTokenMiddleware(svc.Config.AdminToken, ""), logMw)
	suite.echo = e

	suite.userToken, err = tokens.GenerateAccessToken(svc.Config.JWTSecret, 3600, userID)
	assert.NoError(suite.T(), err)
}

func (suite *PaymentFlowTestSuite) SetupTest() {
	assert.NoError(suite.T(), clearTables(suite.dbConn))
	suite.linkUser()
}

func (suite *PaymentFlowTestSuite) TearDownSuite() {
	if suite.dbConn != nil {
		assert.NoError(suite.T(), clearTables(suite.dbConn))
	}
	suite.ctrl.Finish()
}

func (suite *PaymentFlowTestSuite) linkUser() {
	body := new(bytes.Buffer)
	assert.NoError(suite.T(), json.NewEncoder(body).Encode(&controllers.LinkUserRequestBody{
		ID:             userID,
		Email:          "cliente@example.com",
		GiavCustomerID: customerID,
	}))
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/users", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+testAdminToken)
	rec := suite.do(req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *PaymentFlowTestSuite) expectBooking(balance *giav.Balance) {
	suite.directory.EXPECT().BookingCustomer(gomock.Any(), bookingID).Return(customerID, nil)
	suite.erp.EXPECT().BookingBalance(gomock.Any(), bookingID, customerID).Return(balance, nil)
}

func (suite *PaymentFlowTestSuite) paymentOptions() *service.PaymentOptions {
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/bookings/%d/payment", bookingID), nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+suite.userToken)
	rec := suite.do(req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	opts := &service.PaymentOptions{}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(opts))
	return opts
}

func (suite *PaymentFlowTestSuite) initiate(mode, authToken string) *httptest.ResponseRecorder {
	body := new(bytes.Buffer)
	assert.NoError(suite.T(), json.NewEncoder(body).Encode(&controllers.InitiatePaymentRequestBody{
		Mode:      mode,
		AuthToken: authToken,
	}))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/payment", bookingID), body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+suite.userToken)
	return suite.do(req)
}

// notification signs the gateway answer for a started payment.
func (suite *PaymentFlowTestSuite) notification(payment *controllers.InitiatePaymentResponseBody, response string) url.Values {
	sent := redsys.DecodeParams(payment.Form.MerchantParameters)
	params, err := redsys.EncodeParams(map[string]string{
		"Ds_Order":             sent["DS_MERCHANT_ORDER"],
		"Ds_Amount":            sent["DS_MERCHANT_AMOUNT"],
		"Ds_Currency":          redsys.CurrencyEUR,
		"Ds_Response":          response,
		"Ds_MerchantData":      sent["DS_MERCHANT_MERCHANTDATA"],
		"Ds_AuthorisationCode": "654321",
	})
	assert.NoError(suite.T(), err)
	sig, err := redsys.Sign(params, payment.OrderID, testSecret)
	assert.NoError(suite.T(), err)
	return url.Values{
		"Ds_SignatureVersion":   {"HMAC_SHA256_V1"},
		"Ds_MerchantParameters": {params},
		"Ds_Signature":          {sig},
	}
}

func (suite *PaymentFlowTestSuite) notify(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/redsys/notify", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return suite.do(req)
}

func (suite *PaymentFlowTestSuite) adminGet(path string, out interface{}) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+testAdminToken)
	rec := suite.do(req)
	if out != nil && rec.Code == http.StatusOK {
		assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func (suite *PaymentFlowTestSuite) TestFullPaymentIsRecordedOnceAndReconciled() {
	t := suite.T()
	ctx := context.Background()

	suite.expectBooking(&giav.Balance{Total: 120000, Paid: 20000, Pending: 100000})
	opts := suite.paymentOptions()
	assert.True(t, opts.Payable)
	assert.Equal(t, int64(100000), opts.Pending)
	assert.NotEmpty(t, opts.AuthToken)

	suite.expectBooking(&giav.Balance{Total: 120000, Paid: 20000, Pending: 100000})
	rec := suite.initiate("full", opts.AuthToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	payment := &controllers.InitiatePaymentResponseBody{}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(payment))
	assert.Equal(t, int64(100000), payment.Amount)
	assert.True(t, redsys.Verify(payment.Form.MerchantParameters, payment.OrderID, testSecret, payment.Form.Signature))

	suite.erp.EXPECT().
		RecordPayment(gomock.Any(), bookingID, customerID, int64(100000), gomock.Any()).
		Times(1).
		Return(int64(9001), nil)
	suite.events.EXPECT().
		PublishPaymentEvent(gomock.Any(), gomock.Any()).
		Times(1).
		Return(nil)

	form := suite.notification(payment, "0000")
	for i := 0; i < 3; i++ {
		rec = suite.notify(form)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	}

	intent, err := suite.service.Store.GetIntentByID(ctx, payment.IntentID)
	assert.NoError(t, err)
	assert.Equal(t, models.IntentStatusNotifiedOK, intent.Status)
	assert.Equal(t, int64(9001), intent.ErpLedgerID)

	// the first reconcile run is due after the initial delay
	suite.clock.Advance(15 * time.Second)
	suite.erp.EXPECT().GetPendingBalance(gomock.Any(), bookingID, customerID).Return(int64(0), nil)
	suite.events.EXPECT().
		PublishPaymentEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event service.PaymentEvent) error {
			assert.Equal(t, service.EventBookingFullyPaid, event.Type)
			return nil
		})
	n, err := service.NewReconcileWorker(suite.service).Drain(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	list := &controllers.ListIntentsResponseBody{}
	assert.Equal(t, http.StatusOK, suite.adminGet("/v1/admin/intents?status=reconciled", list))
	assert.Len(t, list.Intents, 1)
	assert.Equal(t, payment.IntentID, list.Intents[0].ID)

	detail := &service.IntentDetail{}
	assert.Equal(t, http.StatusOK, suite.adminGet("/v1/admin/intents/"+strconv.FormatInt(payment.IntentID, 10), detail))
	assert.NotEmpty(t, detail.Events)
	assert.Nil(t, detail.Job)
}

func (suite *PaymentFlowTestSuite) TestDeclinedPaymentIsNotRecorded() {
	t := suite.T()

	suite.expectBooking(&giav.Balance{Total: 100000, Pending: 100000})
	opts := suite.paymentOptions()

	suite.expectBooking(&giav.Balance{Total: 100000, Pending: 100000})
	rec := suite.initiate("deposit", opts.AuthToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	payment := &controllers.InitiatePaymentResponseBody{}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(payment))
	assert.Equal(t, int64(10000), payment.Amount)

	rec = suite.notify(suite.notification(payment, "0190"))
	assert.Equal(t, http.StatusOK, rec.Code)

	list := &controllers.ListIntentsResponseBody{}
	assert.Equal(t, http.StatusOK, suite.adminGet("/v1/admin/intents?status=notified_ko", list))
	assert.Len(t, list.Intents, 1)
}

func (suite *PaymentFlowTestSuite) TestTamperedNotificationIsRejected() {
	t := suite.T()

	suite.expectBooking(&giav.Balance{Total: 100000, Pending: 100000})
	opts := suite.paymentOptions()
	suite.expectBooking(&giav.Balance{Total: 100000, Pending: 100000})
	rec := suite.initiate("full", opts.AuthToken)
	payment := &controllers.InitiatePaymentResponseBody{}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(payment))

	form := suite.notification(payment, "0000")
	form.Set("Ds_Signature", "bm90LWEtc2lnbmF0dXJl")
	rec = suite.notify(form)
	assert.Equal(t, http.StatusOK, rec.Code)

	list := &controllers.ListIntentsResponseBody{}
	assert.Equal(t, http.StatusOK, suite.adminGet("/v1/admin/intents?status=notified_bad_sig", list))
	assert.Len(t, list.Intents, 1)
}

func (suite *PaymentFlowTestSuite) TestAdminRequiresToken() {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/intents", nil)
	rec := suite.do(req)
	assert.NotEqual(suite.T(), http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/intents", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer wrong")
	rec = suite.do(req)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func (suite *PaymentFlowTestSuite) TestPaymentOptionsOfForeignBooking() {
	suite.directory.EXPECT().BookingCustomer(gomock.Any(), bookingID).Return(int64(9999), nil)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/bookings/%d/payment", bookingID), nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+suite.userToken)
	rec := suite.do(req)
	assert.Equal(suite.T(), http.StatusForbidden, rec.Code)
}

func TestPaymentFlowTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentFlowTestSuite))
}
