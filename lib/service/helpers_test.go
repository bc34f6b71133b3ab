package service_test

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/redsys"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/dimasromerop/portal-giav/lib/service/mock_service"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"
)

const (
	testSecret    = "sq7HjrUOBfKmC576ILgskD5srU870gJ7"
	testUserID    = int64(7)
	testCustomer  = int64(5001)
	testBookingID = int64(42)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc       *service.PaymentService
	store     *memStore
	clock     *testClock
	erp       *mock_service.MockERP
	ownership *mock_service.MockOwnership
	events    *mock_service.MockEventPublisher
}

func testConfig() *service.Config {
	return &service.Config{
		JWTSecret:          []byte("test-secret"),
		PaymentTokenExpiry: 600,
		PortalBaseUrl:      "https://portal.example.com/area-usuario/",
		Redsys: service.RedsysConfig{
			MerchantCode: "999008881",
			Terminal:     "001",
			Currency:     redsys.CurrencyEUR,
			SecretKey:    testSecret,
			GatewayUrl:   "https://sis-t.redsys.es:25443/sis/realizarPago",
			NotifyUrl:    "https://api.example.com/redsys/notify",
			ReturnUrl:    "https://api.example.com/redsys/return",
		},
		Deposit: service.DepositConfig{
			Enabled:        true,
			Percent:        10,
			Minimum:        5000,
			DeadlinePolicy: service.DeadlinePolicyLatest,
		},
		Reconcile: service.ReconcileConfig{
			MaxAttempts:  20,
			InitialDelay: 15,
			BaseDelay:    120,
			DelayStep:    60,
			MaxDelay:     900,
			FastDelays:   service.DurationList{15 * time.Second, 30 * time.Second, 60 * time.Second},
			BatchSize:    20,
			JobLease:     120,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	ctrl := gomock.NewController(t)
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}
	store := newMemStore(clock.Now)
	env := &testEnv{
		store:     store,
		clock:     clock,
		erp:       mock_service.NewMockERP(ctrl),
		ownership: mock_service.NewMockOwnership(ctrl),
		events:    mock_service.NewMockEventPublisher(ctrl),
	}
	env.svc = &service.PaymentService{
		Config:    testConfig(),
		Store:     store,
		Erp:       env.erp,
		Ownership: env.ownership,
		Events:    env.events,
		Logger:    lecho.New(io.Discard),
		Clock:     clock.Now,
	}
	return env
}

// seedIntent stores an intent that already went to the gateway.
func (env *testEnv) seedIntent(t *testing.T, amount int64, status models.IntentStatus) *models.PaymentIntent {
	intent := &models.PaymentIntent{
		Token:         uuid.NewString(),
		UserID:        testUserID,
		CustomerID:    testCustomer,
		BookingID:     testBookingID,
		Amount:        amount,
		PendingBefore: amount,
		Currency:      "EUR",
		Mode:          models.PaymentModeFull,
		Status:        status,
	}
	require.NoError(t, env.store.CreateIntent(context.Background(), intent))
	orderID, err := redsys.OrderID(env.clock.Now(), intent.ID)
	require.NoError(t, err)
	intent.GatewayOrderID = orderID
	env.store.mu.Lock()
	env.store.intents[intent.ID].GatewayOrderID = intent.GatewayOrderID
	env.store.mu.Unlock()
	return intent
}

// callback builds gateway parameters for the intent, signed with secret.
func callback(t *testing.T, intent *models.PaymentIntent, response, secret string) service.CallbackParams {
	params := map[string]string{
		"Ds_Order":             intent.GatewayOrderID,
		"Ds_Amount":            strconv.FormatInt(intent.Amount, 10),
		"Ds_Currency":          redsys.CurrencyEUR,
		"Ds_Response":          response,
		"Ds_MerchantData":      intent.Token,
		"Ds_AuthorisationCode": "123456",
		"Ds_Card_Country":      "724",
	}
	encoded, err := redsys.EncodeParams(params)
	require.NoError(t, err)
	sig, err := redsys.Sign(encoded, intent.GatewayOrderID, secret)
	require.NoError(t, err)
	return service.CallbackParams{
		SignatureVersion:   "HMAC_SHA256_V1",
		MerchantParameters: encoded,
		Signature:          sig,
	}
}
