package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
)

type IntentStoreTestSuite struct {
	suite.Suite
	dbConn *bun.DB
	store  *service.BunIntentStore
}

func (suite *IntentStoreTestSuite) SetupSuite() {
	svc, dbConn, err := PortalTestServiceInit(nil, nil, nil, &testClock{now: time.Now()})
	if err != nil {
		suite.T().Skipf("no test database: %v", err)
	}
	suite.dbConn = dbConn
	suite.store = svc.Store.(*service.BunIntentStore)
}

func (suite *IntentStoreTestSuite) SetupTest() {
	require.NoError(suite.T(), clearTables(suite.dbConn))
}

func (suite *IntentStoreTestSuite) createIntent() *models.PaymentIntent {
	intent := &models.PaymentIntent{
		Token:         uuid.NewString(),
		UserID:        userID,
		CustomerID:    customerID,
		BookingID:     bookingID,
		Amount:        25000,
		PendingBefore: 100000,
		Currency:      "EUR",
		Mode:          models.PaymentModeFull,
		Status:        models.IntentStatusCreated,
	}
	require.NoError(suite.T(), suite.store.CreateIntent(context.Background(), intent,
		models.NewIntentEvent(models.IntentEventCreated, nil)))
	return intent
}

func (suite *IntentStoreTestSuite) TestLookups() {
	t := suite.T()
	ctx := context.Background()
	intent := suite.createIntent()

	byToken, err := suite.store.GetIntentByToken(ctx, intent.Token)
	assert.NoError(t, err)
	assert.Equal(t, intent.ID, byToken.ID)

	_, err = suite.store.GetIntentByToken(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrIntentNotFound)
	_, err = suite.store.GetIntentByGatewayOrderID(ctx, "")
	assert.ErrorIs(t, err, service.ErrIntentNotFound)
}

func (suite *IntentStoreTestSuite) TestStatusUpdatesFollowTheStateMachine() {
	t := suite.T()
	ctx := context.Background()
	intent := suite.createIntent()

	res, err := suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{Status: models.IntentStatusRedirecting})
	assert.NoError(t, err)
	assert.Equal(t, models.IntentStatusRedirecting, res.Intent.Status)

	res, err = suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{Status: models.IntentStatusFailed})
	assert.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, res.Intent.Status)

	// terminal intents keep their status
	res, err = suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{Status: models.IntentStatusNotifiedOK})
	assert.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, res.Intent.Status)

	events, err := suite.store.ListIntentEvents(ctx, intent.ID)
	assert.NoError(t, err)
	assert.NotEmpty(t, events)
}

func (suite *IntentStoreTestSuite) TestMailClaimsAreTakenOnce() {
	t := suite.T()
	ctx := context.Background()
	intent := suite.createIntent()

	res, err := suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{ClaimMailPayment: true})
	assert.NoError(t, err)
	assert.True(t, res.MailPaymentClaimed)

	res, err = suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{ClaimMailPayment: true})
	assert.NoError(t, err)
	assert.False(t, res.MailPaymentClaimed)

	_, err = suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{ReleaseMailPayment: true})
	assert.NoError(t, err)
	res, err = suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{ClaimMailPayment: true})
	assert.NoError(t, err)
	assert.True(t, res.MailPaymentClaimed)
}

func (suite *IntentStoreTestSuite) TestListReconciledWithUnsentPaymentEvent() {
	t := suite.T()
	ctx := context.Background()
	unsent := suite.createIntent()
	sent := suite.createIntent()
	open := suite.createIntent()
	for _, intent := range []*models.PaymentIntent{unsent, sent} {
		_, err := suite.store.UpdateIntent(ctx, intent.ID, service.IntentUpdate{Status: models.IntentStatusReconciled})
		require.NoError(t, err)
	}
	_, err := suite.store.UpdateIntent(ctx, sent.ID, service.IntentUpdate{ClaimMailPayment: true})
	require.NoError(t, err)

	filter := service.IntentFilter{
		Status:            models.IntentStatusReconciled,
		MailPaymentUnsent: true,
		WithoutJob:        true,
	}
	found, err := suite.store.ListIntents(ctx, filter)
	assert.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, unsent.ID, found[0].ID)
	assert.NotEqual(t, open.ID, found[0].ID)

	_, err = suite.store.ScheduleReconcile(ctx, unsent.ID, time.Now(), true)
	require.NoError(t, err)
	found, err = suite.store.ListIntents(ctx, filter)
	assert.NoError(t, err)
	assert.Empty(t, found)
}

func (suite *IntentStoreTestSuite) TestIdempotencyKey() {
	t := suite.T()
	ctx := context.Background()
	intent := suite.createIntent()

	key, err := suite.store.AcquireIdempotencyKey(ctx, intent.ID, models.OperationErpBridge, time.Minute)
	assert.NoError(t, err)

	_, err = suite.store.AcquireIdempotencyKey(ctx, intent.ID, models.OperationErpBridge, time.Minute)
	assert.ErrorIs(t, err, service.ErrIdempotencyInProgress)

	assert.NoError(t, suite.store.FailIdempotencyKey(ctx, key, "giav timeout"))
	key, err = suite.store.AcquireIdempotencyKey(ctx, intent.ID, models.OperationErpBridge, time.Minute)
	assert.NoError(t, err)

	assert.NoError(t, suite.store.CompleteIdempotencyKey(ctx, key, "9001"))
	done, err := suite.store.AcquireIdempotencyKey(ctx, intent.ID, models.OperationErpBridge, time.Minute)
	assert.ErrorIs(t, err, service.ErrAlreadyCompleted)
	assert.Equal(t, "9001", done.Result)
}

func (suite *IntentStoreTestSuite) TestReconcileJobs() {
	t := suite.T()
	ctx := context.Background()
	intent := suite.createIntent()
	now := time.Now().UTC().Truncate(time.Second)

	created, err := suite.store.ScheduleReconcile(ctx, intent.ID, now.Add(time.Minute), true)
	assert.NoError(t, err)
	assert.True(t, created)
	created, err = suite.store.ScheduleReconcile(ctx, intent.ID, now, true)
	assert.NoError(t, err)
	assert.False(t, created)

	jobs, err := suite.store.ClaimDueReconcileJobs(ctx, now, 10, time.Minute)
	assert.NoError(t, err)
	assert.Empty(t, jobs)

	_, err = suite.store.ScheduleReconcile(ctx, intent.ID, now, false)
	assert.NoError(t, err)
	jobs, err = suite.store.ClaimDueReconcileJobs(ctx, now, 10, time.Minute)
	assert.NoError(t, err)
	require.Len(t, jobs, 1)

	// leased jobs are not claimed twice
	again, err := suite.store.ClaimDueReconcileJobs(ctx, now, 10, time.Minute)
	assert.NoError(t, err)
	assert.Empty(t, again)

	assert.NoError(t, suite.store.CompleteReconcileJob(ctx, jobs[0]))
	job, err := suite.store.GetReconcileJob(ctx, intent.ID)
	assert.NoError(t, err)
	assert.Nil(t, job)
}

func (suite *IntentStoreTestSuite) TestPortalUsers() {
	t := suite.T()
	ctx := context.Background()

	_, err := suite.store.GetPortalUser(ctx, userID)
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	assert.NoError(t, suite.store.UpsertPortalUser(ctx, &models.PortalUser{ID: userID, GiavCustomerID: customerID}))
	assert.NoError(t, suite.store.UpsertPortalUser(ctx, &models.PortalUser{ID: userID, GiavCustomerID: 6000}))
	user, err := suite.store.GetPortalUser(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(6000), user.GiavCustomerID)
}

func TestIntentStoreTestSuite(t *testing.T) {
	suite.Run(t, new(IntentStoreTestSuite))
}
