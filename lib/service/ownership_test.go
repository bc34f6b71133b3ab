package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/dimasromerop/portal-giav/lib/service/mock_service"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingOwnership(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := newMemStore(time.Now)
	directory := mock_service.NewMockBookingDirectory(ctrl)
	ownership := &service.BookingOwnership{Store: store, Directory: directory}

	require.NoError(t, store.UpsertPortalUser(ctx, &models.PortalUser{ID: testUserID, GiavCustomerID: testCustomer}))
	require.NoError(t, store.UpsertPortalUser(ctx, &models.PortalUser{ID: 8}))

	directory.EXPECT().BookingCustomer(gomock.Any(), testBookingID).Return(testCustomer, nil).AnyTimes()
	directory.EXPECT().BookingCustomer(gomock.Any(), int64(43)).Return(int64(6000), nil).AnyTimes()
	directory.EXPECT().BookingCustomer(gomock.Any(), int64(44)).Return(int64(0), giav.ErrBookingNotFound).AnyTimes()
	directory.EXPECT().BookingCustomer(gomock.Any(), int64(45)).Return(int64(0), errors.New("giav: unavailable")).AnyTimes()

	customer, err := ownership.CustomerForBooking(ctx, testUserID, testBookingID)
	require.NoError(t, err)
	assert.Equal(t, testCustomer, customer)

	ok, err := ownership.CanAccessBooking(ctx, testUserID, testBookingID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ownership.CanAccessBooking(ctx, testUserID, 43)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ownership.CanAccessBooking(ctx, testUserID, 44)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ownership.CanAccessBooking(ctx, testUserID, 45)
	assert.ErrorIs(t, err, service.ErrErpUnavailable)

	_, err = ownership.CustomerForBooking(ctx, 8, testBookingID)
	assert.ErrorIs(t, err, service.ErrBookingNotOwned)

	_, err = ownership.CustomerForBooking(ctx, 99, testBookingID)
	assert.ErrorIs(t, err, service.ErrBookingNotOwned)

	_, err = ownership.CustomerForBooking(ctx, 0, testBookingID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}
