package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/trailbook/internal/payment/repository"
	paymentservice "github.com/smallbiznis/trailbook/internal/payment/service"
	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPaymentLookups(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := paymentrepo.Provide()
	svc := paymentservice.NewService(paymentservice.Params{DB: db, Log: zap.NewNop(), Repo: repo})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	payment := &paymentdomain.Payment{
		ID:               node.Generate(),
		BookingID:        node.Generate(),
		BookingRef:       "TRVABC1234",
		Gateway:          "razorpay",
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: "sig",
		Amount:           128725,
		Currency:         "INR",
		Status:           paymentdomain.StatusCompleted,
		CustomerName:     "Asha",
		CustomerEmail:    "asha@example.com",
		CustomerPhone:    "+919800000000",
		EventID:          node.Generate(),
		EventTitle:       "Hampta Pass",
		EventDate:        now.AddDate(0, 1, 0),
		Participants:     1,
		PaidAt:           now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.Insert(ctx, db, payment))

	byID, err := svc.GetByID(ctx, payment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "pay_1", byID.GatewayPaymentID)

	byGatewayID, err := svc.GetByID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byGatewayID.ID)

	byBooking, err := svc.FindByBookingID(ctx, payment.BookingID)
	require.NoError(t, err)
	require.NotNil(t, byBooking)
	assert.Equal(t, int64(128725), byBooking.Amount)

	_, err = svc.GetByID(ctx, "pay_missing")
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)

	_, err = svc.GetByID(ctx, " ")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidID)

	missing, err := svc.FindByGatewayPaymentID(ctx, "pay_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateGatewayPaymentRejected(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := paymentrepo.Provide()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	now := time.Now().UTC()
	newPayment := func() *paymentdomain.Payment {
		return &paymentdomain.Payment{
			ID: node.Generate(), BookingID: node.Generate(), BookingRef: "TRVX",
			Gateway: "razorpay", GatewayOrderID: "order_1", GatewayPaymentID: "pay_dup",
			GatewaySignature: "sig", Amount: 1, Currency: "INR", Status: paymentdomain.StatusCompleted,
			CustomerName: "a", CustomerEmail: "a@b.c", CustomerPhone: "1", EventID: 1,
			EventTitle: "t", EventDate: now, Participants: 1, PaidAt: now, CreatedAt: now, UpdatedAt: now,
		}
	}
	require.NoError(t, repo.Insert(ctx, db, newPayment()))
	assert.Error(t, repo.Insert(ctx, db, newPayment()))
}
