package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"testing"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"
	"promptiq/m/v2/app/notify"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
	"github.com/valyala/fasthttp"
)

var testConfig *config.Config

func init() {
	testClient, err := statsd.New("127.0.0.1:8125", statsd.WithNamespace("tests."))
	if err != nil {
		log.Fatalf("error creating test DataDog client: %v", err)
	}
	testConfig = &config.Config{
		BaseURL:              "https://promptiq.test",
		DataDogClient:        testClient,
		StripeEndpointSecret: "whsec_test",
	}
}

func sparkUser(id string, used int) models.MongoUser {
	return models.MongoUser{
		ID:               id,
		Plan:             models.SparkPlan,
		GenerationsUsed:  used,
		GenerationsLimit: 30,
		PaymentHistory:   []models.MongoPaymentRecord{},
	}
}

func newTestBilling(users ...models.MongoUser) (*Billing, *mongo.MockMongoDBClient, *notify.Stub) {
	mongoClient := mongo.NewMockMongoDBClient(users...)
	stub := &notify.Stub{}
	return NewBilling(testConfig, mongoClient, redis.NewMockRedisClient(), stub), mongoClient, stub
}

func TestUpgrade_ResetsUsageAndAppendsPayment(t *testing.T) {
	billing, mongoClient, stub := newTestBilling(sparkUser("u1", 25))

	applied, err := billing.Upgrade(context.Background(), "u1", models.ArchitectPlan, "order-1", 299)
	require.NoError(t, err)
	assert.True(t, applied)

	user := mongoClient.User("u1")
	assert.Equal(t, models.ArchitectPlan, user.Plan)
	assert.Equal(t, 0, user.GenerationsUsed)
	assert.Equal(t, 500, user.GenerationsLimit)
	require.Len(t, user.PaymentHistory, 1)
	assert.Equal(t, "order-1", user.PaymentHistory[0].OrderID)
	assert.Equal(t, 299.0, user.PaymentHistory[0].Amount)
	assert.Equal(t, models.PaymentStatusSuccess, user.PaymentHistory[0].Status)
	assert.Len(t, stub.Sent(), 1)
}

func TestUpgrade_SameOrderAppliedOnce(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 25))

	_, err := billing.Upgrade(context.Background(), "u1", models.StudioPlan, "order-1", 999)
	require.NoError(t, err)
	_, err = mongoClient.ReserveGeneration(context.Background(), "u1")
	require.NoError(t, err)

	applied, err := billing.Upgrade(context.Background(), "u1", models.StudioPlan, "order-1", 999)
	require.NoError(t, err)
	assert.False(t, applied)

	user := mongoClient.User("u1")
	assert.Len(t, user.PaymentHistory, 1)
	assert.Equal(t, 1, user.GenerationsUsed)
}

func TestUpgrade_Rejections(t *testing.T) {
	billing, _, _ := newTestBilling(sparkUser("u1", 0))

	_, err := billing.Upgrade(context.Background(), "u1", models.SparkPlan, "order-1", 0)
	assert.ErrorIs(t, err, lib.ErrInvalidPlan)
	_, err = billing.Upgrade(context.Background(), "u1", "enterprise", "order-2", 0)
	assert.ErrorIs(t, err, lib.ErrInvalidPlan)
	_, err = billing.Upgrade(context.Background(), "missing", models.ArchitectPlan, "order-3", 299)
	assert.ErrorIs(t, err, lib.ErrUserNotFound)
}

func TestCheckThresholdsAndNotify(t *testing.T) {
	billing, _, stub := newTestBilling()

	tests := []struct {
		used     int
		messages int
	}{
		{used: 14, messages: 0},
		{used: 15, messages: 1},
		{used: 16, messages: 0},
		{used: 24, messages: 1},
		{used: 29, messages: 0},
		{used: 30, messages: 1},
	}
	total := 0
	for _, tt := range tests {
		user := sparkUser("u1", tt.used)
		billing.CheckThresholdsAndNotify(context.Background(), &user)
		total += tt.messages
		assert.Len(t, stub.Sent(), total, "used %d", tt.used)
	}
	assert.Contains(t, stub.Sent()[2], "30/30")
}

func TestRecordGeneration_UpdatesCounters(t *testing.T) {
	mongoClient := mongo.NewMockMongoDBClient()
	redisClient := redis.NewMockRedisClient()
	billing := NewBilling(testConfig, mongoClient, redisClient, &notify.Stub{})

	user := sparkUser("u1", 1)
	billing.RecordGeneration(context.Background(), &user, "generate", 150)

	totals, err := redis.GetTotals(context.Background(), redisClient)
	require.NoError(t, err)
	assert.Equal(t, redis.Totals{Generations: 1, Tokens: 150}, totals)
}

func checkoutEvent(t *testing.T, checkout stripe.CheckoutSession) stripe.Event {
	raw, err := json.Marshal(checkout)
	require.NoError(t, err)
	return stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestProcessEvent_CheckoutCompletedTwice(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 30))
	s := NewStripe(testConfig, billing, mongoClient)

	event := checkoutEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_1",
		AmountTotal:   29900,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{UserID: "u1", PlanID: "architect", AppID: config.AppName},
	})
	require.NoError(t, s.processEvent(context.Background(), event))
	require.NoError(t, s.processEvent(context.Background(), event))

	user := mongoClient.User("u1")
	assert.Equal(t, models.ArchitectPlan, user.Plan)
	assert.Equal(t, 0, user.GenerationsUsed)
	assert.Len(t, user.PaymentHistory, 1)
	assert.Equal(t, 299.0, user.PaymentHistory[0].Amount)
}

func TestProcessEvent_PlanFromAmount(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 3))
	s := NewStripe(testConfig, billing, mongoClient)

	event := checkoutEvent(t, stripe.CheckoutSession{
		ID:                "cs_test_2",
		AmountTotal:       99900,
		ClientReferenceID: "u1",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
	})
	require.NoError(t, s.processEvent(context.Background(), event))
	assert.Equal(t, models.StudioPlan, mongoClient.User("u1").Plan)
}

func TestProcessEvent_Ignored(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 3))
	s := NewStripe(testConfig, billing, mongoClient)

	unpaid := checkoutEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_3",
		AmountTotal:   29900,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		Metadata:      map[string]string{UserID: "u1", PlanID: "architect"},
	})
	otherApp := checkoutEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_4",
		AmountTotal:   29900,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{UserID: "u1", PlanID: "architect", AppID: "another-app"},
	})
	unknownUser := checkoutEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_5",
		AmountTotal:   29900,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{UserID: "ghost", PlanID: "architect"},
	})
	for _, event := range []stripe.Event{unpaid, otherApp, unknownUser, {Type: "payment_intent.succeeded"}} {
		require.NoError(t, s.processEvent(context.Background(), event))
	}
	assert.Equal(t, models.SparkPlan, mongoClient.User("u1").Plan)

	malformed := stripe.Event{Type: "checkout.session.completed", Data: &stripe.EventData{Raw: []byte("{")}}
	assert.ErrorIs(t, s.processEvent(context.Background(), malformed), errMalformedEvent)
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 3))
	s := NewStripe(testConfig, billing, mongoClient)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(http.MethodPost)
	ctx.Request.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	ctx.Request.SetBody([]byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`))
	s.StripeWebhook(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.SetBody([]byte("not json"))
	s.StripeWebhook(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestCreateOrder(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 3))
	s := NewStripe(testConfig, billing, mongoClient)

	var captured *stripe.CheckoutSessionParams
	s.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{ID: "cs_test_9", URL: "https://checkout.stripe.com/c/pay/cs_test_9"}, nil
	}

	order, err := s.CreateOrder(context.Background(), "u1", models.StudioPlan)
	require.NoError(t, err)
	assert.Equal(t, &Order{OrderID: "cs_test_9", PaymentURL: "https://checkout.stripe.com/c/pay/cs_test_9"}, order)

	require.NotNil(t, captured)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *captured.Mode)
	assert.Equal(t, "u1", *captured.ClientReferenceID)
	assert.Equal(t, "u1", captured.Metadata[UserID])
	assert.Equal(t, "studio", captured.Metadata[PlanID])
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, int64(99900), *captured.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "PromptIQ Studio", *captured.LineItems[0].PriceData.ProductData.Name)
}

func TestCreateOrder_Rejections(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 3))
	s := NewStripe(testConfig, billing, mongoClient)
	s.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("stripe is down")
	}

	_, err := s.CreateOrder(context.Background(), "u1", models.SparkPlan)
	assert.ErrorIs(t, err, lib.ErrInvalidPlan)
	_, err = s.CreateOrder(context.Background(), "", models.ArchitectPlan)
	assert.ErrorIs(t, err, lib.ErrMissingFields)
	_, err = s.CreateOrder(context.Background(), "ghost", models.ArchitectPlan)
	assert.ErrorIs(t, err, lib.ErrUserNotFound)
	_, err = s.CreateOrder(context.Background(), "u1", models.ArchitectPlan)
	assert.Error(t, err)
}

func TestVerifyOrder(t *testing.T) {
	billing, mongoClient, _ := newTestBilling(sparkUser("u1", 12))
	s := NewStripe(testConfig, billing, mongoClient)
	sessions := map[string]*stripe.CheckoutSession{
		"cs_paid": {
			ID:            "cs_paid",
			AmountTotal:   29900,
			PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			Metadata:      map[string]string{UserID: "u1", PlanID: "architect", AppID: config.AppName},
		},
		"cs_unpaid": {
			ID:            "cs_unpaid",
			PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			Metadata:      map[string]string{UserID: "u1", PlanID: "studio"},
		},
	}
	s.getSession = func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		checkout, ok := sessions[id]
		if !ok {
			return nil, errors.New("no such checkout session")
		}
		return checkout, nil
	}

	paid, err := s.VerifyOrder(context.Background(), "cs_unpaid")
	require.NoError(t, err)
	assert.False(t, paid)
	assert.Equal(t, models.SparkPlan, mongoClient.User("u1").Plan)

	paid, err = s.VerifyOrder(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, paid)
	// the webhook for the same session arrives afterwards and is a no-op
	require.NoError(t, s.processEvent(context.Background(), checkoutEvent(t, *sessions["cs_paid"])))
	user := mongoClient.User("u1")
	assert.Equal(t, models.ArchitectPlan, user.Plan)
	assert.Len(t, user.PaymentHistory, 1)

	_, err = s.VerifyOrder(context.Background(), "cs_missing")
	assert.Error(t, err)
	_, err = s.VerifyOrder(context.Background(), "")
	assert.ErrorIs(t, err, lib.ErrMissingFields)
}
