package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/valyala/fasthttp"
)

const (
	UserID   = "user_id"
	PlanID   = "plan"
	AppID    = "app_id"
	Currency = "inr"
)

// Order is a pending checkout the user is redirected to.
type Order struct {
	OrderID    string `json:"orderId"`
	PaymentURL string `json:"paymentUrl"`
}

type Stripe struct {
	cfg        *config.Config
	billing    *Billing
	mongo      mongo.MongoClient
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSession func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripe(cfg *config.Config, billing *Billing, mongoClient mongo.MongoClient) *Stripe {
	return &Stripe{
		cfg:        cfg,
		billing:    billing,
		mongo:      mongoClient,
		newSession: session.New,
		getSession: session.Get,
	}
}

// CreateOrder opens a one-off Checkout Session for a paid plan.
func (s *Stripe) CreateOrder(ctx context.Context, userID string, plan models.Plan) (*Order, error) {
	if userID == "" || plan == "" {
		return nil, lib.ErrMissingFields
	}
	info, ok := models.Plans[plan]
	if !ok || plan == models.SparkPlan {
		return nil, lib.ErrInvalidPlan
	}
	if _, err := s.mongo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	lineItem := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if priceID := s.cfg.StripePrices[string(plan)]; priceID != "" {
		lineItem.Price = stripe.String(priceID)
	} else {
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(Currency),
			UnitAmount: stripe.Int64(int64(info.Price) * 100),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String("PromptIQ " + planTitle(plan)),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		CancelURL:         stripe.String(s.cfg.BaseURL + "/upgrade?payment=cancelled"),
		ClientReferenceID: stripe.String(userID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.BaseURL + "/api/payment/verify?session_id={CHECKOUT_SESSION_ID}"),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{lineItem},
	}
	params.AddMetadata(UserID, userID)
	params.AddMetadata(PlanID, string(plan))
	params.AddMetadata(AppID, config.AppName)

	checkout, err := s.newSession(params)
	if err != nil {
		log.Errorf("CreateOrder: %v", err)
		s.cfg.DataDogClient.Incr("stripe.create_order_failed", []string{"plan:" + string(plan)}, 1)
		return nil, fmt.Errorf("CreateOrder: failed to create checkout session: %w", err)
	}
	s.cfg.DataDogClient.Incr("stripe.create_order", []string{"plan:" + string(plan)}, 1)
	log.Infof("CreateOrder: checkout session %s for user %s, plan %s", checkout.ID, userID, plan)
	return &Order{OrderID: checkout.ID, PaymentURL: checkout.URL}, nil
}

// VerifyOrder applies a checkout the user was redirected back from, so the plan does not wait
// for the webhook. Reports whether the session is paid.
func (s *Stripe) VerifyOrder(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, lib.ErrMissingFields
	}
	checkout, err := s.getSession(sessionID, nil)
	if err != nil {
		return false, fmt.Errorf("VerifyOrder: failed to get checkout session: %w", err)
	}
	if checkout.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return false, nil
	}
	if err := s.handleCheckoutSessionCompleted(ctx, *checkout); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Stripe) StripeWebhook(ctx *fasthttp.RequestCtx) {
	payload := ctx.Request.Body()
	event := stripe.Event{}

	if err := json.Unmarshal(payload, &event); err != nil {
		log.Errorf("Webhook error while parsing Stripe request. %v", err)
		ctx.Response.Header.SetStatusCode(http.StatusBadRequest)
		return
	}

	signatureHeader := string(ctx.Request.Header.Peek("Stripe-Signature"))
	event, err := webhook.ConstructEvent(payload, signatureHeader, s.cfg.StripeEndpointSecret)
	if err != nil {
		log.Errorf("Webhook signature verification failed. %v", err)
		ctx.Response.Header.SetStatusCode(http.StatusBadRequest) // Return a 400 error on a bad signature
		return
	}
	s.cfg.DataDogClient.Incr("stripe.webhook", []string{"event_type:" + string(event.Type)}, 1)

	if err := s.processEvent(ctx, event); err != nil {
		log.Errorf("Webhook failed to process %s: %v", event.Type, err)
		if errors.Is(err, errMalformedEvent) {
			ctx.Response.Header.SetStatusCode(http.StatusBadRequest)
			return
		}
		// Stripe redelivers on non-2xx
		ctx.Response.Header.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.SetStatusCode(http.StatusOK)
}

func planTitle(plan models.Plan) string {
	name := string(plan)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

var errMalformedEvent = errors.New("malformed stripe event")

func (s *Stripe) processEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.expired", "payment_intent.succeeded", "charge.succeeded":
		return nil
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var checkout stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		return s.handleCheckoutSessionCompleted(ctx, checkout)
	default:
		log.Infof("Unhandled Stripe event type: %s", event.Type)
		return nil
	}
}

func (s *Stripe) handleCheckoutSessionCompleted(ctx context.Context, checkout stripe.CheckoutSession) error {
	// ignore sessions for other apps, if any
	if checkout.Metadata[AppID] != config.AppName && checkout.Metadata[AppID] != "" {
		log.Infof("Ignoring checkout session %s for app %s", checkout.ID, checkout.Metadata[AppID])
		return nil
	}
	s.cfg.DataDogClient.Incr("stripe.checkout_session_completed", []string{"payment_status:" + string(checkout.PaymentStatus)}, 1)

	userID := checkout.Metadata[UserID]
	if userID == "" {
		userID = checkout.ClientReferenceID
	}
	if userID == "" {
		log.Errorf("Checkout session %s has no user id", checkout.ID)
		return nil
	}
	if checkout.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Warnf("Checkout session %s payment status is not paid: %s, user_id: %s", checkout.ID, checkout.PaymentStatus, userID)
		return nil
	}

	amount := float64(checkout.AmountTotal) / 100
	plan := models.Plan(checkout.Metadata[PlanID])
	if !models.IsValidPlan(plan) || plan == models.SparkPlan {
		plan = models.PlanForAmount(amount)
	}

	log.Infof("Processing checkout session %s, user_id: %s, plan: %s", checkout.ID, userID, plan)
	_, err := s.billing.Upgrade(ctx, userID, plan, checkout.ID, amount)
	if errors.Is(err, lib.ErrUserNotFound) {
		log.Errorf("Checkout session %s paid for unknown user %s", checkout.ID, userID)
		return nil
	}
	return err
}
