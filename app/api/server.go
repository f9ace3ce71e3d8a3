// Package api exposes the PromptIQ HTTP endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/generation"
	"promptiq/m/v2/app/payments"
	"promptiq/m/v2/app/prompts"
	"promptiq/m/v2/app/share"
	"promptiq/m/v2/app/users"
	"promptiq/m/v2/app/waitlist"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// StatusSource returns the last system status as JSON.
type StatusSource interface {
	Cached(ctx context.Context) (string, error)
}

type Services struct {
	Generation *generation.Service
	Prompts    *prompts.Service
	Users      *users.Service
	Share      *share.Service
	Waitlist   *waitlist.Service
	Stripe     *payments.Stripe
	Status     StatusSource
}

type Server struct {
	cfg      *config.Config
	services Services
	limiter  *RateLimiter
}

func New(cfg *config.Config, services Services, limiter *RateLimiter) *Server {
	return &Server{
		cfg:      cfg,
		services: services,
		limiter:  limiter,
	}
}

// Router registers every route on a new router.
func (s *Server) Router() *router.Router {
	rtr := router.New()
	s.Register(rtr)
	return rtr
}

func (s *Server) Register(rtr *router.Router) {
	rtr.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(http.StatusOK)
		_, _ = ctx.WriteString("❤️ from " + config.AppName)
	})
	rtr.GET("/status", s.Status)

	rtr.GET("/api/frameworks", s.Frameworks)
	rtr.GET("/api/plans", s.Plans)

	rtr.POST("/api/generate", s.Generate)

	rtr.GET("/api/prompts", s.ListPrompts)
	rtr.DELETE("/api/prompts", s.DeletePrompt)
	rtr.POST("/api/prompts/save", s.SavePrompt)

	rtr.POST("/api/users", s.EnsureUser)
	rtr.GET("/api/users/{uid}/usage", s.Usage)

	rtr.POST("/api/share/create", s.CreateShareLink)
	rtr.GET("/api/share/{code}", s.limiter.Limit(s.ResolveShareLink))
	rtr.GET("/share/{code}", s.limiter.Limit(s.ResolveShareLink))

	rtr.POST("/api/waitlist", s.limiter.Limit(s.JoinWaitlist))
	rtr.GET("/api/waitlist/count", s.WaitlistCount)

	rtr.POST("/api/payment/create-order", s.CreateOrder)
	rtr.GET("/api/payment/verify", s.VerifyOrder)
	rtr.POST(fmt.Sprintf("/stripe_%s", s.cfg.StripeEndpointSuffix), s.services.Stripe.StripeWebhook)
}
