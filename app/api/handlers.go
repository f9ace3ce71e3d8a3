package api

import (
	"errors"
	"net/http"
	"strconv"

	"promptiq/m/v2/app/generation"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"
	"promptiq/m/v2/app/prompts"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func (s *Server) Status(ctx *fasthttp.RequestCtx) {
	systemStatus, err := s.services.Status.Cached(ctx)
	if err != nil {
		writeError(ctx, err, "Failed to get status")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBodyString(systemStatus)
}

func (s *Server) Frameworks(ctx *fasthttp.RequestCtx) {
	frameworks := make([]lib.FrameworkInfo, 0, len(lib.FrameworkOrder))
	for _, id := range lib.FrameworkOrder {
		frameworks = append(frameworks, lib.Frameworks[id])
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "frameworks": frameworks})
}

func (s *Server) Plans(ctx *fasthttp.RequestCtx) {
	plans := make([]models.PlanInfo, 0, len(models.PlanOrder))
	for _, plan := range models.PlanOrder {
		plans = append(plans, models.Plans[plan])
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "plans": plans})
}

type generateResponse struct {
	Success bool `json:"success"`
	*generation.Result
}

func (s *Server) Generate(ctx *fasthttp.RequestCtx) {
	var req generation.Request
	if err := decodeBody(ctx, &req); err != nil {
		writeError(ctx, err, "Failed to generate prompt")
		return
	}
	result, err := s.services.Generation.Generate(ctx, req)
	if err != nil {
		writeError(ctx, err, "Failed to generate prompt")
		return
	}
	writeJSON(ctx, http.StatusOK, generateResponse{Success: true, Result: result})
}

func (s *Server) ListPrompts(ctx *fasthttp.RequestCtx) {
	userID := string(ctx.QueryArgs().Peek("userId"))
	if userID == "" {
		writeErrorMessage(ctx, http.StatusBadRequest, "User ID is required")
		return
	}
	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	list, err := s.services.Prompts.ListPrompts(ctx, userID, limit)
	if err != nil {
		writeError(ctx, err, "Failed to fetch prompts")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "prompts": list})
}

type promptRef struct {
	PromptID string `json:"promptId"`
	UserID   string `json:"userId"`
}

func (s *Server) DeletePrompt(ctx *fasthttp.RequestCtx) {
	var req promptRef
	if err := decodeBody(ctx, &req); err != nil {
		writeError(ctx, err, "Failed to delete prompt")
		return
	}
	if err := s.services.Prompts.DeletePrompt(ctx, req.PromptID, req.UserID); err != nil {
		writeError(ctx, err, "Failed to delete prompt")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) SavePrompt(ctx *fasthttp.RequestCtx) {
	var req prompts.SaveRequest
	if err := decodeBody(ctx, &req); err != nil {
		writeError(ctx, err, "Failed to save prompt")
		return
	}
	id, err := s.services.Prompts.SavePrompt(ctx, req)
	if err != nil {
		writeError(ctx, err, "Failed to save prompt")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "promptId": id})
}

func (s *Server) EnsureUser(ctx *fasthttp.RequestCtx) {
	var req struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeBody(ctx, &req); err != nil {
		writeError(ctx, err, "Failed to create user")
		return
	}
	user, err := s.services.Users.EnsureUser(ctx, req.UID, req.Email, req.Name)
	if err != nil {
		writeError(ctx, err, "Failed to create user")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

func (s *Server) Usage(ctx *fasthttp.RequestCtx) {
	uid, _ := ctx.UserValue("uid").(string)
	usage, err := s.services.Users.GetUsage(ctx, uid)
	if err != nil {
		writeError(ctx, err, "Failed to get usage")
		return
	}
	writeJSON(ctx, http.StatusOK, usage)
}

func (s *Server) CreateShareLink(ctx *fasthttp.RequestCtx) {
	var req promptRef
	if err := decodeBody(ctx, &req); err != nil {
		writeError(ctx, err, "Failed to create share link")
		return
	}
	link, err := s.services.Share.CreateLink(ctx, req.PromptID, req.UserID)
	if err != nil {
		writeError(ctx, err, "Failed to create share link")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "shareUrl": link.ShareURL, "code": link.Code})
}

func (s *Server) ResolveShareLink(ctx *fasthttp.RequestCtx) {
	code, _ := ctx.UserValue("code").(string)
	if code == "" {
		writeErrorMessage(ctx, http.StatusBadRequest, "Code required")
		return
	}
	resolved, err := s.services.Share.ResolveLink(ctx, code)
	if err != nil {
		writeError(ctx, err, "Failed to fetch link")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "prompt": resolved.Prompt, "views": resolved.Views})
}

func (s *Server) JoinWaitlist(ctx *fasthttp.RequestCtx) {
	var req struct {
		Email  string `json:"email"`
		Source string `json:"source"`
	}
	if err := decodeBody(ctx, &req); err != nil {
		writeErrorMessage(ctx, http.StatusBadRequest, "Email is required")
		return
	}
	result, err := s.services.Waitlist.Join(ctx, req.Email, req.Source)
	switch {
	case errors.Is(err, lib.ErrMissingFields):
		writeErrorMessage(ctx, http.StatusBadRequest, "Email is required")
	case err != nil:
		writeError(ctx, err, "Failed to add to waitlist")
	default:
		writeJSON(ctx, http.StatusOK, result)
	}
}

func (s *Server) WaitlistCount(ctx *fasthttp.RequestCtx) {
	count, err := s.services.Waitlist.Count(ctx)
	if err != nil {
		writeError(ctx, err, "Failed to get count")
		return
	}
	writeJSON(ctx, http.StatusOK, count)
}

func (s *Server) CreateOrder(ctx *fasthttp.RequestCtx) {
	var req struct {
		Plan   models.Plan `json:"plan"`
		UserID string      `json:"userId"`
	}
	if err := decodeBody(ctx, &req); err != nil {
		writeError(ctx, err, "Failed to create payment order")
		return
	}
	if req.Plan == models.SparkPlan {
		writeErrorMessage(ctx, http.StatusBadRequest, "Cannot create order for free plan")
		return
	}
	order, err := s.services.Stripe.CreateOrder(ctx, req.UserID, req.Plan)
	if err != nil {
		writeError(ctx, err, "Failed to create payment order")
		return
	}
	writeJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "paymentUrl": order.PaymentURL, "orderId": order.OrderID})
}

// VerifyOrder is the checkout success URL; it always lands the user on the dashboard.
func (s *Server) VerifyOrder(ctx *fasthttp.RequestCtx) {
	outcome := "failed"
	paid, err := s.services.Stripe.VerifyOrder(ctx, string(ctx.QueryArgs().Peek("session_id")))
	if err != nil {
		log.Errorf("VerifyOrder: %v", err)
	} else if paid {
		outcome = "success"
	}
	ctx.Redirect(s.cfg.BaseURL+"/dashboard?payment="+outcome, http.StatusFound)
}
