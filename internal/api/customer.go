package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/service"
	"farm-store/internal/util"
)

const (
	msgTrackFailed  = "Order not found or verification failed. Provide the phone or email used when ordering, or log in."
	msgInvalidLink  = "Invalid or expired tracking link."
	msgResetPending = "If that email is registered, a reset link is on its way. Check spam/junk if you do not see it."
)

type credentialsRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type paymentRequest struct {
	Action string `form:"action" json:"action"`
}

type trackRequest struct {
	OrderID string `form:"order_id" json:"order_id"`
	Phone   string `form:"phone" json:"phone"`
	Email   string `form:"email" json:"email"`
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "load products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "register")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "message": "Registered. Please log in."})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "log in")
		return
	}

	sess := session(c)
	sess.Values[keyUserID] = user.ID
	sess.Values[keyUserEmail] = user.Email
	sess.Values[keyUserName] = user.Name
	if !h.saveSession(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) logout(c *gin.Context) {
	sess := session(c)
	delete(sess.Values, keyUserID)
	delete(sess.Values, keyUserEmail)
	delete(sess.Values, keyUserName)
	if !h.saveSession(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

func (h *Handler) requestReset(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err, "request password reset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgResetPending})
}

func (h *Handler) checkReset(c *gin.Context) {
	if err := h.accounts.CheckResetToken(c.Request.Context(), c.Param("token")); err != nil {
		h.respondError(c, err, "check reset link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.respondError(c, err, "reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated. Log in."})
}

// orderForm returns what the order page needs: products, payment
// instructions and the logged-in customer for prefill.
func (h *Handler) orderForm(c *gin.Context) {
	ctx := c.Request.Context()
	products, err := h.catalog.List(ctx)
	if err != nil {
		h.respondError(c, err, "load products")
		return
	}
	settings, err := h.settings.GetSettings(ctx)
	if err != nil {
		h.respondError(c, err, "load settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":     products,
		"payment_info": settings.PaymentInstructions,
		"user": gin.H{
			"name":  currentUserName(c),
			"email": currentUserEmail(c),
		},
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	userID := currentUserID(c)
	req.UserID = &userID
	req.CustomerEmail = currentUserEmail(c)

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "create order")
		return
	}

	next := fmt.Sprintf("/order/success/%d", order.ID)
	message := "Order placed. Check your profile or email for tracking details."
	if order.PaymentMethod == models.PaymentMethodOnline {
		next = fmt.Sprintf("/mock-pay/%d", order.ID)
		message = "Order created. Complete the payment to confirm it."
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":   order,
		"next":    next,
		"message": message,
	})
}

func (h *Handler) paymentPage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.payments.PaymentOrder(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err, "load order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) submitPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.payments.SimulatePayment(c.Request.Context(), currentUserID(c), id, req.Action)
	if err != nil {
		h.respondError(c, err, "record payment")
		return
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		c.JSON(http.StatusOK, gin.H{
			"order":   order,
			"next":    fmt.Sprintf("/order/success/%d", order.ID),
			"message": "Payment successful. Order confirmed.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"next":    "/order",
		"message": "Payment failed. You can try again or choose Cash on Delivery.",
	})
}

// orderSuccess shows an order to the holder of a valid tracking link, or to
// its logged-in owner when no token is given.
func (h *Handler) orderSuccess(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.redirectToTrack(c, msgInvalidLink)
			return
		}
		h.respondError(c, err, "load order")
		return
	}

	if tok := c.Query("token"); tok != "" {
		claims, err := h.tracking.Verify(tok, h.trackingMaxAge)
		if err != nil || claims.ID != order.ID ||
			models.NormalizeEmail(claims.Email) != models.NormalizeEmail(order.CustomerEmail) {
			util.TrackingLookupsTotal.WithLabelValues("bad_link").Inc()
			h.logger.Info("Tracking link rejected", zap.Int64("order_id", id), zap.Error(err))
			h.redirectToTrack(c, msgInvalidLink)
			return
		}
	} else if !order.OwnedBy(currentUserID(c)) {
		h.redirectToTrack(c, msgTrackFailed)
		return
	}

	settings, err := h.settings.GetSettings(ctx)
	if err != nil {
		h.respondError(c, err, "load settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":        order,
		"payment_info": settings.PaymentInstructions,
	})
}

func (h *Handler) redirectToTrack(c *gin.Context, message string) {
	c.Redirect(http.StatusSeeOther, "/track?message="+url.QueryEscape(message))
}

func (h *Handler) trackForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": c.Query("message"),
		"fields":  []string{"order_id", "phone", "email"},
	})
}

// track looks an order up for someone who proves a link to it. Missing and
// refused orders get the same response.
func (h *Handler) track(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	raw := strings.TrimSpace(req.OrderID)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Enter the Order ID."})
		return
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order ID must be a number."})
		return
	}

	order, err := h.orders.FindForTracking(c.Request.Context(), service.TrackingQuery{
		OrderID: orderID,
		Phone:   req.Phone,
		Email:   req.Email,
		UserID:  currentUserID(c),
	})
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrAccessDenied) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgTrackFailed})
		return
	}
	if err != nil {
		h.respondError(c, err, "track order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) profile(c *gin.Context) {
	p, err := h.accounts.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err, "load profile")
		return
	}
	c.JSON(http.StatusOK, p)
}
