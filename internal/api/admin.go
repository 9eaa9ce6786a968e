package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-store/internal/models"
	"farm-store/internal/service"
)

type adminLoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type statusRequest struct {
	Status string `form:"status" json:"status"`
}

type settingsRequest struct {
	OwnerWhatsApp *string `form:"owner_whatsapp" json:"owner_whatsapp"`
	OwnerEmail    *string `form:"owner_email" json:"owner_email"`
	BankAccount   *string `form:"bank_account" json:"bank_account"`
	UPI           *string `form:"upi" json:"upi"`
	Note          *string `form:"note" json:"note"`
}

// audit logs an admin mutation against the admin session that made it.
func (h *Handler) audit(c *gin.Context, action string, fields ...zap.Field) {
	h.logger.Info("Admin action",
		append([]zap.Field{
			zap.String("action", action),
			zap.String("admin_session", adminSessionID(c)),
			zap.String("client_ip", c.ClientIP()),
		}, fields...)...)
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sid, err := h.console.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials."})
		return
	}

	sess := session(c)
	sess.Values[keyAdmin] = true
	sess.Values[keyAdminSID] = sid
	if !h.saveSession(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged in as admin.", "next": "/admin/orders"})
}

func (h *Handler) adminLogout(c *gin.Context) {
	if isAdmin(c) {
		h.audit(c, "logout")
	}
	sess := session(c)
	delete(sess.Values, keyAdmin)
	delete(sess.Values, keyAdminSID)
	if !h.saveSession(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

func (h *Handler) adminDashboard(c *gin.Context) {
	d, err := h.console.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "load dashboard")
		return
	}
	c.JSON(http.StatusOK, d)
}

// adminListOrders accepts optional status, user_id and limit filters.
func (h *Handler) adminListOrders(c *gin.Context) {
	var filter models.OrderFilter
	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
			return
		}
		filter.Status = status
	}
	if raw := c.Query("user_id"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		filter.UserID = &uid
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "statuses": models.OrderStatuses})
}

func (h *Handler) adminGetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "load order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) adminUpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err, "update order status")
		return
	}
	h.audit(c, "update_status", zap.Int64("order_id", id), zap.String("status", string(order.Status)))
	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"message": "Order #" + strconv.FormatInt(order.ID, 10) + " status updated to " + string(order.Status) + ".",
	})
}

func (h *Handler) adminDeleteOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "delete order")
		return
	}
	h.audit(c, "delete_order", zap.Int64("order_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Order #" + strconv.FormatInt(id, 10) + " deleted."})
}

func (h *Handler) adminWhatsAppCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	link, err := h.console.CustomerChatLink(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "build WhatsApp link")
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (h *Handler) adminWhatsAppOwner(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	link, err := h.console.OwnerChatLink(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "build WhatsApp link")
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (h *Handler) adminExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.console.ExportOrdersCSV(c.Request.Context(), &buf); err != nil {
		h.respondError(c, err, "export orders")
		return
	}
	h.audit(c, "export_csv")
	c.Header("Content-Disposition", "attachment; filename=orders.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) adminListUsers(c *gin.Context) {
	users, err := h.console.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) adminUserDetail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.console.UserDetail(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "load user")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) adminListProducts(c *gin.Context) {
	h.listProducts(c)
}

func (h *Handler) adminAddProduct(c *gin.Context) {
	var in service.CatalogItemInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	item, err := h.catalog.Add(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "add product")
		return
	}
	h.audit(c, "add_product", zap.Int64("product_id", item.ID), zap.String("name", item.Name))
	c.JSON(http.StatusCreated, gin.H{"product": item, "message": "Product added."})
}

func (h *Handler) adminEditProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in service.CatalogItemInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	item, err := h.catalog.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err, "update product")
		return
	}
	h.audit(c, "edit_product", zap.Int64("product_id", id), zap.Int64("price", item.Price))
	c.JSON(http.StatusOK, gin.H{"product": item, "message": "Product updated."})
}

func (h *Handler) adminDeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "delete product")
		return
	}
	h.audit(c, "delete_product", zap.Int64("product_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Product removed."})
}

func (h *Handler) adminGetSettings(c *gin.Context) {
	settings, err := h.settings.GetSettings(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "load settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *Handler) adminUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	settings, err := h.settings.UpdateSettings(c.Request.Context(), service.SettingsUpdate{
		OwnerWhatsApp: req.OwnerWhatsApp,
		OwnerEmail:    req.OwnerEmail,
		BankAccount:   req.BankAccount,
		UPI:           req.UPI,
		Note:          req.Note,
	})
	if err != nil {
		h.respondError(c, err, "update settings")
		return
	}
	h.audit(c, "update_settings")
	c.JSON(http.StatusOK, gin.H{"settings": settings, "message": "Settings updated."})
}
