package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-store/internal/models"
)

type adminFixture struct {
	repo   *memRepo
	orders *OrderService
	admin  *AdminService
}

func newAdminFixture() *adminFixture {
	repo := newMemRepo()
	docs := newMemDocs()
	catalog := NewCatalogService(docs)
	settings := NewSettingsService(docs, models.Settings{OwnerWhatsApp: "+919876543210"})
	return &adminFixture{
		repo:   repo,
		orders: NewOrderService(repo, catalog, &recordingNotifier{}),
		admin:  NewAdminService("admin", "hunter2", repo, repo, catalog, settings),
	}
}

func TestAdminAuthenticate(t *testing.T) {
	f := newAdminFixture()

	sid, err := f.admin.Authenticate("admin", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)

	other, err := f.admin.Authenticate("admin", "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, sid, other)

	_, err = f.admin.Authenticate("admin", "hunter3")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = f.admin.Authenticate("root", "hunter2")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestDashboardTotals(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	var want int64
	for i, product := range []string{"Paneer (200g)", "Ghee (200g)", "Curd (200g)", "Milk Kova (200g)", "Paneer (200g)", "Curd (200g)", "Ghee (200g)"} {
		o, err := f.orders.CreateOrder(ctx, &CreateOrderRequest{
			CustomerName: "A", Phone: "1", Address: "x", Product: product, Quantity: strconv.Itoa(1 + i%3),
		})
		require.NoError(t, err)
		want += o.TotalPrice
	}
	d, err := f.admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, d.Totals.TotalOrders)
	assert.Equal(t, want, d.Totals.TotalRevenue)
	assert.Len(t, d.RecentOrders, 6)
	assert.True(t, d.RecentOrders[0].CreatedAt.After(d.RecentOrders[5].CreatedAt))
	assert.Len(t, d.Catalog, len(DefaultCatalog))
	assert.Equal(t, "+919876543210", d.Settings.OwnerWhatsApp)
}

func TestExportOrdersCSV(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	uid := int64(9)
	_, err := f.orders.CreateOrder(ctx, &CreateOrderRequest{
		UserID: &uid, CustomerName: "Asha", Phone: "98", Address: "12, Lake Road",
		Product: "Paneer (200g)", Quantity: "2", Notes: "ring twice\r\nleave at gate\nthanks",
	})
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, &CreateOrderRequest{CustomerName: "Ravi", Phone: "99", Address: "x"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.admin.ExportOrdersCSV(ctx, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])

	ravi, asha := rows[1], rows[2]
	assert.Equal(t, "Ravi", ravi[1])
	assert.Equal(t, "", ravi[11])

	assert.Equal(t, "12, Lake Road", asha[3])
	assert.Equal(t, "240", asha[6])
	assert.Equal(t, "9", asha[11])
	assert.Equal(t, "ring twice leave at gate thanks", asha[12])
	assert.Equal(t, "2024-03-01 09:01", asha[13])
}

func TestExportOrdersCSVOneLinePerOrder(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	require.NoError(t, f.repo.CreateOrder(ctx, &models.Order{
		CustomerName: "Asha\nRao",
		Phone:        "98",
		Address:      "12 Lake Road\r\nFlat 3\rNear temple",
		Product:      "Paneer\n(200g)",
		Quantity:     1,
		Notes:        "gate\ncode 4",
	}))

	var buf bytes.Buffer
	require.NoError(t, f.admin.ExportOrdersCSV(ctx, &buf))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"), buf.String())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Asha Rao", rows[1][1])
	assert.Equal(t, "12 Lake Road Flat 3 Near temple", rows[1][3])
	assert.Equal(t, "Paneer (200g)", rows[1][4])
	assert.Equal(t, "gate code 4", rows[1][12])
}

func TestUserDetail(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	user := &models.User{Email: "asha@example.com"}
	require.NoError(t, f.repo.CreateUser(ctx, user))
	uid := user.ID
	_, err := f.orders.CreateOrder(ctx, &CreateOrderRequest{UserID: &uid, CustomerName: "A", Phone: "1", Address: "x"})
	require.NoError(t, err)

	detail, err := f.admin.UserDetail(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", detail.User.Email)
	assert.Len(t, detail.Orders, 1)

	users, err := f.admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = f.admin.UserDetail(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestChatLinks(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerName: "Asha", Phone: "+919800000000", Address: "x", Product: "Paneer (200g)",
	})
	require.NoError(t, err)

	customer, err := f.admin.CustomerChatLink(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(customer, "https://wa.me/919800000000?text="))

	owner, err := f.admin.OwnerChatLink(ctx, order.ID)
	require.NoError(t, err)
	u, err := url.Parse(owner)
	require.NoError(t, err)
	assert.Equal(t, "/919876543210", u.Path)
	assert.Contains(t, u.Query().Get("text"), "Customer: Asha")

	_, err = f.admin.CustomerChatLink(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}
