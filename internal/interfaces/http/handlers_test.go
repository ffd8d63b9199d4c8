package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/backoffice-api/internal/application/auth"
	"github.com/jhoicas/backoffice-api/internal/application/dto"
	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/application/order"
	"github.com/jhoicas/backoffice-api/internal/application/usecase"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/memory"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/pdf"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/xlsx"
	apphttp "github.com/jhoicas/backoffice-api/internal/interfaces/http"
)

// apiServer app completa sobre el almacén en memoria.
type apiServer struct {
	app    *fiber.App
	authUC *auth.AuthUseCase
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repos()
	log := zerolog.Nop()

	recorder := inventory.NewMovementRecorder(repos.Movements, xlsx.NewMovementExporter(), log)
	engine := inventory.NewAllocationEngine(store, repos.Inventory, recorder, "MAIN", log)
	authUC := auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer})

	app := fiber.New()
	app.Use(apphttp.RequestLogger(log))
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      authUC,
		ProductUC:   usecase.NewProductUseCase(store, repos.Products, "MAIN"),
		Engine:      engine,
		Ledger:      inventory.NewLedgerUseCase(repos.Inventory, repos.Products, "MAIN"),
		Recorder:    recorder,
		Monitor:     inventory.NewReorderMonitor(repos.Inventory, repos.Products),
		Coordinator: order.NewFulfillmentCoordinator(store, engine, repos.Orders, repos.Products, pdf.NewMarotoPackingSlip("Bodega Central"), order.DefaultPricing(), log),
		JWTSecret:   testJWTSecret,
	})
	return &apiServer{app: app, authUC: authUC}
}

// call envía la petición con el rol dado ("" = sin Authorization) y devuelve status y cuerpo crudo.
func (s *apiServer) call(t *testing.T, method, path, role string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *apiServer) callJSON(t *testing.T, method, path, role string, body, out any) int {
	t.Helper()
	status, raw := s.call(t, method, path, role, body)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}

// createProduct alta de producto como admin y carga inicial con INCREASE.
func (s *apiServer) createProduct(t *testing.T, sku string, onHand int) dto.ProductResponse {
	t.Helper()
	var p dto.ProductResponse
	status := s.callJSON(t, http.MethodPost, "/api/products", "admin", map[string]any{
		"sku":              sku,
		"name":             "Producto " + sku,
		"price":            "20",
		"reorder_level":    2,
		"reorder_quantity": 10,
	}, &p)
	require.Equal(t, fiber.StatusCreated, status)
	if onHand > 0 {
		status = s.callJSON(t, http.MethodPost, "/api/inventory/adjust", "bodeguero", map[string]any{
			"product_id": p.ID,
			"type":       "INCREASE",
			"quantity":   onHand,
			"reason":     "carga inicial",
			"unit_cost":  "8",
		}, nil)
		require.Equal(t, fiber.StatusOK, status)
	}
	return p
}

func (s *apiServer) record(t *testing.T, productID string) dto.InventoryRecordResponse {
	t.Helper()
	var rec dto.InventoryRecordResponse
	status := s.callJSON(t, http.MethodGet, "/api/inventory/"+productID, "vendedor", nil, &rec)
	require.Equal(t, fiber.StatusOK, status)
	return rec
}

func shippingAddress() map[string]any {
	return map[string]any{"line1": "Calle 10 # 5-20", "city": "Bogotá", "country": "CO"}
}

func TestProducto_CreaRegistroEnCeroYAjuste(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-1", 0)

	rec := s.record(t, p.ID)
	assert.Equal(t, "MAIN", rec.WarehouseLocation)
	assert.Equal(t, 0, rec.QuantityOnHand)
	assert.Equal(t, "OUT_OF_STOCK", rec.StockStatus)

	var mut dto.MutationResponse
	status := s.callJSON(t, http.MethodPost, "/api/inventory/adjust", "admin", map[string]any{
		"product_id": p.ID, "type": "INCREASE", "quantity": 7, "reason": "compra",
	}, &mut)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, mut.Before.OnHand)
	assert.Equal(t, 7, mut.After.OnHand)
	assert.Equal(t, 7, mut.After.Available)
	require.NotNil(t, mut.Movement)
	assert.Equal(t, 0, mut.Movement.PreviousQuantity)
	assert.Equal(t, 7, mut.Movement.NewQuantity)
}

func TestProducto_SKUDuplicado_Retorna409(t *testing.T) {
	s := newAPIServer(t)
	s.createProduct(t, "SKU-DUP", 0)

	var errResp dto.ErrorResponse
	status := s.callJSON(t, http.MethodPost, "/api/products", "admin", map[string]any{
		"sku": "SKU-DUP", "name": "Otro", "price": "5",
	}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", errResp.Code)
}

func TestInventario_ProductoInexistente_Retorna404(t *testing.T) {
	s := newAPIServer(t)
	var errResp dto.ErrorResponse
	status := s.callJSON(t, http.MethodGet, "/api/inventory/no-existe", "admin", nil, &errResp)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errResp.Code)
}

func TestValidacion_Retorna400ConCampos(t *testing.T) {
	s := newAPIServer(t)
	var errResp struct {
		Code    string               `json:"code"`
		Details []apphttp.FieldError `json:"details"`
	}
	status := s.callJSON(t, http.MethodPost, "/api/inventory/adjust", "admin", map[string]any{
		"type": "MOVER", "quantity": -1,
	}, &errResp)
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errResp.Code)

	fields := map[string]string{}
	for _, fe := range errResp.Details {
		fields[fe.Field] = fe.Rule
	}
	assert.Equal(t, "required", fields["product_id"])
	assert.Equal(t, "oneof", fields["type"])
	assert.Equal(t, "gte", fields["quantity"])
	assert.Equal(t, "required", fields["reason"])
}

func TestAdjust_CantidadSobreElMaximo_Retorna400(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-MAX", 3)

	var errResp struct {
		Code    string               `json:"code"`
		Details []apphttp.FieldError `json:"details"`
	}
	status := s.callJSON(t, http.MethodPost, "/api/inventory/adjust", "admin", map[string]any{
		"product_id": p.ID, "type": "INCREASE", "quantity": 3_000_000_000, "reason": "x",
	}, &errResp)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Len(t, errResp.Details, 1)
	assert.Equal(t, "lte", errResp.Details[0].Rule)

	// Dentro del tope por campo pero el saldo resultante lo supera.
	status = s.callJSON(t, http.MethodPost, "/api/inventory/adjust", "admin", map[string]any{
		"product_id": p.ID, "type": "INCREASE", "quantity": 2147483647, "reason": "x",
	}, &errResp)
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errResp.Code)
	assert.Equal(t, 3, s.record(t, p.ID).QuantityOnHand)
}

func TestRelease_OtraReferencia_Retorna409(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-REF", 10)
	status, _ := s.call(t, http.MethodPost, "/api/inventory/allocate", "bodeguero", map[string]any{
		"product_id": p.ID, "quantity": 4, "reference_id": "RES-A",
	})
	require.Equal(t, fiber.StatusOK, status)

	var errResp dto.ErrorResponse
	status = s.callJSON(t, http.MethodPost, "/api/inventory/release", "bodeguero", map[string]any{
		"product_id": p.ID, "quantity": 4, "reference_id": "RES-B",
	}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errResp.Code)
	assert.Equal(t, 4, s.record(t, p.ID).QuantityAllocated)
}

func TestCuerpoInvalido_Retorna400(t *testing.T) {
	s := newAPIServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/allocate", bytes.NewBufferString("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVendedor_NoPuedeAjustar_Retorna403(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-2", 3)
	status, _ := s.call(t, http.MethodPost, "/api/inventory/adjust", "vendedor", map[string]any{
		"product_id": p.ID, "type": "INCREASE", "quantity": 1, "reason": "x",
	})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, 3, s.record(t, p.ID).QuantityOnHand)
}

func TestAllocate_Faltante_Retorna422SinCambios(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-3", 5)

	var errResp struct {
		Code    string                 `json:"code"`
		Details dto.AllocationResponse `json:"details"`
	}
	status := s.callJSON(t, http.MethodPost, "/api/inventory/allocate", "bodeguero", map[string]any{
		"product_id": p.ID, "quantity": 8, "reference_id": "RES-1",
	}, &errResp)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	assert.False(t, errResp.Details.Success)
	assert.Equal(t, 8, errResp.Details.Requested)
	assert.Equal(t, 3, errResp.Details.Shortfall)
	assert.Equal(t, 5, errResp.Details.After.Available)

	rec := s.record(t, p.ID)
	assert.Equal(t, 0, rec.QuantityAllocated)
}

func TestAllocateYRelease(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-4", 10)

	var alloc dto.AllocationResponse
	status := s.callJSON(t, http.MethodPost, "/api/inventory/allocate", "bodeguero", map[string]any{
		"product_id": p.ID, "quantity": 4, "reference_id": "RES-2",
	}, &alloc)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, alloc.Success)
	assert.Equal(t, 6, alloc.After.Available)

	// liberar más de lo asignado libera solo lo asignado
	var rel dto.MutationResponse
	status = s.callJSON(t, http.MethodPost, "/api/inventory/release", "bodeguero", map[string]any{
		"product_id": p.ID, "quantity": 9, "reference_id": "RES-2",
	}, &rel)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, rel.After.Allocated)
	assert.Equal(t, 10, rel.After.Available)
}

func TestAdjust_PorDebajoDeAsignado_Retorna409ConSaldo(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-5", 10)
	status, _ := s.call(t, http.MethodPost, "/api/inventory/allocate", "admin", map[string]any{
		"product_id": p.ID, "quantity": 6, "reference_id": "RES-3",
	})
	require.Equal(t, fiber.StatusOK, status)

	var errResp struct {
		Code    string                      `json:"code"`
		Details dto.InventoryRecordResponse `json:"details"`
	}
	status = s.callJSON(t, http.MethodPost, "/api/inventory/adjust", "admin", map[string]any{
		"product_id": p.ID, "type": "SET", "quantity": 4, "reason": "conteo físico",
	}, &errResp)
	require.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALLOCATED_EXCEEDS_ON_HAND", errResp.Code)
	assert.Equal(t, 10, errResp.Details.QuantityOnHand)
	assert.Equal(t, 6, errResp.Details.QuantityAllocated)
}

func TestCheckAvailability(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-6", 3)

	var out dto.AvailabilityResponse
	status := s.callJSON(t, http.MethodPost, "/api/inventory/check-availability", "vendedor", map[string]any{
		"items": []map[string]any{
			{"product_id": p.ID, "quantity": 2},
			{"product_id": "fantasma", "quantity": 1},
		},
	}, &out)
	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, out.AllAvailable)
	require.Len(t, out.Items, 2)
	assert.True(t, out.Items[0].Sufficient)
	assert.False(t, out.Items[1].Found)
}

func TestPedido_CreaYReserva(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-7", 10)

	var o dto.OrderResponse
	status := s.callJSON(t, http.MethodPost, "/api/orders", "vendedor", map[string]any{
		"customer_id":      "CLI-1",
		"customer_name":    "Ana",
		"items":            []map[string]any{{"product_id": p.ID, "quantity": 3}},
		"shipping_address": shippingAddress(),
	}, &o)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "PENDING", o.Status)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z0-9]{6}$`, o.OrderNumber)
	assert.Equal(t, "60", o.Subtotal.String())
	assert.Equal(t, "6", o.TaxAmount.String())
	assert.Equal(t, "10", o.ShippingAmount.String())
	assert.Equal(t, "76", o.Total.String())
	require.Len(t, o.Items, 1)

	rec := s.record(t, p.ID)
	assert.Equal(t, 3, rec.QuantityAllocated)
	assert.Equal(t, 7, rec.QuantityAvailable)
}

func TestPedido_SinStock_Retorna422YNoReserva(t *testing.T) {
	s := newAPIServer(t)
	a := s.createProduct(t, "SKU-8", 10)
	b := s.createProduct(t, "SKU-9", 1)

	var errResp dto.ErrorResponse
	status := s.callJSON(t, http.MethodPost, "/api/orders", "admin", map[string]any{
		"customer_id": "CLI-2",
		"items": []map[string]any{
			{"product_id": a.ID, "quantity": 2},
			{"product_id": b.ID, "quantity": 4},
		},
		"shipping_address": shippingAddress(),
	}, &errResp)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	details, ok := errResp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, b.ID, details["product_id"])
	assert.EqualValues(t, 3, details["shortfall"])

	// la reserva del primer producto se revierte con la transacción
	assert.Equal(t, 0, s.record(t, a.ID).QuantityAllocated)

	var list dto.OrderListResponse
	require.Equal(t, fiber.StatusOK, s.callJSON(t, http.MethodGet, "/api/orders", "admin", nil, &list))
	assert.Empty(t, list.Items)
}

func TestPedido_DespachoConsumeYCancelacionLibera(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-10", 10)

	create := func() dto.OrderResponse {
		var o dto.OrderResponse
		status := s.callJSON(t, http.MethodPost, "/api/orders", "vendedor", map[string]any{
			"customer_id":      "CLI-3",
			"items":            []map[string]any{{"product_id": p.ID, "quantity": 2}},
			"shipping_address": shippingAddress(),
		}, &o)
		require.Equal(t, fiber.StatusCreated, status)
		return o
	}

	shipped := create()
	var o dto.OrderResponse
	status := s.callJSON(t, http.MethodPatch, "/api/orders/"+shipped.ID+"/status", "bodeguero", map[string]any{"status": "SHIPPED"}, &o)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "SHIPPED", o.Status)
	assert.NotNil(t, o.ShippedAt)

	cancelled := create()
	status = s.callJSON(t, http.MethodPost, "/api/orders/"+cancelled.ID+"/cancel", "vendedor", map[string]any{"reason": "cliente desiste"}, &o)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "CANCELLED", o.Status)

	rec := s.record(t, p.ID)
	assert.Equal(t, 8, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.QuantityAllocated)

	// un pedido cancelado no vuelve atrás
	var errResp dto.ErrorResponse
	status = s.callJSON(t, http.MethodPatch, "/api/orders/"+cancelled.ID+"/status", "admin", map[string]any{"status": "CONFIRMED"}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", errResp.Code)

	var history []dto.OrderStatusChangeResponse
	require.Equal(t, fiber.StatusOK, s.callJSON(t, http.MethodGet, "/api/orders/"+shipped.ID+"/history", "admin", nil, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "PENDING", history[0].ToStatus)
	assert.Equal(t, "SHIPPED", history[1].ToStatus)
}

func TestPedido_GuiaDeDespachoPDF(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-11", 5)
	var o dto.OrderResponse
	require.Equal(t, fiber.StatusCreated, s.callJSON(t, http.MethodPost, "/api/orders", "admin", map[string]any{
		"customer_id":      "CLI-4",
		"items":            []map[string]any{{"product_id": p.ID, "quantity": 1}},
		"shipping_address": shippingAddress(),
	}, &o))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+o.ID+"/packing-slip", nil)
	req.Header.Set("Authorization", tokenForRole(t, "bodeguero"))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestMovimientos_ListaYExporta(t *testing.T) {
	s := newAPIServer(t)
	p := s.createProduct(t, "SKU-12", 4)
	status, _ := s.call(t, http.MethodPost, "/api/inventory/adjust", "admin", map[string]any{
		"product_id": p.ID, "type": "DECREASE", "quantity": 1, "reason": "merma",
	})
	require.Equal(t, fiber.StatusOK, status)

	var list dto.MovementListResponse
	require.Equal(t, fiber.StatusOK, s.callJSON(t, http.MethodGet, "/api/inventory/movements?product_id="+p.ID, "vendedor", nil, &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "DECREASE", list.Items[0].Type)
	assert.Equal(t, 2, list.Page.Total)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/movements/export?product_id="+p.ID, nil)
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "movimientos-")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// xlsx es un zip
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))
}

func TestAlertas_ProductoBajoNivel(t *testing.T) {
	s := newAPIServer(t)
	s.createProduct(t, "SKU-13", 1)
	s.createProduct(t, "SKU-14", 50)

	var alerts []dto.ReorderAlertDTO
	require.Equal(t, fiber.StatusOK, s.callJSON(t, http.MethodGet, "/api/inventory/alerts", "admin", nil, &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "SKU-13", alerts[0].SKU)
}

func TestLogin(t *testing.T) {
	s := newAPIServer(t)
	_, err := s.authUC.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "bodega@empresa.co", Password: "secreto123", Name: "Bodega", Role: "bodeguero",
	})
	require.NoError(t, err)

	var ok dto.LoginResponse
	status := s.callJSON(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "BODEGA@empresa.co", "password": "secreto123",
	}, &ok)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, ok.Token)
	assert.Equal(t, "bodeguero", ok.User.Role)

	var errResp dto.ErrorResponse
	status = s.callJSON(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "bodega@empresa.co", "password": "otra-clave",
	}, &errResp)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errResp.Code)
}

func TestRegistro_SoloAdmin(t *testing.T) {
	s := newAPIServer(t)
	body := map[string]any{"email": "nuevo@empresa.co", "password": "secreto123", "role": "vendedor"}

	status, _ := s.call(t, http.MethodPost, "/api/auth/register", "vendedor", body)
	assert.Equal(t, fiber.StatusForbidden, status)

	var user dto.UserResponse
	status = s.callJSON(t, http.MethodPost, "/api/auth/register", "admin", body, &user)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "vendedor", user.Role)

	status, _ = s.call(t, http.MethodPost, "/api/auth/register", "admin", body)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestSinToken_Retorna401(t *testing.T) {
	s := newAPIServer(t)
	status, _ := s.call(t, http.MethodGet, "/api/inventory", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
