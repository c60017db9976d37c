package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/virtmarket/internal/model"
)

type orderResponse struct {
	Success bool `json:"success"`
	*model.Order
}

type deleteResponse struct {
	Success bool         `json:"success"`
	Deleted bool         `json:"deleted"`
	Order   *model.Order `json:"order"`
}

type sellerStats struct {
	ServerName   string `json:"server_name"`
	ServerID     int    `json:"server_id"`
	TotalSellers int64  `json:"total_sellers"`
	TotalAmount  int64  `json:"total_amount"`
}

type buyerStats struct {
	ServerName  string `json:"server_name"`
	ServerID    int    `json:"server_id"`
	TotalBuyers int64  `json:"total_buyers"`
	TotalAmount int64  `json:"total_amount"`
}

// ListOrders возвращает заявки с фильтрами из query-параметров.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := model.OrderFilter{
		OrderType: model.OrderType(q.Get("order_type")),
		Status:    model.OrderStatus(q.Get("status")),
		Project:   q.Get("project"),
		Source:    q.Get("source"),
	}

	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, CodeNoUser, "user_id must be an integer", nil)
			return
		}
		f.UserID = userID
	}

	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		h.handleError(w, err, CodeInternal)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	h.writeJSON(w, http.StatusOK, orders)
}

// CreateOrder создаёт новую заявку.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var in model.NewOrder
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.badRequest(w, CodeCreateFailed, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		h.handleError(w, err, CodeCreateFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

// UpdateOrder применяет частичное обновление заявки.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var patch model.OrderPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(w, CodeUpdateFailed, err)
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.handleError(w, err, CodeUpdateFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

// ApproveOrder одобряет заявку на продажу.
func (h *Handler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, CodeUpdateFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

// RejectOrder отклоняет заявку на продажу.
func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, CodeUpdateFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

// DeleteOrder удаляет заявку.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, CodeDeleteFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, deleteResponse{Success: true, Deleted: true, Order: order})
}

// SellerStats возвращает агрегаты одобренных продаж по серверам.
func (h *Handler) SellerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ServerStats(r.Context(), r.URL.Query().Get("project"), model.StatsRoleSeller)
	if err != nil {
		h.handleError(w, err, CodeInternal)
		return
	}

	resp := make([]sellerStats, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, sellerStats{
			ServerName:   s.ServerName,
			ServerID:     s.ServerID,
			TotalSellers: s.Users,
			TotalAmount:  s.TotalAmount,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// BuyerStats возвращает агрегаты покупок по серверам.
func (h *Handler) BuyerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ServerStats(r.Context(), r.URL.Query().Get("project"), model.StatsRoleBuyer)
	if err != nil {
		h.handleError(w, err, CodeInternal)
		return
	}

	resp := make([]buyerStats, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, buyerStats{
			ServerName:  s.ServerName,
			ServerID:    s.ServerID,
			TotalBuyers: s.Users,
			TotalAmount: s.TotalAmount,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}
