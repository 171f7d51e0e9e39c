// Command server wires the clearing-house dispatcher up behind a small
// HTTP+WebSocket demo surface: the range-payout product registered at
// startup, createOrderbook/whitelistMaker/placeOrder/fillOrder/
// creditAccount/debitAccount as plain JSON endpoints, an oracle intake
// endpoint driving
// HandlePriceAndTimeUpdate, a /metrics scrape endpoint, and a /ws feed
// of the event bus. None of this belongs to the core clearing-house
// (spec.md §1 scopes transports out); it exists only to give the
// jwt/bcrypt/websocket/prometheus dependencies a concrete, exercised
// home, following the teacher's cmd/server/main.go flat http.HandleFunc
// wiring style.
package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/epic1st/clearinghouse/auth"
	"github.com/epic1st/clearinghouse/config"
	"github.com/epic1st/clearinghouse/dispatcher"
	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/metrics"
	"github.com/epic1st/clearinghouse/orderbook"
	"github.com/epic1st/clearinghouse/product"
	"github.com/epic1st/clearinghouse/wsfeed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[server] config load failed: %v", err)
	}

	house := dispatcher.New()
	house.RegisterProduct("range_payout", product.RangePayout{})

	authService := auth.NewService(cfg.JWT.Secret, cfg.Admin.PasswordHash)
	hub := wsfeed.NewHub(house.Bus(), authService)
	go hub.Run()

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	http.HandleFunc("/ws", hub.ServeWs)
	http.Handle("/metrics", metrics.Handler())

	http.HandleFunc("/api/orderbooks", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductTypeId      string             `json:"productTypeId"`
			Timeframe          int64              `json:"timeframe"`
			PriceStep          float64            `json:"priceStep"`
			Symbol             string             `json:"symbol"`
			PlaceOrdersBounds  domain.OrdersBounds `json:"placeOrdersBounds"`
			UpdateOrdersBounds domain.OrdersBounds `json:"updateOrdersBounds"`
			CancelOrdersBounds domain.OrdersBounds `json:"cancelOrdersBounds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := house.CreateOrderbook(orderbook.Config{
			ProductTypeId:      domain.ProductTypeId(req.ProductTypeId),
			Timeframe:          domain.Duration(req.Timeframe),
			PriceStep:          req.PriceStep,
			Symbol:             req.Symbol,
			PlaceOrdersBounds:  req.PlaceOrdersBounds,
			UpdateOrdersBounds: req.UpdateOrdersBounds,
			CancelOrdersBounds: req.CancelOrdersBounds,
		})
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, map[string]string{"orderbookId": string(id)})
	})

	http.HandleFunc("/api/whitelist", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrderbookId string `json:"orderbookId"`
			AccountId   string `json:"accountId"`
			Revoke      bool   `json:"revoke"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Revoke {
			house.RevokeMaker(domain.OrderbookId(req.OrderbookId), domain.AccountId(req.AccountId))
		} else {
			house.WhitelistMaker(domain.OrderbookId(req.OrderbookId), domain.AccountId(req.AccountId))
		}
		writeJSON(w, map[string]bool{"ok": true})
	})

	http.HandleFunc("/api/accounts/credit", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccountId string  `json:"accountId"`
			Asset     string  `json:"asset"`
			Amount    float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := house.CreditAccount(domain.AccountId(req.AccountId), req.Asset, req.Amount); err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	})

	http.HandleFunc("/api/accounts/debit", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccountId string  `json:"accountId"`
			Asset     string  `json:"asset"`
			Amount    float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := house.DebitAccount(domain.AccountId(req.AccountId), req.Asset, req.Amount); err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	})

	http.HandleFunc("/api/orders/place", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrderbookId string  `json:"orderbookId"`
			OrderId     string  `json:"orderId"`
			MakerId     string  `json:"makerId"`
			SizeTotal   float64 `json:"sizeTotal"`
			WindowStart int64   `json:"windowStart"`
			WindowEnd   int64   `json:"windowEnd"`
			Price       float64 `json:"price"`
			StartRange  float64 `json:"startRange"`
			EndRange    float64 `json:"endRange"`
			Multiplier  float64 `json:"multiplier"`
			CollateralPerUnit float64 `json:"collateralPerUnit"`
			Asset       string  `json:"asset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		order := &domain.Order{
			Id:            domain.OrderId(req.OrderId),
			MakerId:       domain.AccountId(req.MakerId),
			SizeTotal:     req.SizeTotal,
			SizeRemaining: req.SizeTotal,
			TriggerWindow: domain.TimeWindow{Start: domain.Timestamp(req.WindowStart), End: domain.Timestamp(req.WindowEnd)},
			Data: product.RangeOrderData{
				Price:             req.Price,
				StartRange:        req.StartRange,
				EndRange:          req.EndRange,
				Multiplier:        req.Multiplier,
				CollateralPerUnit: req.CollateralPerUnit,
				Asset:             req.Asset,
			},
		}
		if err := house.PlaceOrder(domain.OrderbookId(req.OrderbookId), order); err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	})

	http.HandleFunc("/api/orders/fill", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrderbookId string  `json:"orderbookId"`
			OrderId     string  `json:"orderId"`
			Size        float64 `json:"size"`
			TakerId     string  `json:"takerId"`
			Time        int64   `json:"time"`
			Price       float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		report, err := house.FillOrder(domain.OrderbookId(req.OrderbookId), domain.OrderId(req.OrderId), req.Size, domain.AccountId(req.TakerId), domain.Timestamp(req.Time), req.Price)
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, report)
	})

	http.HandleFunc("/api/oracle/tick", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symbol string  `json:"symbol"`
			Price  float64 `json:"price"`
			Time   int64   `json:"time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		house.HandlePriceAndTimeUpdate(req.Symbol, req.Price, domain.Timestamp(req.Time))
		writeJSON(w, map[string]bool{"ok": true})
	})

	log.Printf("[server] clearing house listening on :%s (environment=%s)", cfg.Port, cfg.Environment)
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		log.Fatalf("[server] %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeCommandError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
