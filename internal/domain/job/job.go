// Package job define el contrato de los trabajos diferidos: códigos, sobre de
// serialización y payloads. La mecánica de transporte (Redis) vive en
// infrastructure/queue; los handlers se registran por código.
package job

import (
	"encoding/json"
	"time"
)

// Códigos de trabajo conocidos por el motor.
const (
	CodeCloseCycle     = "CLOSE_EC"
	CodeOpenCloseCycle = "OPEN_CLOSE_EC" // cierre + apertura programados
	CodeAfterClose     = "AFTER_ECONOMIC_CYCLE_CLOSE"
	CodeDailyBalance   = "DAILY_BALANCE"
	// CodeProductionCost recalcula el costo de órdenes de producción abiertas
	// tras un cierre. Reservado: el despachador ignora códigos sin handler.
	CodeProductionCost = "UPDATE_PRODUCTION_ORDER_COST"
)

// Job es el sobre que viaja por la cola.
type Job struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Params   json.RawMessage `json:"params"`
	Attempts int             `json:"attempts"`
}

// CycleParams es el payload de CLOSE_EC y OPEN_CLOSE_EC.
type CycleParams struct {
	BusinessID string `json:"businessId"`
	UserID     string `json:"userId"`
	IsManual   bool   `json:"isManual"`
}

// AfterCloseParams es el payload de AFTER_ECONOMIC_CYCLE_CLOSE: las cuentas
// tocadas por el posteo del cierre.
type AfterCloseParams struct {
	BusinessID      string    `json:"businessId"`
	EconomicCycleID string    `json:"economicCycleId"`
	AccountIDs      []string  `json:"accountIds"`
	ClosedAt        time.Time `json:"closedAt"`
}

// DailyBalanceParams es el payload de DAILY_BALANCE.
type DailyBalanceParams struct {
	AccountID string    `json:"accountId"`
	Date      time.Time `json:"date"`
}
