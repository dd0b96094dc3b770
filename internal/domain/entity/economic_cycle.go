package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemActorID identifica al actor "sistema" en operaciones originadas por el
// propio motor (cierres programados, ajustes automáticos). Sustituye cualquier
// fallback numérico implícito: quien registre una mutación sin usuario humano
// debe pasar este centinela de forma explícita.
const SystemActorID = "system"

// EconomicCycle representa el período contable/de inventario abierto de un
// negocio. A lo sumo uno activo por negocio (invariante global, reforzado por
// índice único parcial en BD). Se crea en Open y solo muta en Close.
type EconomicCycle struct {
	ID            string
	BusinessID    string
	Name          string
	OpenedBy      string
	OpenedAt      time.Time
	ClosedBy      *string
	ClosedAt      *time.Time
	PriceSystemID string
	Meta          *CycleMeta // tasas de cambio congeladas al cierre
	IsActive      bool
}

// CycleMeta es el blob versionado que se persiste en economic_cycle.meta al
// momento del cierre.
type CycleMeta struct {
	Version        int          `json:"version"`
	ExchangeRates  []FrozenRate `json:"exchangeRates"`
	ClosedManually bool         `json:"closedManually"`
}

// FrozenRate es la tasa de cambio de una moneda tal como estaba al cierre.
type FrozenRate struct {
	Code         string          `json:"code"`
	IsMain       bool            `json:"isMain"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
}

// PriceSystem es el sistema de precios vigente para un ciclo.
type PriceSystem struct {
	ID         string
	BusinessID string
	Name       string
	IsMain     bool
}

// Currency es una moneda habilitada para el negocio, con su tasa contra la
// moneda principal. La ausencia de moneda principal es un fallo duro.
type Currency struct {
	Code         string
	IsMain       bool
	ExchangeRate decimal.Decimal
}
