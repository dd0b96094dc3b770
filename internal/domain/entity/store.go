package entity

import "time"

// Tipos de snapshot persistido de arqueo.
const (
	StoreTypeIncomeArea    = "EC_INCOME_AREA"
	StoreTypeIncomeGeneral = "EC_INCOME_GENERAL"
)

// StoreDataVersion es la versión del sobre de serialización de Store.Data.
const StoreDataVersion = 1

// Store es el snapshot inmutable de un arqueo, clave (type, cycleID, areaID?).
// Es la fuente de verdad para reportes posteriores: releer en lugar de
// recalcular. Data es un blob JSON versionado {"version":1,"payload":{...}};
// los lectores deben tolerar campos aditivos.
type Store struct {
	ID              string
	Type            string // EC_INCOME_AREA | EC_INCOME_GENERAL
	EconomicCycleID string
	AreaID          *string
	Data            []byte
	CreatedAt       time.Time
}
