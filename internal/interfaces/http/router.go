package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Cycle      *CycleHandler
	Settlement *SettlementHandler
	Ledger     *LedgerHandler
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Ciclo económico
	cycles := api.Group("/economic-cycles")
	cycles.Post("/open", deps.Cycle.Open)
	cycles.Post("/close", deps.Cycle.Close)
	cycles.Get("/active", deps.Cycle.Active)

	// Arqueos
	settlements := api.Group("/settlements")
	settlements.Get("/general", deps.Settlement.General)
	settlements.Get("/areas/:areaId", deps.Settlement.Area)

	// Ledger
	accounts := api.Group("/accounts/:accountId")
	accounts.Post("/operations", deps.Ledger.PostOperation)
	accounts.Get("/operations", deps.Ledger.ListOperations)
	accounts.Post("/transfers", deps.Ledger.Transfer)
	accounts.Post("/exchanges", deps.Ledger.Exchange)
	accounts.Get("/balances", deps.Ledger.ListBalances)
	accounts.Get("/daily-balances", deps.Ledger.ListDailyBalances)
	api.Delete("/operations/:operationId", deps.Ledger.DeleteOperation)
}
