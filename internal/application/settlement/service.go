package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

// SourceRepos son los repositorios de lectura que alimentan el agregador.
// Pueden venir atados a una transacción (cierre) o al pool (reportes).
type SourceRepos struct {
	Orders   repository.OrderRepository
	Cash     repository.CashRegisterRepository
	Products repository.ProductRepository
}

// Service expone los arqueos memoizados: calcula una vez, persiste el snapshot
// y las lecturas posteriores devuelven lo almacenado sin recomputar.
type Service struct {
	repos            SourceRepos
	storeRepo        repository.StoreRepository
	configRepo       repository.ConfigRepository
	currencyRepo     repository.CurrencyRepository
	areaRepo         repository.AreaRepository
	log              *logger.Logger
	defaultPrecision int
}

// NewService construye el servicio de arqueo.
func NewService(
	repos SourceRepos,
	storeRepo repository.StoreRepository,
	configRepo repository.ConfigRepository,
	currencyRepo repository.CurrencyRepository,
	areaRepo repository.AreaRepository,
	log *logger.Logger,
	defaultPrecision int,
) *Service {
	return &Service{
		repos:            repos,
		storeRepo:        storeRepo,
		configRepo:       configRepo,
		currencyRepo:     currencyRepo,
		areaRepo:         areaRepo,
		log:              log.WithOrigin("settlement"),
		defaultPrecision: defaultPrecision,
	}
}

// LoadFlags lee las políticas de arqueo del negocio desde el almacén de
// configuración.
func LoadFlags(ctx context.Context, configRepo repository.ConfigRepository, businessID string, defaultPrecision int) (Flags, error) {
	var f Flags
	var err error

	if f.IncludeTipsInCash, err = configRepo.GetBool(ctx, businessID, repository.ConfigCashIncludeTips, false); err != nil {
		return f, err
	}
	if f.IncludeShippingInCash, err = configRepo.GetBool(ctx, businessID, repository.ConfigCashIncludeDeliveries, true); err != nil {
		return f, err
	}
	if f.ExtractSalaryFromCash, err = configRepo.GetBool(ctx, businessID, repository.ConfigExtractSalaryFromCash, false); err != nil {
		return f, err
	}
	salaryFrom, err := configRepo.GetString(ctx, businessID, repository.ConfigCalculateSalaryFrom, "sales")
	if err != nil {
		return f, err
	}
	f.SalaryFromRevenue = salaryFrom == "revenue"

	carryForward, err := configRepo.GetBool(ctx, businessID, repository.ConfigTransferOrdersToNext, false)
	if err != nil {
		return f, err
	}
	f.IncludePaymentPending = !carryForward

	if f.CostCurrency, err = configRepo.GetString(ctx, businessID, repository.ConfigGeneralCostCurrency, ""); err != nil {
		return f, err
	}
	prec, err := configRepo.GetInt(ctx, businessID, repository.ConfigPrecisionAfterComa, defaultPrecision)
	if err != nil {
		return f, err
	}
	f.Precision = int32(prec)
	return f, nil
}

// GatherSources junta los datos del período de un área usando los repos dados.
func GatherSources(ctx context.Context, repos SourceRepos, cycle *entity.EconomicCycle, area *entity.Area, currencies []entity.Currency, flags Flags) (Sources, error) {
	src := Sources{Area: area, Currencies: currencies, Flags: flags}

	statuses := []string{entity.OrderStatusBilled}
	if flags.IncludePaymentPending {
		statuses = append(statuses, entity.OrderStatusPaymentPending)
	}
	orders, err := repos.Orders.ListByCycleAndArea(ctx, cycle.ID, area.ID, statuses)
	if err != nil {
		return src, err
	}
	src.Orders = orders

	cashOps, err := repos.Cash.ListByCycleAndArea(ctx, cycle.ID, area.ID)
	if err != nil {
		return src, err
	}
	src.CashOps = cashOps

	selled, err := repos.Orders.ListSelledByCycleAndArea(ctx, cycle.ID, area.ID)
	if err != nil {
		return src, err
	}
	src.Selled = selled

	// Precios de catálogo del sistema de precios del ciclo, una consulta por
	// producto distinto.
	src.CatalogPrices = map[string][]entity.ProductPrice{}
	for _, line := range selled {
		if _, done := src.CatalogPrices[line.ProductID]; done {
			continue
		}
		prices, err := repos.Products.ListPrices(ctx, line.ProductID, cycle.PriceSystemID)
		if err != nil {
			return src, err
		}
		src.CatalogPrices[line.ProductID] = prices
	}
	return src, nil
}

// AreaReport devuelve el arqueo de un área para un ciclo. Si existe snapshot
// persistido lo devuelve tal cual; si no, computa y, con el ciclo ya cerrado
// (datos históricos), memoiza el resultado.
func (s *Service) AreaReport(ctx context.Context, businessID string, cycle *entity.EconomicCycle, area *entity.Area) (*Report, error) {
	stored, err := s.storeRepo.Get(ctx, entity.StoreTypeIncomeArea, cycle.ID, &area.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return DecodeStore(stored.Data)
	}

	flags, err := LoadFlags(ctx, s.configRepo, businessID, s.defaultPrecision)
	if err != nil {
		return nil, err
	}
	currencies, err := s.currencyRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	src, err := GatherSources(ctx, s.repos, cycle, area, currencies, flags)
	if err != nil {
		return nil, err
	}
	report, err := Compute(src)
	if err != nil {
		s.log.Error().Err(err).Str("business_id", businessID).Str("area_id", area.ID).Msg("arqueo de área fallido")
		return nil, err
	}

	if !cycle.IsActive {
		if err := s.persist(ctx, entity.StoreTypeIncomeArea, cycle.ID, &area.ID, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// GeneralReport devuelve el arqueo del negocio completo: suma campo a campo de
// los arqueos de todas las áreas SALE del ciclo.
func (s *Service) GeneralReport(ctx context.Context, businessID string, cycle *entity.EconomicCycle) (*Report, error) {
	stored, err := s.storeRepo.Get(ctx, entity.StoreTypeIncomeGeneral, cycle.ID, nil)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return DecodeStore(stored.Data)
	}

	areas, err := s.areaRepo.ListActiveByType(ctx, businessID, entity.AreaTypeSale)
	if err != nil {
		return nil, err
	}
	reports := make([]*Report, 0, len(areas))
	for _, area := range areas {
		r, err := s.AreaReport(ctx, businessID, cycle, area)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	general := Merge(reports...)

	if !cycle.IsActive {
		if err := s.persist(ctx, entity.StoreTypeIncomeGeneral, cycle.ID, nil, general); err != nil {
			return nil, err
		}
	}
	return general, nil
}

func (s *Service) persist(ctx context.Context, storeType, cycleID string, areaID *string, report *Report) error {
	data, err := EncodeStore(report)
	if err != nil {
		return err
	}
	return s.storeRepo.Create(ctx, &entity.Store{
		ID:              uuid.New().String(),
		Type:            storeType,
		EconomicCycleID: cycleID,
		AreaID:          areaID,
		Data:            data,
		CreatedAt:       time.Now(),
	})
}
