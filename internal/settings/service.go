package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
)

// Keys recognized by the rest of the system. Unknown keys are stored as-is.
const (
	KeyReturnPeriodDays      = "return_period_days"
	KeyFinePerDay            = "fine_per_day"
	KeyReservationExpiryDays = "reservation_expiry_days"
)

// Value types a setting row may declare.
const (
	TypeString  = "str"
	TypeInt     = "int"
	TypeDecimal = "decimal"
	TypeBool    = "bool"
)

var validValueTypes = map[string]struct{}{
	TypeString:  {},
	TypeInt:     {},
	TypeDecimal: {},
	TypeBool:    {},
}

// Store reads and writes flat configuration values with an in-process cache.
type Store interface {
	Get(ctx context.Context, key, fallback string) string
	GetInt(ctx context.Context, key string, fallback int) int
	GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal
	Set(ctx context.Context, key, value, valueType string) error
	List(ctx context.Context) ([]models.Setting, error)
}

type store struct {
	repo  Repository
	cache *Cache
	logg  *logger.Logger
}

// StoreParams bundles the dependencies for the settings store.
type StoreParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// NewStore wires the settings store and its cache.
func NewStore(params StoreParams) (Store, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings repository required")
	}
	return &store{
		repo:  params.Repo,
		cache: NewCache(),
		logg:  params.Logger,
	}, nil
}

func (s *store) Get(ctx context.Context, key, fallback string) string {
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	setting, err := s.repo.Find(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && s.logg != nil {
			s.logg.Error(ctx, "settings lookup failed", err)
		}
		return fallback
	}

	s.cache.Put(key, setting.Value)
	return setting.Value
}

func (s *store) GetInt(ctx context.Context, key string, fallback int) int {
	raw := s.Get(ctx, key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func (s *store) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	raw := s.Get(ctx, key, "")
	if raw == "" {
		return fallback
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func (s *store) Set(ctx context.Context, key, value, valueType string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	if valueType == "" {
		valueType = TypeString
	}
	if _, ok := validValueTypes[valueType]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid setting value type")
	}
	switch valueType {
	case TypeInt:
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "setting value is not an integer")
		}
	case TypeDecimal:
		if _, err := decimal.NewFromString(strings.TrimSpace(value)); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "setting value is not a decimal")
		}
	case TypeBool:
		if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "setting value is not a boolean")
		}
	}

	if err := s.repo.Upsert(ctx, key, value, valueType); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist setting")
	}
	s.cache.Invalidate(key)
	return nil
}

func (s *store) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settings")
	}
	return settings, nil
}
