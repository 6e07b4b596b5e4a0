package seed

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"rewards-service/internal/models"
	"rewards-service/internal/rewards"
	"rewards-service/internal/services"
)

type Admin struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type Gift struct {
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description"`
	Category       string  `yaml:"category"`
	PointsRequired int64   `yaml:"points_required"`
	Value          float64 `yaml:"value"`
	Stock          int     `yaml:"stock"`
}

type Pump struct {
	Name     string `yaml:"name"`
	Code     string `yaml:"code"`
	FuelType string `yaml:"fuel_type"`
	Location string `yaml:"location"`
}

type Tier struct {
	Name      string `yaml:"name"`
	MinPoints int64  `yaml:"min_points"`
}

type Settings struct {
	PointsPerLiter   *float64 `yaml:"points_per_liter"`
	RewardMultiplier *float64 `yaml:"reward_multiplier"`
	RoundingMode     *string  `yaml:"rounding_mode"`
	Tiers            []Tier   `yaml:"tiers"`
}

// Catalog is the content of a seed file.
type Catalog struct {
	Admin    Admin     `yaml:"admin"`
	Settings *Settings `yaml:"settings"`
	Pumps    []Pump    `yaml:"pumps"`
	Gifts    []Gift    `yaml:"gifts"`
}

func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, errors.Wrap(err, "parse seed file")
	}
	c.Admin.Email = strings.ToLower(strings.TrimSpace(c.Admin.Email))
	if c.Admin.Email == "" || c.Admin.Password == "" {
		return Catalog{}, errors.New("seed file needs admin.email and admin.password")
	}
	return c, nil
}

func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, errors.Wrapf(err, "read %s", path)
	}
	return Parse(data)
}

type Result struct {
	AdminCreated bool
	Pumps        int
	Gifts        int
}

// Seeder applies a catalog through the regular services so the same
// validation runs as for API calls. Re-running it is safe: existing pumps
// (by code) and gifts (by name) are skipped.
type Seeder struct {
	DB       *gorm.DB
	Settings *services.SettingsService
	Pumps    *services.PumpService
	Gifts    *services.GiftService
	Logger   *zap.Logger
}

func (s *Seeder) Apply(ctx context.Context, c Catalog) (Result, error) {
	var res Result

	admin, created, err := s.ensureAdmin(ctx, c.Admin)
	if err != nil {
		return res, err
	}
	res.AdminCreated = created
	actor := services.Actor{ID: admin.ID, Email: admin.Email, Role: admin.Role}

	if c.Settings != nil {
		update := services.UpdateSettingsDTO{
			PointsPerLiter:   c.Settings.PointsPerLiter,
			RewardMultiplier: c.Settings.RewardMultiplier,
			RoundingMode:     c.Settings.RoundingMode,
		}
		if len(c.Settings.Tiers) > 0 {
			tiers := make([]rewards.Tier, 0, len(c.Settings.Tiers))
			for _, t := range c.Settings.Tiers {
				tiers = append(tiers, rewards.Tier{Name: t.Name, MinPoints: t.MinPoints})
			}
			update.Tiers = &tiers
		}
		if _, err := s.Settings.Update(ctx, actor, update); err != nil {
			return res, errors.Wrap(err, "seed settings")
		}
	}

	for _, p := range c.Pumps {
		var count int64
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if err := s.DB.WithContext(ctx).Model(&models.Pump{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return res, errors.Wrap(err, "lookup pump")
		}
		if count > 0 {
			continue
		}
		if _, err := s.Pumps.Create(ctx, actor, services.PumpDTO{
			Name: p.Name, Code: code, FuelType: p.FuelType, Location: p.Location,
		}); err != nil {
			return res, errors.Wrapf(err, "seed pump %s", code)
		}
		res.Pumps++
	}

	for _, g := range c.Gifts {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Gift{}).Where("name = ?", g.Name).Count(&count).Error; err != nil {
			return res, errors.Wrap(err, "lookup gift")
		}
		if count > 0 {
			continue
		}
		if _, err := s.Gifts.Create(ctx, actor, services.GiftDTO{
			Name:           g.Name,
			Description:    g.Description,
			Category:       g.Category,
			PointsRequired: g.PointsRequired,
			Value:          g.Value,
			Stock:          g.Stock,
		}); err != nil {
			return res, errors.Wrapf(err, "seed gift %q", g.Name)
		}
		res.Gifts++
	}

	s.Logger.Info("seed applied",
		zap.Bool("admin_created", res.AdminCreated),
		zap.Int("pumps", res.Pumps),
		zap.Int("gifts", res.Gifts),
	)
	return res, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, a Admin) (models.User, bool, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", a.Email).First(&user).Error
	if err == nil {
		if user.Role != models.RoleAdmin {
			return user, false, errors.Errorf("seed admin %s exists with role %s", a.Email, user.Role)
		}
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, false, errors.Wrap(err, "lookup admin")
	}

	hash, err := services.HashPassword(a.Password)
	if err != nil {
		return user, false, err
	}
	name := a.Name
	if name == "" {
		name = "Administrator"
	}
	user = models.User{Email: a.Email, Name: name, PasswordHash: hash, Role: models.RoleAdmin, Active: true}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return user, false, errors.Wrap(err, "create admin")
	}
	return user, true, nil
}
